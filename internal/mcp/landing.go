package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>TechPlus Store Assistant</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f8fafc; color: #0f172a; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #ffffff; border-radius: 12px; padding: 2.5rem; box-shadow: 0 10px 30px rgba(15,23,42,0.12); }
  h1 { font-size: 1.6rem; margin-bottom: 0.5rem; }
  .subtitle { color: #475569; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  ul { list-style: none; }
  li { margin-bottom: 0.35rem; }
  code, .endpoint { font-family: "SF Mono", Menlo, monospace; font-size: 0.9rem; color: #1d4ed8; }
  pre { background: #f1f5f9; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; }
</style>
</head>
<body>
<div class="card">
  <h1>TechPlus Store Assistant</h1>
  <p class="subtitle">Product search, PC build recommendations and store policy lookup over the Model Context Protocol.</p>

  <div class="section">
    <div class="section-title">Connect</div>
    <pre><code>{"mcpServers": {"techplus": {"type": "http", "url": "http://localhost:8080/mcp"}}}</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Tools</div>
    <ul>
      <li><code>search_catalog</code> products by query, category and price</li>
      <li><code>search_policy</code> warranty, returns, shipping and payment sections</li>
      <li><code>policy_section</code> full text of one section</li>
      <li><code>recommend_build</code> component options for a PC build</li>
      <li><code>recently_advised</code> products suggested earlier in the conversation</li>
      <li><code>index_health</code> index connectivity and size</li>
    </ul>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP</p>
    <p><a href="/health" class="endpoint">/health</a> health check</p>
    <p><a href="/metrics" class="endpoint">/metrics</a> Prometheus metrics</p>
  </div>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
