package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// OutlineEntry is one heading in a document's table of contents.
type OutlineEntry struct {
	Depth  int
	Title  string
	Anchor string
}

// Outline returns the table of contents of source, used to preview a policy
// document before ingesting it.
func (p *Parser) Outline(source []byte) ([]OutlineEntry, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}

	doc := p.md.Parser().Parse(text.NewReader(source))
	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(maxLevel),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var entries []OutlineEntry
	flattenTOC(tree.Items, 0, &entries)
	return entries, nil
}

func flattenTOC(items toc.Items, depth int, out *[]OutlineEntry) {
	for _, item := range items {
		if len(item.Title) > 0 {
			*out = append(*out, OutlineEntry{
				Depth:  depth,
				Title:  string(item.Title),
				Anchor: string(item.ID),
			})
		}
		flattenTOC(item.Items, depth+1, out)
	}
}

// RenderOutline formats entries as an indented bullet list.
func RenderOutline(entries []OutlineEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", e.Depth), e.Title)
	}
	return b.String()
}
