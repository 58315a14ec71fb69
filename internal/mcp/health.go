package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker interface defines the health check dependency.
// The storage layer implements this via its Health() method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It checks index connectivity and returns appropriate status codes.
func NewHealthHandler(index HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		err := index.Health(ctx)

		response := HealthResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Qdrant = "connected"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// checkIndex builds the index_health report: connectivity first, then the
// point count when the index is reachable.
func checkIndex(ctx context.Context, index IndexStatus) IndexHealthOutput {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	out := IndexHealthOutput{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if index == nil {
		out.Status = "unhealthy"
		out.Qdrant = "not configured"
		return out
	}

	if err := index.Health(ctx); err != nil {
		out.Status = "unhealthy"
		out.Qdrant = "disconnected"
		out.Error = err.Error()
		return out
	}
	out.Qdrant = "connected"

	info, err := index.Stats(ctx)
	if err != nil {
		out.Status = "degraded"
		out.Error = err.Error()
		return out
	}
	out.Status = "healthy"
	out.PointsCount = info.PointsCount
	return out
}
