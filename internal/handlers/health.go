package handlers

import (
	"net/http"
	"time"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/indexer"
)

// HealthHandler reports ingestion health: the outcome of the most recent
// pass, or the retained error when the last pass failed.
type HealthHandler struct {
	health *indexer.Health
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(health *indexer.Health) *HealthHandler {
	return &HealthHandler{health: health}
}

// HealthResponse is the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the last ingestion run, RFC3339, or "never"
	LastRun string `json:"lastRun"`

	// Summary of the last successful run (only when healthy)
	Ingestion *indexer.Summary `json:"ingestion,omitempty"`

	// Error from the last failed run (only when unhealthy)
	Error string `json:"error,omitempty"`
}

// ServeHTTP handles GET /api/health.
// Returns 200 when the last ingestion pass succeeded (or none has run yet),
// 503 when it failed.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snapshot := h.health.Snapshot()

	resp := HealthResponse{
		Status:  "healthy",
		LastRun: "never",
	}
	if snapshot.HasRun {
		resp.LastRun = snapshot.LastRun.Format(time.RFC3339)
	}

	httpStatus := http.StatusOK
	switch {
	case !snapshot.HasRun:
		// Startup ingestion may still be pending; report healthy with no summary.
	case snapshot.Healthy:
		summary := snapshot.Summary
		resp.Ingestion = &summary
	default:
		resp.Status = "unhealthy"
		resp.Error = snapshot.LastErr
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
