package handlers

import (
	"net/http"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/contextutil"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/storage"
)

// SourcesHandler reports index statistics from the source ledger.
type SourcesHandler struct {
	sources storage.SourceStore
}

// NewSourcesHandler creates a new SourcesHandler.
func NewSourcesHandler(sources storage.SourceStore) *SourcesHandler {
	return &SourcesHandler{sources: sources}
}

// SourcesResponse is the HTTP response payload for index statistics.
//
// swagger:model SourcesResponse
type SourcesResponse struct {
	Files       int    `json:"files"`
	TotalChunks int    `json:"totalChunks"`
	Status      string `json:"status"`
}

// ServeHTTP handles GET /api/v1/sources.
func (h *SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	files, err := h.sources.Count(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to count sources", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read ledger")
		return
	}

	totalChunks, err := h.sources.TotalChunkCount(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to sum chunk counts", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read ledger")
		return
	}

	status := "indexed"
	if totalChunks == 0 {
		status = "empty"
	}

	writeJSON(w, http.StatusOK, SourcesResponse{
		Files:       files,
		TotalChunks: totalChunks,
		Status:      status,
	})
}
