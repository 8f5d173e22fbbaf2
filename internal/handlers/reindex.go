package handlers

import (
	"errors"
	"net/http"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/contextutil"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/indexer"
)

// ReindexHandler triggers an ingestion pass over the docs root.
type ReindexHandler struct {
	indexer *indexer.Indexer
}

// NewReindexHandler creates a new ReindexHandler.
func NewReindexHandler(ix *indexer.Indexer) *ReindexHandler {
	return &ReindexHandler{indexer: ix}
}

// ServeHTTP handles POST /api/v1/reindex. The pass runs synchronously and
// the summary is returned; a request arriving while another pass is in
// flight gets 409 Conflict.
func (h *ReindexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	summary, err := h.indexer.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, indexer.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "An ingestion run is already in progress")
			return
		}
		logger.ErrorContext(ctx, "reindex failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
