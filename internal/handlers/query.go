package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/contextutil"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/embedding"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/retriever"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/service"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

// QueryHandler handles HTTP requests for context retrieval.
type QueryHandler struct {
	retriever *retriever.Retriever
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(r *retriever.Retriever) *QueryHandler {
	return &QueryHandler{retriever: r}
}

// QueryRequest is the HTTP request payload for retrieval queries.
//
// swagger:model QueryRequest
type QueryRequest struct {
	Question   string `json:"question"`
	MaxResults int    `json:"maxResults,omitempty"`
}

// QueryResult is a single matched chunk in the response.
//
// swagger:model QueryResult
type QueryResult struct {
	Content    string  `json:"content"`
	SourceFile string  `json:"sourceFile"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float32 `json:"score"`
}

// QueryResponse is the HTTP response payload for retrieval queries.
//
// swagger:model QueryResponse
type QueryResponse struct {
	Results     []QueryResult `json:"results"`
	TotalChunks int           `json:"totalChunks"`
	QueryTimeMs int64         `json:"queryTimeMs"`
}

// ServeHTTP handles POST /api/v1/query.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validateQueryRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.retriever.Query(ctx, req.Question, req.MaxResults)
	if err != nil {
		logger.ErrorContext(ctx, "query failed", "error", err)
		if errors.Is(err, embedding.ErrUnavailable) {
			writeError(w, http.StatusBadGateway, "Embedding service unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "Query failed")
		return
	}

	results := make([]QueryResult, 0, len(resp.Results))
	for _, sc := range resp.Results {
		results = append(results, QueryResult{
			Content:    sc.Chunk.Text,
			SourceFile: sc.Chunk.SourceFile,
			ChunkIndex: sc.Chunk.ChunkIndex,
			Score:      sc.Score,
		})
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Results:     results,
		TotalChunks: resp.TotalChunks,
		QueryTimeMs: resp.ElapsedMs,
	})
}

// validateQueryRequest checks the request at the boundary: the retrieval
// core assumes maxResults is already in range.
func validateQueryRequest(req *QueryRequest) error {
	if req.Question == "" {
		return &service.ValidationError{Field: "question", Message: "is required"}
	}
	if req.MaxResults == 0 {
		req.MaxResults = defaultMaxResults
	}
	if req.MaxResults < 1 || req.MaxResults > maxMaxResults {
		return &service.ValidationError{Field: "maxResults", Message: "must be between 1 and 20"}
	}
	return nil
}
