package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/contextutil"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/embedding"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex"
)

// Response holds the ranked results for one query plus index metadata.
type Response struct {
	Results     []vectorindex.ScoredChunk
	TotalChunks int
	ElapsedMs   int64
}

// Retriever answers queries against the vector index: embed the question
// once, search, return results verbatim. No re-ranking, no deduplication by
// source; several results from the same file are valid and expected.
type Retriever struct {
	embedder embedding.Embedder
	index    vectorindex.Index
}

// New creates a Retriever.
func New(embedder embedding.Embedder, index vectorindex.Index) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
	}
}

// Query returns the maxResults chunks most similar to the question, best
// first. Range validation for maxResults is the HTTP boundary's job; this
// only requires it to be positive for the underlying search.
func (r *Retriever) Query(ctx context.Context, question string, maxResults int) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	vectors, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return Response{}, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(vectors) == 0 {
		return Response{}, fmt.Errorf("no embedding returned for question")
	}

	results, err := r.index.Search(ctx, vectors[0], maxResults)
	if err != nil {
		return Response{}, fmt.Errorf("search failed: %w", err)
	}

	totalChunks, err := r.index.Size(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("failed to get index size: %w", err)
	}

	elapsed := time.Since(start).Milliseconds()
	logger.DebugContext(ctx, "query completed",
		"question", truncate(question, 50),
		"results", len(results),
		"elapsed_ms", elapsed,
	)

	return Response{
		Results:     results,
		TotalChunks: totalChunks,
		ElapsedMs:   elapsed,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
