package vectorindex

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex Index

import (
	"context"
	"errors"
)

var (
	// ErrMissingVector is returned by UpsertMany when any chunk in the batch
	// has no embedding. The whole batch is rejected; nothing is stored.
	ErrMissingVector = errors.New("chunk is missing its embedding vector")
)

// Chunk is the atomic unit of embedding and retrieval: a bounded slice of a
// source document plus the metadata needed for change detection and cleanup.
type Chunk struct {
	ID          string    // Opaque unique identifier (UUID), stable for the chunk's lifetime
	Text        string    // Chunk text content
	SourceFile  string    // Relative, slash-separated path of the originating file
	ChunkIndex  int       // Zero-based position within the source file
	Fingerprint string    // SHA-256 hex of the source file at chunking time
	Vector      []float32 // Embedding; nil until embedded
}

// HasVector reports whether the chunk has been embedded.
func (c Chunk) HasVector() bool {
	return len(c.Vector) > 0
}

// ScoredChunk pairs a chunk with its similarity score for a query.
// Higher scores mean more similar. Score scales are backend-specific;
// only the relative ordering is comparable across backends.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Index defines the interface for vector storage and similarity search.
// The in-memory and Qdrant implementations are interchangeable behind it.
type Index interface {
	// UpsertMany stores the given chunks, replacing any chunk with the same
	// ID. Every chunk must carry a vector; otherwise the whole batch is
	// rejected with ErrMissingVector and nothing is stored.
	UpsertMany(ctx context.Context, chunks []Chunk) error

	// DeleteBySource removes every chunk whose SourceFile matches, regardless
	// of fingerprint, and returns the number removed. Deleting an absent
	// source returns 0, not an error.
	DeleteBySource(ctx context.Context, sourceFile string) (int, error)

	// Search returns the topK chunks most similar to the query vector, best
	// first. topK must be at least 1. Result chunks do not carry vectors.
	Search(ctx context.Context, query []float32, topK int) ([]ScoredChunk, error)

	// Size returns the number of stored chunks. Exact for the in-memory
	// index; the Qdrant-backed index may report an approximation.
	Size(ctx context.Context) (int, error)
}
