package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index using brute-force cosine similarity.
// Exact and O(n) per query; intended for small corpora and tests.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks []Chunk        // insertion order, preserved across upserts
	byID   map[string]int // chunk ID -> slot in chunks
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byID: make(map[string]int),
	}
}

// UpsertMany stores the given chunks. The whole batch is validated before
// anything is written, so a chunk without a vector rejects the entire batch.
func (m *MemoryIndex) UpsertMany(ctx context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		if !c.HasVector() {
			return fmt.Errorf("%w: chunk %s from %s", ErrMissingVector, c.ID, c.SourceFile)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		if slot, ok := m.byID[c.ID]; ok {
			// Replacement keeps the original insertion slot so tie-breaking
			// stays deterministic.
			m.chunks[slot] = c
			continue
		}
		m.byID[c.ID] = len(m.chunks)
		m.chunks = append(m.chunks, c)
	}
	return nil
}

// DeleteBySource removes every chunk whose SourceFile matches and returns the
// number removed. Idempotent: an absent source removes nothing.
func (m *MemoryIndex) DeleteBySource(ctx context.Context, sourceFile string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.chunks[:0]
	removed := 0
	for _, c := range m.chunks {
		if c.SourceFile == sourceFile {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	if removed == 0 {
		return 0, nil
	}

	m.chunks = kept
	m.byID = make(map[string]int, len(m.chunks))
	for i, c := range m.chunks {
		m.byID[c.ID] = i
	}
	return removed, nil
}

// Search returns the topK most similar chunks, best first. Ties in score are
// broken by insertion order (earliest first) to keep results deterministic.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, topK int) ([]ScoredChunk, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		score := cosineSimilarity(query, c.Vector)
		result := c
		result.Vector = nil // callers never need the payload back
		scored = append(scored, ScoredChunk{Chunk: result, Score: score})
	}

	// Stable sort preserves insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Size returns the exact number of stored chunks.
func (m *MemoryIndex) Size(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// cosineSimilarity computes (A·B)/(||A||*||B||), defined as 0 when either
// vector has zero magnitude or the dimensions disagree.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
