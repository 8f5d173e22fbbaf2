package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/embedding"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/vectorindex/mocks"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = s.vector
	}
	return vectors, nil
}

func TestRetriever_Query(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)

	queryVector := []float32{0.1, 0.2, 0.3}
	want := []vectorindex.ScoredChunk{
		{Chunk: vectorindex.Chunk{ID: "c1", Text: "best match", SourceFile: "a.md"}, Score: 0.92},
		{Chunk: vectorindex.Chunk{ID: "c2", Text: "second", SourceFile: "b.md"}, Score: 0.78},
	}

	index.EXPECT().Search(gomock.Any(), queryVector, 5).Return(want, nil)
	index.EXPECT().Size(gomock.Any()).Return(42, nil)

	r := New(&stubEmbedder{vector: queryVector}, index)

	resp, err := r.Query(context.Background(), "how does ingestion work?", 5)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("Query() returned %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Chunk.ID != "c1" {
		t.Errorf("best result = %s, want c1", resp.Results[0].Chunk.ID)
	}
	if resp.TotalChunks != 42 {
		t.Errorf("TotalChunks = %d, want 42", resp.TotalChunks)
	}
	if resp.ElapsedMs < 0 {
		t.Errorf("ElapsedMs = %d, want non-negative", resp.ElapsedMs)
	}
}

func TestRetriever_Query_EmbeddingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)

	embedErr := fmt.Errorf("%w: connection refused", embedding.ErrUnavailable)
	r := New(&stubEmbedder{err: embedErr}, index)

	_, err := r.Query(context.Background(), "anything", 5)
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("Query() error = %v, want wrapped ErrUnavailable", err)
	}
}

func TestRetriever_Query_SearchFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)

	index.EXPECT().Search(gomock.Any(), gomock.Any(), 3).Return(nil, errors.New("index offline"))

	r := New(&stubEmbedder{vector: []float32{1, 0}}, index)

	if _, err := r.Query(context.Background(), "anything", 3); err == nil {
		t.Error("Query() expected error when search fails, got nil")
	}
}
