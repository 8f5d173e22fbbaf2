package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/contextutil"
)

// Payload keys for chunk metadata stored alongside each point.
// source_file is the queryable attribute behind DeleteBySource.
const (
	payloadText        = "text"
	payloadSourceFile  = "source_file"
	payloadChunkIndex  = "chunk_index"
	payloadFingerprint = "fingerprint"
)

// QdrantIndex implements Index on top of a Qdrant collection (HNSW graph,
// cosine distance). Persistent and approximate; scores are Qdrant's cosine
// scores, monotonic with the in-memory index's ranking.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex creates an Index backed by the given Qdrant collection.
// urlStr should be in the format "http://host:port" (e.g. "http://localhost:6333");
// the gRPC port is derived from the HTTP port.
func NewQdrantIndex(urlStr, collection string) (*QdrantIndex, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	// Default gRPC port; otherwise HTTP port + 1.
	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
	}, nil
}

// EnsureCollection creates the collection if it does not exist and validates
// the vector size if it does.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", q.collection, "vector_size", vectorSize)
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := q.client.GetCollectionInfo(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", q.collection, "vector_size", vectorSize)
	return nil
}

// UpsertMany stores the given chunks as points with chunk metadata payload.
// The batch is validated up front; a chunk without a vector rejects it whole.
func (q *QdrantIndex) UpsertMany(ctx context.Context, chunks []Chunk) error {
	logger := contextutil.LoggerFromContext(ctx)

	for _, c := range chunks {
		if !c.HasVector() {
			return fmt.Errorf("%w: chunk %s from %s", ErrMissingVector, c.ID, c.SourceFile)
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(c.ID),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadText:        c.Text,
				payloadSourceFile:  c.SourceFile,
				payloadChunkIndex:  c.ChunkIndex,
				payloadFingerprint: c.Fingerprint,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", q.collection, "count", len(chunks), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", q.collection, "count", len(chunks))
	return nil
}

// DeleteBySource removes every point whose source_file payload matches.
// Qdrant's delete API reports no count, so an exact filtered count runs
// first; the same filter then drives the delete. Never a no-op.
func (q *QdrantIndex) DeleteBySource(ctx context.Context, sourceFile string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadSourceFile, sourceFile),
		},
	}

	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points for %s: %w", sourceFile, err)
	}
	if count == 0 {
		return 0, nil
	}

	_, err = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", q.collection, "source_file", sourceFile, "error", err)
		return 0, fmt.Errorf("failed to delete points for %s: %w", sourceFile, err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", q.collection, "source_file", sourceFile, "count", count)
	return int(count), nil
}

// Search returns the topK most similar chunks, best first, rebuilt from the
// point payloads.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, topK int) ([]ScoredChunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}

	limit := uint64(topK)
	scoredPoints, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", q.collection, "topK", topK, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]ScoredChunk, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		results = append(results, ScoredChunk{
			Chunk: chunkFromPoint(point),
			Score: point.Score,
		})
	}

	return results, nil
}

// chunkFromPoint rebuilds a Chunk (without vector) from a scored point's
// ID and payload.
func chunkFromPoint(point *qdrant.ScoredPoint) Chunk {
	chunk := Chunk{}
	if point.Id != nil {
		chunk.ID = point.Id.GetUuid()
	}
	for key, value := range point.Payload {
		if value == nil {
			continue
		}
		switch key {
		case payloadText:
			chunk.Text = value.GetStringValue()
		case payloadSourceFile:
			chunk.SourceFile = value.GetStringValue()
		case payloadChunkIndex:
			chunk.ChunkIndex = int(value.GetIntegerValue())
		case payloadFingerprint:
			chunk.Fingerprint = value.GetStringValue()
		}
	}
	return chunk
}

// Size returns the collection's point count as reported by Qdrant.
func (q *QdrantIndex) Size(ctx context.Context) (int, error) {
	info, err := q.client.GetCollectionInfo(ctx, q.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}

	if info.PointsCount != nil {
		return int(*info.PointsCount), nil
	}
	return 0, nil
}
