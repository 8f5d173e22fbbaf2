package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrUnavailable is returned when the embedding service cannot be
	// reached or refuses the request (network failure, rate limit, auth).
	// During indexing it is a per-file failure; during query it fails the
	// request.
	ErrUnavailable = errors.New("embedding service unavailable")
)

// Embedder turns text into fixed-dimensionality vectors.
// The model itself is an external capability; this interface is the only
// thing the indexing and retrieval core knows about it.
type Embedder interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Client calls an OpenAI-compatible /v1/embeddings endpoint.
type Client struct {
	BaseURL      string
	APIKey       string
	Model        string
	ExpectedSize int // Expected vector size for validation
	client       *http.Client
}

// NewClient creates an embeddings client. expectedSize is the vector
// dimensionality every response is validated against; timeout bounds each
// HTTP call in addition to any caller-supplied context deadline.
func NewClient(baseURL, apiKey, model string, expectedSize int, timeout time.Duration) *Client {
	return &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Model:        model,
		ExpectedSize: expectedSize,
		client:       &http.Client{Timeout: timeout},
	}
}

// embeddingsRequest is the request payload for the embeddings API.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingData is a single embedding in the response.
type embeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// embeddingsResponse is the response from the embeddings API.
type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

// EmbedTexts generates embeddings for the given texts.
// Transport and upstream failures are wrapped in ErrUnavailable; a response
// with the wrong count or dimensionality is an error as well.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.BaseURL)

	body, err := json.Marshal(embeddingsRequest{
		Model: c.Model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(raw))
	}

	var embeddingsResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingsResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingsResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingsResp.Data))
	}

	result := make([][]float32, len(embeddingsResp.Data))
	for i, data := range embeddingsResp.Data {
		if len(data.Embedding) != c.ExpectedSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.ExpectedSize)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}
