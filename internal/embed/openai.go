package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// ErrDimensionMismatch reports that the provider returned embeddings of
// a different width than configured. Unlike transient batch failures it
// is never papered over with the static fallback: mixing widths would
// corrupt the vector index, so index builds must abort on it.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// OpenAIConfig configures the OpenAI-compatible embedding client.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Texts are
// sent in small batches; a batch that fails after retries falls back to the
// static embedder so indexing always completes, just with weaker vectors
// for the affected chunks. A dimension mismatch is the exception and
// aborts instead, see ErrDimensionMismatch.
type OpenAIEmbedder struct {
	client   *http.Client
	config   OpenAIConfig
	fallback *StaticEmbedder
}

var _ Embedder = (*OpenAIEmbedder)(nil)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.InvalidInput("embedding base URL is empty")
	}
	if cfg.Model == "" {
		return nil, apperrors.InvalidInput("embedding model is empty")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}
	return &OpenAIEmbedder{
		client:   &http.Client{Transport: transport},
		config:   cfg,
		fallback: NewStaticEmbedder(),
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts in provider batches.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := e.embedBatchOnce(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperrors.Wrap(apperrors.CodeCancelled, ctx.Err())
			}
			if errors.Is(err, ErrDimensionMismatch) {
				return nil, err
			}
			slog.Warn("embedding batch failed, using static fallback",
				"model", e.config.Model, "batch_start", start, "error", err)
			vectors, err = e.fallbackBatch(ctx, batch)
			if err != nil {
				return nil, err
			}
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedBatchOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(embeddingRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperrors.Upstream(fmt.Sprintf("embedding endpoint returned %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Upstream("decode embedding response", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, apperrors.Upstream(fmt.Sprintf("embedding count mismatch: sent %d, got %d", len(texts), len(parsed.Data)), nil)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, apperrors.Upstream(fmt.Sprintf("embedding index %d out of range", d.Index), nil)
		}
		if e.config.Dimensions > 0 && len(d.Embedding) != e.config.Dimensions {
			return nil, apperrors.Upstream(fmt.Sprintf(
				"embedding width mismatch: model returned %d, config expects %d",
				len(d.Embedding), e.config.Dimensions), ErrDimensionMismatch)
		}
		vectors[d.Index] = normalizeVector(d.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, apperrors.Upstream(fmt.Sprintf("missing embedding for input %d", i), nil)
		}
	}
	return vectors, nil
}

// fallbackBatch hashes the batch with the static embedder, padded or
// truncated to the configured width so the vector store stays consistent.
func (e *OpenAIEmbedder) fallbackBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.fallback.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if e.config.Dimensions <= 0 || e.config.Dimensions == StaticDimensions {
		return vectors, nil
	}
	resized := make([][]float32, len(vectors))
	for i, v := range vectors {
		out := make([]float32, e.config.Dimensions)
		copy(out, v)
		resized[i] = normalizeVector(out)
	}
	return resized, nil
}

// Dimensions returns the configured embedding width, or the static width
// when no width is configured.
func (e *OpenAIEmbedder) Dimensions() int {
	if e.config.Dimensions > 0 {
		return e.config.Dimensions
	}
	return StaticDimensions
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string { return e.config.Model }

// Available reports whether the endpoint is configured.
func (e *OpenAIEmbedder) Available(_ context.Context) bool {
	return e.config.BaseURL != ""
}

// Close releases idle connections.
func (e *OpenAIEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// resolveEnv reads an environment variable named by key, returning empty
// when key itself is empty.
func resolveEnv(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}
