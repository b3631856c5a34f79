package embed

import (
	"context"
	"math"
	"time"
)

const (
	// StaticDimensions is the embedding width of the hash-based embedder.
	StaticDimensions = 256

	// DefaultBatchSize is how many texts go into one provider request.
	DefaultBatchSize = 10

	// DefaultTimeout bounds a single provider request.
	DefaultTimeout = 60 * time.Second
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one per input
	// and in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Zero vectors pass
// through unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
