// Package store is the persistence layer for indexed data: the BM25
// corpus, the dense vector index, the chunk list, per-project index
// state, and the project registry.
package store

import (
	"context"
	"fmt"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

// BM25Result is a single lexical search result. ChunkIndex refers to a
// position in the chunk list the index was last rebuilt from.
type BM25Result struct {
	ChunkIndex int
	Score      float64
}

// BM25Index serves lexical scoring over the tokenized corpus.
// The index is rebuilt wholesale from the current chunk list on every
// incremental update; no partial FTS updates are assumed.
type BM25Index interface {
	// Rebuild replaces the entire corpus with the given chunk list.
	Rebuild(ctx context.Context, chunks []chunk.Chunk) error

	// Search returns up to k chunks matching the query, best first.
	Search(ctx context.Context, query string, k int) ([]BM25Result, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit is a single dense search result.
type VectorHit struct {
	Chunk chunk.Chunk
	Score float64
}

// ErrDimensionMismatch indicates embedding width differs from the index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf(
		"embedding dimension mismatch: index expects %d, provider returned %d (update embeddings.dimensions in config.yaml and rebuild)",
		e.Expected, e.Got)
}
