package store

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

var naiveTokenRegex = regexp.MustCompile(`[\w#@/\.\-]+`)

// NaiveBM25 is the degraded in-memory fallback used when neither the
// sqlite nor the bleve backend can be opened. It scores a chunk by the
// number of distinct query tokens it contains.
type NaiveBM25 struct {
	mu     sync.RWMutex
	tokens []map[string]struct{}
}

// NewNaiveBM25 returns an empty in-memory index.
func NewNaiveBM25() *NaiveBM25 {
	return &NaiveBM25{}
}

func naiveTokenize(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range naiveTokenRegex.FindAllString(strings.ToLower(text), -1) {
		set[t] = struct{}{}
	}
	return set
}

// Rebuild replaces the index contents with the given chunk list.
func (n *NaiveBM25) Rebuild(ctx context.Context, chunks []chunk.Chunk) error {
	tokens := make([]map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		tokens[i] = naiveTokenize(c.Text)
	}

	n.mu.Lock()
	n.tokens = tokens
	n.mu.Unlock()
	return nil
}

// Search returns up to k chunk positions ordered by matched token count.
// Ties keep list order so results stay deterministic.
func (n *NaiveBM25) Search(ctx context.Context, query string, k int) ([]BM25Result, error) {
	if k <= 0 {
		return nil, nil
	}
	queryTokens := naiveTokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	var results []BM25Result
	for i, chunkTokens := range n.tokens {
		matched := 0
		for t := range queryTokens {
			if _, ok := chunkTokens[t]; ok {
				matched++
			}
		}
		if matched > 0 {
			results = append(results, BM25Result{ChunkIndex: i, Score: float64(matched)})
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count reports the number of indexed chunks.
func (n *NaiveBM25) Count(ctx context.Context) (int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.tokens), nil
}

// Close is a no-op for the in-memory index.
func (n *NaiveBM25) Close() error { return nil }

var _ BM25Index = (*NaiveBM25)(nil)
