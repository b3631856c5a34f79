package cache

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
)

// DefaultSimilarityThreshold is how close a query embedding must be to a
// cached one before the cached answer is reused.
const DefaultSimilarityThreshold = 0.95

// SemanticCache reuses answers for queries that are phrased differently
// but mean the same thing. Entries carry their own embeddings, so the
// search graph is rebuilt in memory on load and only the entry list is
// persisted.
type SemanticCache struct {
	mu        sync.Mutex
	path      string
	embedder  embed.Embedder
	threshold float64
	entries   []semanticEntry
	graph     *hnsw.Graph[uint64]
}

type semanticEntry struct {
	Query    string
	Value    string
	Vector   []float32
	ExpireAt int64
}

// NewSemanticCache opens the semantic cache for one project. Expired
// entries found on disk are purged immediately.
func NewSemanticCache(path string, embedder embed.Embedder, threshold float64) (*SemanticCache, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	c := &SemanticCache{
		path:      path,
		embedder:  embedder,
		threshold: threshold,
		graph:     newCacheGraph(),
	}
	if err := c.load(); err != nil {
		// A broken cache file is not worth failing over: start empty.
		slog.Warn("semantic cache unreadable, starting empty", "path", path, "error", err)
		c.entries = nil
		c.graph = newCacheGraph()
	}
	return c, nil
}

func newCacheGraph() *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return graph
}

func (c *SemanticCache) load() error {
	file, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	var entries []semanticEntry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decode semantic cache: %w", err)
	}

	now := time.Now().Unix()
	kept := entries[:0]
	for _, e := range entries {
		if e.ExpireAt >= now {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	c.rebuildGraph()
	return nil
}

// rebuildGraph reindexes all live entries. Callers hold the mutex.
func (c *SemanticCache) rebuildGraph() {
	c.graph = newCacheGraph()
	for i, e := range c.entries {
		c.graph.Add(hnsw.MakeNode(uint64(i), e.Vector))
	}
}

func (c *SemanticCache) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := c.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create semantic cache: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode semantic cache: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close semantic cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Get returns the cached value for the nearest query above the similarity
// threshold, or ok=false when nothing close enough is live.
func (c *SemanticCache) Get(ctx context.Context, query string) (string, bool, error) {
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return "", false, fmt.Errorf("embed query: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return "", false, nil
	}

	nodes := c.graph.Search(vec, 1)
	if len(nodes) == 0 {
		return "", false, nil
	}
	idx := int(nodes[0].Key)
	if idx >= len(c.entries) {
		return "", false, nil
	}
	entry := c.entries[idx]

	if entry.ExpireAt < time.Now().Unix() {
		return "", false, nil
	}
	// hnsw.CosineDistance is 1 - cos, so this recovers raw cosine. The
	// threshold compares cosine directly, not a rescaled score.
	distance := c.graph.Distance(vec, nodes[0].Value)
	similarity := 1.0 - float64(distance)
	if similarity < c.threshold {
		return "", false, nil
	}
	slog.Debug("semantic cache hit",
		"query", query, "cached_query", entry.Query, "similarity", similarity)
	return entry.Value, true, nil
}

// Set caches a value under the query's embedding.
func (c *SemanticCache) Set(ctx context.Context, query, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := semanticEntry{
		Query:    query,
		Value:    value,
		Vector:   vec,
		ExpireAt: time.Now().Add(ttl).Unix(),
	}
	c.entries = append(c.entries, entry)
	c.graph.Add(hnsw.MakeNode(uint64(len(c.entries)-1), vec))
	return c.save()
}

// Clear drops every entry and removes the cache file.
func (c *SemanticCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.graph = newCacheGraph()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Len returns the number of live entries.
func (c *SemanticCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
