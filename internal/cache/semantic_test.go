package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
)

func newTestSemanticCache(t *testing.T, threshold float64) *SemanticCache {
	t.Helper()
	c, err := NewSemanticCache(
		filepath.Join(t.TempDir(), "semantic_cache_entries_test.gob"),
		embed.NewStaticEmbedder(), threshold)
	require.NoError(t, err)
	return c
}

func TestSemanticCacheExactQueryHits(t *testing.T) {
	ctx := context.Background()
	c := newTestSemanticCache(t, 0.95)

	require.NoError(t, c.Set(ctx, "how does the auth middleware work", "cached answer", time.Hour))

	// identical query embeds identically, similarity 1.0
	v, ok, err := c.Get(ctx, "how does the auth middleware work")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached answer", v)
}

func TestSemanticCacheRejectsUnrelatedQuery(t *testing.T) {
	ctx := context.Background()
	c := newTestSemanticCache(t, 0.95)

	require.NoError(t, c.Set(ctx, "how does the auth middleware work", "cached answer", time.Hour))

	_, ok, err := c.Get(ctx, "websocket reconnect backoff strategy")
	require.NoError(t, err)
	assert.False(t, ok)
}

// fixedEmbedder returns a preset unit vector per query so tests can pin
// the exact cosine between a stored and an incoming query.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return f.vectors[text], nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = f.Embed(ctx, text)
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int                { return 2 }
func (f *fixedEmbedder) ModelName() string              { return "fixed-test" }
func (f *fixedEmbedder) Available(context.Context) bool { return true }
func (f *fixedEmbedder) Close() error                   { return nil }

func TestSemanticCacheThresholdComparesCosine(t *testing.T) {
	ctx := context.Background()
	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"stored": {1, 0},
		"near":   {0.96, 0.28},   // cosine 0.96 against stored
		"far":    {0.91, 0.4146}, // cosine 0.91 against stored
	}}
	c, err := NewSemanticCache(
		filepath.Join(t.TempDir(), "semantic_cache_entries_test.gob"), embedder, 0.95)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "stored", "cached answer", time.Hour))

	v, ok, err := c.Get(ctx, "near")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached answer", v)

	// cosine 0.91 sits below the 0.95 threshold and must miss, even
	// though a rescaled (1+cos)/2 score would be 0.955.
	_, ok, err = c.Get(ctx, "far")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSemanticCachePersistsAndPurgesExpired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "semantic_cache_entries_test.gob")
	embedder := embed.NewStaticEmbedder()

	c, err := NewSemanticCache(path, embedder, 0.95)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "live entry", "live", time.Hour))
	require.NoError(t, c.Set(ctx, "dead entry", "dead", time.Millisecond))

	time.Sleep(1100 * time.Millisecond)

	reopened, err := NewSemanticCache(path, embedder, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	v, ok, err := reopened.Get(ctx, "live entry")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "live", v)
}

func TestSemanticCacheClear(t *testing.T) {
	ctx := context.Background()
	c := newTestSemanticCache(t, 0.95)

	require.NoError(t, c.Set(ctx, "query", "value", time.Hour))
	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())

	_, ok, err := c.Get(ctx, "query")
	require.NoError(t, err)
	assert.False(t, ok)
}
