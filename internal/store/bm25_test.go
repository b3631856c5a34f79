package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{Text: "func ParseConfig(path string) (*Config, error) { return loadYAML(path) }", Source: "config.go:1", ChunkingMethod: "code", Filetype: ".go"},
		{Text: "func StartServer(addr string) error { return http.ListenAndServe(addr, nil) }", Source: "server.go:1", ChunkingMethod: "code", Filetype: ".go"},
		{Text: "The configuration file lives in the data directory and uses YAML syntax.", Source: "README.md:chunk1", ChunkingMethod: "doc", Filetype: ".md"},
	}
}

func newTestBackends(t *testing.T) map[string]BM25Index {
	t.Helper()
	sqliteIdx, err := NewSQLiteBM25(filepath.Join(t.TempDir(), "corpus.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteIdx.Close() })

	bleveIdx, err := NewBleveBM25("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bleveIdx.Close() })

	return map[string]BM25Index{
		"sqlite": sqliteIdx,
		"bleve":  bleveIdx,
		"naive":  NewNaiveBM25(),
	}
}

func TestBM25RebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	for name, idx := range newTestBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Rebuild(ctx, testChunks()))

			n, err := idx.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			results, err := idx.Search(ctx, "parse config", 10)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, 0, results[0].ChunkIndex)
			for _, r := range results {
				assert.GreaterOrEqual(t, r.ChunkIndex, 0)
				assert.Less(t, r.ChunkIndex, 3)
			}
		})
	}
}

func TestBM25SearchZeroK(t *testing.T) {
	ctx := context.Background()
	for name, idx := range newTestBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Rebuild(ctx, testChunks()))
			results, err := idx.Search(ctx, "config", 0)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestBM25SearchEmptyQuery(t *testing.T) {
	ctx := context.Background()
	for name, idx := range newTestBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Rebuild(ctx, testChunks()))
			results, err := idx.Search(ctx, "   ", 5)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestBM25RebuildReplaces(t *testing.T) {
	ctx := context.Background()
	for name, idx := range newTestBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Rebuild(ctx, testChunks()))
			require.NoError(t, idx.Rebuild(ctx, []chunk.Chunk{
				{Text: "completely different content about websockets", Source: "ws.go:1"},
			}))

			n, err := idx.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			results, err := idx.Search(ctx, "websockets", 5)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, 0, results[0].ChunkIndex)
		})
	}
}

func TestSQLiteBM25HostileQuery(t *testing.T) {
	ctx := context.Background()
	idx, err := NewSQLiteBM25(filepath.Join(t.TempDir(), "corpus.sqlite"))
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	require.NoError(t, idx.Rebuild(ctx, testChunks()))

	// FTS5 operators in user input must not error out.
	_, err = idx.Search(ctx, `config AND NOT ("`, 5)
	assert.NoError(t, err)
}

func TestSQLiteBM25Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corpus.sqlite")

	idx, err := NewSQLiteBM25(path)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx, testChunks()))
	require.NoError(t, idx.Close())

	reopened, err := NewSQLiteBM25(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNewBM25IndexFallsBackToNaive(t *testing.T) {
	idx, err := NewBM25Index("demo", "no-such-backend")
	require.NoError(t, err)
	_, ok := idx.(*NaiveBM25)
	assert.True(t, ok)
}
