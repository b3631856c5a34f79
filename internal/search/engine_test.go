package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{Text: "func StartServer(addr string) error { return http.ListenAndServe(addr, mux) }", Source: "server.go:1"},
		{Text: "func StopServer(ctx context.Context) error { return srv.Shutdown(ctx) }", Source: "server.go:21"},
		{Text: "func LoadConfig(path string) (*Config, error) { data, err := os.ReadFile(path) }", Source: "config.go:1"},
		{Text: "func ParseFlags() Options { flag.Parse(); return opts }", Source: "flags.go:1"},
		{Text: "type Cache struct { entries map[string]string }", Source: "cache.go:1"},
	}
}

func buildEngine(t *testing.T, chunks []chunk.Chunk, withVectors bool) *Engine {
	t.Helper()
	t.Setenv("AUGMENT_DB_DIR", t.TempDir())
	ctx := context.Background()
	project := store.Project{ID: "ab12cd34", Name: "searchtest", Root: t.TempDir()}

	require.NoError(t, store.SaveChunks(store.ChunksPath(project.Name), chunks))

	emb := embed.NewStaticEmbedder()
	if withVectors {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vectors, err := emb.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		vs := store.NewVectorStore(emb.Dimensions())
		require.NoError(t, vs.Build(ctx, chunks, vectors))
		require.NoError(t, vs.Save(store.VectorIndexPath(project.Name)))
		require.NoError(t, vs.Close())
	}

	e, err := Open(ctx, project, config.NewConfig(), emb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestHybridSearchEmptyQuery(t *testing.T) {
	e := buildEngine(t, testChunks(), true)

	_, err := e.HybridSearch(context.Background(), "  ", 8, 0.5, 0.5)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestHybridSearchZeroK(t *testing.T) {
	e := buildEngine(t, testChunks(), true)

	hits, err := e.HybridSearch(context.Background(), "server", 0, 0.5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHybridSearchFindsRelevant(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	assert.True(t, e.HasVectors())

	hits, err := e.HybridSearch(context.Background(), "start server listen", 3, 0.5, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "server.go:1", hits[0].Source)
	for _, h := range hits {
		assert.LessOrEqual(t, h.Score, 1.0)
		assert.GreaterOrEqual(t, h.Score, 0.0)
	}
}

func TestHybridSearchDeterministic(t *testing.T) {
	e := buildEngine(t, testChunks(), true)

	first, err := e.HybridSearch(context.Background(), "load config file", 5, 0.5, 0.5)
	require.NoError(t, err)
	second, err := e.HybridSearch(context.Background(), "load config file", 5, 0.5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHybridSearchWithoutVectorIndex(t *testing.T) {
	e := buildEngine(t, testChunks(), false)
	assert.False(t, e.HasVectors())

	hits, err := e.HybridSearch(context.Background(), "http mux", 3, 0.5, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "server.go", chunk.FileKey(hits[0].Source))
}

func TestHybridSearchPerFileCap(t *testing.T) {
	var chunks []chunk.Chunk
	for i := 0; i < 6; i++ {
		chunks = append(chunks, chunk.Chunk{
			Text:   fmt.Sprintf("func HandleRequest%d(w http.ResponseWriter, r *http.Request) {}", i),
			Source: fmt.Sprintf("handlers.go:%d", i*40+1),
		})
	}
	chunks = append(chunks, chunk.Chunk{Text: "func HandleSignal(sig os.Signal) {}", Source: "signals.go:1"})
	e := buildEngine(t, chunks, true)

	hits, err := e.HybridSearch(context.Background(), "handle request", 6, 0.5, 0.5)
	require.NoError(t, err)

	perFile := map[string]int{}
	for _, h := range hits {
		perFile[chunk.FileKey(h.Source)]++
	}
	assert.LessOrEqual(t, perFile["handlers.go"], 2)
}

func TestHybridSearchEmptyIndex(t *testing.T) {
	e := buildEngine(t, nil, false)

	hits, err := e.HybridSearch(context.Background(), "anything", 5, 0.5, 0.5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNormalizeScores(t *testing.T) {
	hits := []Hit{{Score: 4}, {Score: 2}, {Score: 0}}
	normalizeScores(hits)
	assert.Equal(t, []Hit{{Score: 1}, {Score: 0.5}, {Score: 0}}, hits)

	zeros := []Hit{{Score: 0}, {Score: 0}}
	normalizeScores(zeros)
	assert.Equal(t, []Hit{{Score: 0}, {Score: 0}}, zeros)
}

func TestDedupeByFile(t *testing.T) {
	hits := []Hit{
		{Source: "a.go:1", Score: 0.9},
		{Source: "a.go:41", Score: 0.8},
		{Source: "a.go:81", Score: 0.7},
		{Source: "b.go:1", Score: 0.6},
	}
	kept := dedupeByFile(hits, 2)
	require.Len(t, kept, 3)
	assert.Equal(t, "a.go:1", kept[0].Source)
	assert.Equal(t, "a.go:41", kept[1].Source)
	assert.Equal(t, "b.go:1", kept[2].Source)
}

func TestSortHitsTieBreak(t *testing.T) {
	hits := []Hit{
		{Source: "b.go:1", Score: 0.5},
		{Source: "a.go:1", Score: 0.5},
		{Source: "c.go:1", Score: 0.9},
	}
	sortHits(hits)
	assert.Equal(t, "c.go:1", hits[0].Source)
	assert.Equal(t, "a.go:1", hits[1].Source)
	assert.Equal(t, "b.go:1", hits[2].Source)
}
