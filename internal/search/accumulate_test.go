package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

func TestDecomposeFallsBackToQuery(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	a := NewAccumulator(NewSearcher(e, nil), brokenLLMClient(t), "")

	subQueries := a.Decompose(context.Background(), "how does startup work")
	assert.Equal(t, []string{"how does startup work"}, subQueries)
}

func TestDecomposeParsesLines(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	response := "1. server startup sequence\n" +
		"2) config file loading\n" +
		"- cache eviction policy\n" +
		"ok\n" +
		"signal handling on shutdown\n" +
		"flag parsing entry point\n" +
		"a sixth aspect that is over the cap\n"
	a := NewAccumulator(NewSearcher(e, nil), testLLMClient(t, response), "small-fast")

	subQueries := a.Decompose(context.Background(), "explain the lifecycle")
	require.Len(t, subQueries, 5)
	assert.Equal(t, "server startup sequence", subQueries[0])
	assert.Equal(t, "config file loading", subQueries[1])
	assert.Equal(t, "cache eviction policy", subQueries[2])
}

func TestAccumulatedSearchTagsAndDedups(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	a := NewAccumulator(NewSearcher(e, nil), brokenLLMClient(t), "")

	subQueries := []string{"http mux", "load config file"}
	result, err := a.Search(context.Background(), "startup and config", subQueries, 3)
	require.NoError(t, err)

	assert.Equal(t, subQueries, result.SubQueries)
	require.Len(t, result.Metadata, 2)
	assert.Equal(t, "http mux", result.Metadata[0].Query)
	assert.Empty(t, result.Metadata[0].Error)

	seen := map[string]bool{}
	for _, h := range result.Hits {
		assert.False(t, seen[h.Source], "duplicate source %s", h.Source)
		seen[h.Source] = true
		assert.NotEmpty(t, h.SubQuery)
		assert.Contains(t, []int{1, 2}, h.Round)
	}
	assert.True(t, seen["server.go:1"])
	assert.True(t, seen["config.go:1"])

	for i := 1; i < len(result.Hits); i++ {
		assert.GreaterOrEqual(t, result.Hits[i-1].Score, result.Hits[i].Score)
	}
}

func TestAccumulatedSearchDeterministic(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	a := NewAccumulator(NewSearcher(e, nil), brokenLLMClient(t), "")

	subQueries := []string{"http mux", "load config file", "cache entries"}
	first, err := a.Search(context.Background(), "pipeline overview", subQueries, 2)
	require.NoError(t, err)
	second, err := a.Search(context.Background(), "pipeline overview", subQueries, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAccumulatedSearchEmptyQuery(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	a := NewAccumulator(NewSearcher(e, nil), brokenLLMClient(t), "")

	_, err := a.Search(context.Background(), "", nil, 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}
