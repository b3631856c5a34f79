package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldUseIterative(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		taskType string
		want     bool
	}{
		{"refactor task", "rename the handler", "refactor", true},
		{"reason task", "why does this leak", "reason", true},
		{"implement task", "add retries", "implement", true},
		{"short lookup", "find the config loader", "lookup", false},
		{"long query", "where is the authentication middleware wired into the request pipeline", "lookup", true},
		{"two connectives", "caching and eviction and ttl", "lookup", true},
		{"one connective", "caching and eviction", "lookup", false},
		{"cjk connectives", "快取和逐出和過期", "lookup", true},
		{"connective inside word", "order android vendor", "lookup", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldUseIterative(tt.query, tt.taskType))
		})
	}
}

func TestIterativeSearchStopsWithoutExpansion(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	searcher := NewSearcher(e, nil)
	it := NewIterativeSearcher(searcher, brokenLLMClient(t), "")

	// Expansion fails fast, so only the first round runs.
	hits, err := it.Search(context.Background(), "start server", IterativeOptions{
		MaxIterations: 3,
		KPerIteration: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "server.go:1", hits[0].Source)
	assert.LessOrEqual(t, len(hits), 6)
}

func TestIterativeSearchMergesExpandedRounds(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	searcher := NewSearcher(e, nil)
	it := NewIterativeSearcher(searcher, testLLMClient(t, "load config file"), "small-fast")

	hits, err := it.Search(context.Background(), "start server", IterativeOptions{
		MaxIterations:   2,
		MinQualityScore: 1.1, // unreachable, force both rounds
		MinResults:      1,
		KPerIteration:   2,
	})
	require.NoError(t, err)

	sources := map[string]bool{}
	for _, h := range hits {
		assert.False(t, sources[h.Source], "duplicate source %s", h.Source)
		sources[h.Source] = true
	}
	assert.True(t, sources["server.go:1"])
	assert.True(t, sources["config.go:1"])
	assert.LessOrEqual(t, len(hits), 4)
}

func TestIterativeSearchStopsOnQuality(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	searcher := NewSearcher(e, nil)
	// Expansion would repeat forever; quality stop must fire first.
	it := NewIterativeSearcher(searcher, testLLMClient(t, "different query each time not"), "small-fast")

	hits, err := it.Search(context.Background(), "start server", IterativeOptions{
		MaxIterations:   3,
		MinQualityScore: 0.01,
		MinResults:      1,
		KPerIteration:   2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}
