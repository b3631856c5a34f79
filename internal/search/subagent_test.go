package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
	"github.com/zoonderkins/augment-lite-mcp/internal/route"
)

// testLLMClient returns a client whose "small-fast" route answers every
// chat with the canned response.
func testLLMClient(t *testing.T, response string) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": response}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("SEARCH_TEST_BASE_URL", srv.URL)
	t.Setenv("SEARCH_TEST_API_KEY", "test-key")
	return llm.NewClient(searchTestTable())
}

// brokenLLMClient returns a client whose provider has no base URL
// configured, so every chat fails fast.
func brokenLLMClient(t *testing.T) *llm.Client {
	t.Helper()
	t.Setenv("SEARCH_TEST_BASE_URL", "")
	return llm.NewClient(searchTestTable())
}

func searchTestTable() *route.Table {
	return &route.Table{
		Routes: map[string]route.Route{
			"small-fast": {Model: "test-model", MaxOutputTokens: 2000},
		},
		Providers: map[string]route.Provider{
			"test-model": {
				Type:       "openai-compatible",
				BaseURLEnv: "SEARCH_TEST_BASE_URL",
				APIKeyEnv:  "SEARCH_TEST_API_KEY",
				ModelID:    "test/model",
			},
		},
	}
}

func candidateHits(n int) []Hit {
	hits := make([]Hit, n)
	for i := range hits {
		hits[i] = Hit{
			Text:   "candidate body",
			Source: string(rune('a'+i)) + ".go:1",
			Score:  1.0 - float64(i)*0.1,
		}
	}
	return hits
}

func TestSubagentFilterFewCandidates(t *testing.T) {
	f := NewSubagentFilter(brokenLLMClient(t), "")

	candidates := candidateHits(3)
	assert.Equal(t, candidates, f.Filter(context.Background(), "query", candidates, 5))
	assert.Empty(t, f.Filter(context.Background(), "query", nil, 5))
}

func TestSubagentFilterSelectsIndices(t *testing.T) {
	f := NewSubagentFilter(testLLMClient(t, "3, 0, 1"), "small-fast")

	candidates := candidateHits(6)
	selected := f.Filter(context.Background(), "query", candidates, 2)
	require.Len(t, selected, 2)
	assert.Equal(t, candidates[3].Source, selected[0].Source)
	assert.Equal(t, candidates[0].Source, selected[1].Source)
}

func TestSubagentFilterFallbackOnError(t *testing.T) {
	f := NewSubagentFilter(brokenLLMClient(t), "small-fast")

	candidates := candidateHits(6)
	selected := f.Filter(context.Background(), "query", candidates, 3)
	assert.Equal(t, candidates[:3], selected)
}

func TestSubagentFilterFallbackOnUnparseable(t *testing.T) {
	f := NewSubagentFilter(testLLMClient(t, "none of these look relevant"), "small-fast")

	candidates := candidateHits(6)
	selected := f.Filter(context.Background(), "query", candidates, 3)
	assert.Equal(t, candidates[:3], selected)
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name     string
		response string
		count    int
		want     []int
	}{
		{"comma separated", "2, 0, 1", 5, []int{2, 0, 1}},
		{"prose wrapped", "The best candidates are 1 and 4.", 5, []int{1, 4}},
		{"out of range dropped", "3, 9, 1", 4, []int{3, 1}},
		{"duplicates dropped", "2, 2, 0", 5, []int{2, 0}},
		{"no numbers", "none", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSelection(tt.response, tt.count))
		})
	}
}

func TestFormatCandidatesKeepsMultibyteRunesIntact(t *testing.T) {
	// 3 bytes per rune, so a byte-index cut at previewChars would land
	// mid-character and emit invalid UTF-8
	text := strings.Repeat("界", previewChars)
	out := formatCandidates([]Hit{{Source: "docs/intro.md:1", Score: 1, Text: text}})

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("界", previewChars)+"...")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "abc", truncateRunes("abcdef", 3))
	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "日本", truncateRunes("日本語テキスト", 2))
}
