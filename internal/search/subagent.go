package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
)

// DefaultSubagentModel is the route alias used for re-ranking when the
// caller does not choose one. Re-ranking wants a fast cheap model.
const DefaultSubagentModel = "small-fast"

const previewChars = 200

// SubagentFilter re-ranks search candidates with a fast LLM. The model
// sees each candidate's source, score, and a short text preview and
// returns the indices worth keeping. Any failure falls back to the
// original ranking, so the filter can only reorder, never lose results
// below max.
type SubagentFilter struct {
	client *llm.Client
	model  string
}

// NewSubagentFilter creates a filter using the given route alias, or
// DefaultSubagentModel when model is empty.
func NewSubagentFilter(client *llm.Client, model string) *SubagentFilter {
	if model == "" {
		model = DefaultSubagentModel
	}
	return &SubagentFilter{client: client, model: model}
}

// Filter selects up to maxResults candidates. With maxResults or fewer
// candidates it returns them unchanged.
func (f *SubagentFilter) Filter(ctx context.Context, query string, candidates []Hit, maxResults int) []Hit {
	if len(candidates) == 0 {
		return []Hit{}
	}
	if len(candidates) <= maxResults {
		return candidates
	}

	messages := llm.SubagentFilterMessages(query, formatCandidates(candidates), len(candidates), maxResults)
	response, err := f.client.Chat(ctx, f.model, messages, llm.ChatOptions{
		Temperature:     0.1,
		MaxOutputTokens: 500,
	})
	if err != nil {
		slog.Warn("subagent filter failed, keeping original ranking", "error", err)
		return candidates[:maxResults]
	}

	indices := parseSelection(response, len(candidates))
	if len(indices) == 0 {
		slog.Warn("subagent filter returned no parseable indices", "response", response)
		return candidates[:maxResults]
	}

	selected := make([]Hit, 0, maxResults)
	for _, i := range indices {
		selected = append(selected, candidates[i])
		if len(selected) == maxResults {
			break
		}
	}
	return selected
}

func formatCandidates(candidates []Hit) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] file: %s\n    score: %.3f\n    content: %s...\n\n",
			i, c.Source, c.Score, truncateRunes(c.Text, previewChars))
	}
	return b.String()
}

// truncateRunes caps s at max runes, never splitting a multibyte
// character the way a byte slice would.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var selectionRe = regexp.MustCompile(`\d+`)

// parseSelection extracts candidate indices from the model's response,
// dropping out-of-range values and duplicates while preserving order.
func parseSelection(response string, count int) []int {
	var indices []int
	seen := make(map[int]bool)
	for _, m := range selectionRe.FindAllString(response, -1) {
		i, err := strconv.Atoi(m)
		if err != nil || i < 0 || i >= count || seen[i] {
			continue
		}
		seen[i] = true
		indices = append(indices, i)
	}
	return indices
}
