package search

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
)

// IterativeOptions tunes multi-round retrieval.
type IterativeOptions struct {
	// MaxIterations bounds the number of search rounds.
	MaxIterations int

	// MinQualityScore is the score a hit needs to count toward the
	// early-stop quota.
	MinQualityScore float64

	// MinResults is how many quality hits stop the loop early.
	MinResults int

	// KPerIteration is the per-round result count. The final result is
	// capped at twice this value.
	KPerIteration int
}

func (o IterativeOptions) withDefaults() IterativeOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 3
	}
	if o.MinQualityScore <= 0 {
		o.MinQualityScore = 0.7
	}
	if o.MinResults <= 0 {
		o.MinResults = 5
	}
	if o.KPerIteration <= 0 {
		o.KPerIteration = 8
	}
	return o
}

// IterativeSearcher runs multi-round retrieval with LLM query
// expansion, mimicking an agent that re-searches with different terms
// until results look sufficient.
type IterativeSearcher struct {
	searcher *Searcher
	client   *llm.Client
	model    string
}

// NewIterativeSearcher creates an iterative searcher. The model alias
// drives query expansion; empty selects DefaultSubagentModel.
func NewIterativeSearcher(searcher *Searcher, client *llm.Client, model string) *IterativeSearcher {
	if model == "" {
		model = DefaultSubagentModel
	}
	return &IterativeSearcher{searcher: searcher, client: client, model: model}
}

// Search runs up to MaxIterations rounds. Each round searches with the
// current query and merges new hits deduplicated by source. The loop
// stops early once MinResults hits reach MinQualityScore, or when query
// expansion yields nothing new. Returns up to 2x KPerIteration hits,
// best first.
func (it *IterativeSearcher) Search(ctx context.Context, query string, opts IterativeOptions) ([]Hit, error) {
	opts = opts.withDefaults()

	var all []Hit
	seen := make(map[string]bool)
	current := query

	for iteration := 0; iteration < opts.MaxIterations; iteration++ {
		slog.Info("iterative search round",
			"iteration", iteration+1, "max", opts.MaxIterations, "query", current)

		hits, err := it.searcher.Search(ctx, current, opts.KPerIteration)
		if err != nil {
			if len(all) > 0 {
				slog.Warn("iterative round failed, returning accumulated hits", "error", err)
				break
			}
			return nil, err
		}

		fresh := 0
		for _, h := range hits {
			if seen[h.Source] {
				continue
			}
			seen[h.Source] = true
			all = append(all, h)
			fresh++
		}
		slog.Debug("iterative round merged", "found", len(hits), "new", fresh)

		quality := 0
		for _, h := range all {
			if h.Score >= opts.MinQualityScore {
				quality++
			}
		}
		if quality >= opts.MinResults {
			slog.Info("iterative search satisfied", "quality_hits", quality)
			break
		}

		if iteration < opts.MaxIterations-1 {
			expanded := it.expandQuery(ctx, query, hits, iteration+1)
			if expanded == "" || expanded == query {
				slog.Info("iterative search stopped, no new expansion")
				break
			}
			current = expanded
		}
	}

	sortHits(all)
	return truncate(all, opts.KPerIteration*2), nil
}

// expandQuery asks the LLM for one alternative phrasing. Empty output,
// output over 200 chars, or any error return the original query, which
// the caller treats as a stop signal.
func (it *IterativeSearcher) expandQuery(ctx context.Context, original string, results []Hit, iteration int) string {
	var topSources []string
	for _, h := range truncate(results, 3) {
		topSources = append(topSources, h.Source)
	}

	messages := llm.QueryExpansionMessages(original, topSources, iteration)
	response, err := it.client.Chat(ctx, it.model, messages, llm.ChatOptions{
		Temperature:     0.3,
		MaxOutputTokens: 100,
	})
	if err != nil {
		slog.Warn("query expansion failed", "error", err)
		return original
	}

	expanded := strings.TrimSpace(response)
	if expanded == "" || len(expanded) > 200 {
		slog.Warn("discarding invalid query expansion", "expansion", expanded)
		return original
	}
	slog.Info("query expanded", "from", original, "to", expanded)
	return expanded
}

var englishConnectiveRe = regexp.MustCompile(`(?i)\b(and|or)\b`)

// RE2 word boundaries are ASCII-only, so the CJK connectives are
// counted as plain substrings.
var cjkConnectives = []string{"以及", "和", "或"}

// ShouldUseIterative reports whether a query warrants multi-round
// retrieval: reasoning-class tasks, long queries, or queries chaining
// two or more concepts with connectives.
func ShouldUseIterative(query, taskType string) bool {
	switch taskType {
	case "refactor", "reason", "implement":
		return true
	}
	if utf8.RuneCountInString(query) > 50 {
		return true
	}
	connectives := len(englishConnectiveRe.FindAllString(query, -1))
	for _, c := range cjkConnectives {
		connectives += strings.Count(query, c)
	}
	return connectives >= 2
}
