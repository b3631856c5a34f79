package search

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
)

// maxSubQueries caps how many aspects one query decomposes into.
const maxSubQueries = 5

// subQueryConcurrency bounds parallel sub-query searches. Each search
// may hit the embedding API and the re-ranking model.
const subQueryConcurrency = 3

// SubQueryStats records one sub-query's contribution to an accumulated
// search.
type SubQueryStats struct {
	Query string `json:"query"`
	Found int    `json:"found"`
	New   int    `json:"new"`
	Error string `json:"error,omitempty"`
}

// AccumulatedResult is the outcome of a multi-aspect search.
type AccumulatedResult struct {
	Hits       []Hit           `json:"hits"`
	SubQueries []string        `json:"sub_queries"`
	Metadata   []SubQueryStats `json:"search_metadata"`
}

// Accumulator fans a complex query out into aspect sub-queries and
// accumulates deduplicated evidence across them.
type Accumulator struct {
	searcher *Searcher
	client   *llm.Client
	model    string
}

// NewAccumulator creates an accumulator. The model alias drives query
// decomposition; empty selects DefaultSubagentModel.
func NewAccumulator(searcher *Searcher, client *llm.Client, model string) *Accumulator {
	if model == "" {
		model = DefaultSubagentModel
	}
	return &Accumulator{searcher: searcher, client: client, model: model}
}

// Decompose splits a complex query into 3-5 aspect sub-queries via the
// LLM. On any failure the original query is the only sub-query.
func (a *Accumulator) Decompose(ctx context.Context, query string) []string {
	response, err := a.client.Chat(ctx, a.model, llm.DecompositionMessages(query), llm.ChatOptions{
		Temperature:     0.3,
		MaxOutputTokens: 300,
	})
	if err != nil {
		slog.Warn("query decomposition failed", "error", err)
		return []string{query}
	}

	var subQueries []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 5 {
			continue
		}
		cleaned := strings.TrimLeft(line, "0123456789.)-* ")
		if cleaned != "" {
			subQueries = append(subQueries, cleaned)
		}
	}
	if len(subQueries) == 0 {
		return []string{query}
	}
	slog.Info("query decomposed", "sub_queries", len(subQueries))
	return truncateStrings(subQueries, maxSubQueries)
}

// Search executes every sub-query and accumulates hits deduplicated by
// source. Each kept hit is tagged with its originating sub-query and
// 1-based round. With no subQueries given, the query is decomposed
// first. Sub-queries run concurrently but merge in sub-query order, so
// the result is deterministic for deterministic searches.
func (a *Accumulator) Search(ctx context.Context, query string, subQueries []string, kPerQuery int) (*AccumulatedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.InvalidInput("query must not be empty")
	}
	if kPerQuery <= 0 {
		kPerQuery = 5
	}
	if len(subQueries) == 0 {
		subQueries = a.Decompose(ctx, query)
	}

	perQuery := make([][]Hit, len(subQueries))
	perQueryErr := make([]error, len(subQueries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(subQueryConcurrency)
	for i, subQ := range subQueries {
		g.Go(func() error {
			hits, err := a.searcher.Search(gctx, subQ, kPerQuery)
			if err != nil {
				perQueryErr[i] = err
				return nil
			}
			perQuery[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	result := &AccumulatedResult{SubQueries: subQueries}
	seen := make(map[string]bool)
	for i, subQ := range subQueries {
		if err := perQueryErr[i]; err != nil {
			slog.Warn("sub-query search failed", "query", subQ, "error", err)
			result.Metadata = append(result.Metadata, SubQueryStats{Query: subQ, Error: err.Error()})
			continue
		}
		fresh := 0
		for _, h := range perQuery[i] {
			if seen[h.Source] {
				continue
			}
			seen[h.Source] = true
			h.SubQuery = subQ
			h.Round = i + 1
			result.Hits = append(result.Hits, h)
			fresh++
		}
		result.Metadata = append(result.Metadata, SubQueryStats{
			Query: subQ, Found: len(perQuery[i]), New: fresh,
		})
	}

	sortHits(result.Hits)
	return result, nil
}

func truncateStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
