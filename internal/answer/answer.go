// Package answer orchestrates grounded answer generation: retrieve,
// gate on evidence quality, prompt, route, cache, and call the model.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zoonderkins/augment-lite-mcp/internal/cache"
	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/guard"
	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
	"github.com/zoonderkins/augment-lite-mcp/internal/route"
	"github.com/zoonderkins/augment-lite-mcp/internal/search"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

const (
	// retrieveK is how many hits the single-query path retrieves before
	// taking the evidence head.
	retrieveK = 8

	// evidenceK is the evidence size for single-query answers.
	evidenceK = 5

	// accumulatedEvidenceK is the evidence size for accumulated answers,
	// larger because the pool spans several sub-queries.
	accumulatedEvidenceK = 12

	// answerMinDiversity requires evidence from at least two files
	// before an answer is attempted.
	answerMinDiversity = 2

	// DefaultTemperature is used when the caller does not set one.
	DefaultTemperature = 0.2
)

// Response is the outcome of answer generation.
type Response struct {
	OK            bool                   `json:"ok"`
	Answer        string                 `json:"answer"`
	Citations     []string               `json:"citations"`
	Cached        bool                   `json:"cached"`
	Abstained     bool                   `json:"abstained,omitempty"`
	Model         string                 `json:"model,omitempty"`
	SubQueries    []string               `json:"sub_queries,omitempty"`
	Metadata      []search.SubQueryStats `json:"search_metadata,omitempty"`
	EvidenceCount int                    `json:"evidence_count,omitempty"`
}

// cachedAnswer is the payload stored in the response caches.
type cachedAnswer struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Orchestrator wires retrieval, guardrails, routing, caching, and the
// model client for one project.
type Orchestrator struct {
	cfg         *config.Config
	table       *route.Table
	client      *llm.Client
	searcher    *search.Searcher
	iterative   *search.IterativeSearcher
	accumulator *search.Accumulator
	exact       *cache.ExactCache
	semantic    *cache.SemanticCache
	project     store.Project
}

// Options carries the orchestrator's collaborators. Iterative,
// Accumulator, and the caches are optional; missing pieces disable the
// corresponding behavior.
type Options struct {
	Config      *config.Config
	Table       *route.Table
	Client      *llm.Client
	Searcher    *search.Searcher
	Iterative   *search.IterativeSearcher
	Accumulator *search.Accumulator
	Exact       *cache.ExactCache
	Semantic    *cache.SemanticCache
	Project     store.Project
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		cfg:         opts.Config,
		table:       opts.Table,
		client:      opts.Client,
		searcher:    opts.Searcher,
		iterative:   opts.Iterative,
		accumulator: opts.Accumulator,
		exact:       opts.Exact,
		semantic:    opts.Semantic,
		project:     opts.Project,
	}
}

// Generate answers a query from retrieved evidence. Complex queries take
// the iterative retrieval path; all answers pass the abstain gate first.
func (o *Orchestrator) Generate(ctx context.Context, query, taskType, routeOverride string, temperature float64) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.InvalidInput("query must not be empty")
	}
	if taskType == "" {
		taskType = "lookup"
	}
	if routeOverride == "" {
		routeOverride = "auto"
	}

	var hits []search.Hit
	var err error
	if o.iterative != nil && search.ShouldUseIterative(query, taskType) {
		slog.Info("answer using iterative retrieval", "query", query)
		hits, err = o.iterative.Search(ctx, query, search.IterativeOptions{KPerIteration: retrieveK})
	} else {
		hits, err = o.searcher.Search(ctx, query, retrieveK)
	}
	if err != nil {
		return nil, err
	}

	evidence := head(hits, evidenceK)
	if resp := o.abstainResponse(query, evidence, nil); resp != nil {
		return resp, nil
	}

	messages := llm.AnswerMessages(llm.AnswerSystemPrompt, query, evidenceBlock(evidence, false))
	tokens := llm.EstimateTokens(messages)
	sel := o.table.Select(taskType, tokens, routeOverride)

	extra := map[string]string{
		"temperature": formatTemperature(temperature),
		"task":        taskType,
		"route":       routeOverride,
		"token_est":   strconv.Itoa(tokens),
	}
	key := cache.MakeKey(sel.Model, messages, extra, fingerprints(evidence))
	if resp := o.cacheLookup(ctx, key, query, sel.Model); resp != nil {
		return resp, nil
	}

	answer, model, err := o.chat(ctx, sel, messages, temperature, routeOverride)
	if err != nil {
		return nil, err
	}

	payload := cachedAnswer{Answer: answer, Citations: sources(evidence)}
	o.cacheStore(ctx, key, query, payload)

	return &Response{
		OK:        true,
		Answer:    answer,
		Citations: payload.Citations,
		Model:     model,
	}, nil
}

// Accumulated answers a complex query from a multi-aspect evidence pool.
// The sectioned system prompt asks the model to cover every aspect and
// name what is missing.
func (o *Orchestrator) Accumulated(ctx context.Context, query string, subQueries []string, kPerQuery int, routeOverride string, temperature float64) (*Response, error) {
	if o.accumulator == nil {
		return nil, apperrors.Internal("accumulated answers are not configured", nil)
	}
	if routeOverride == "" {
		routeOverride = "auto"
	}

	result, err := o.accumulator.Search(ctx, query, subQueries, kPerQuery)
	if err != nil {
		return nil, err
	}

	evidence := head(result.Hits, accumulatedEvidenceK)
	if resp := o.abstainResponse(query, evidence, result.Metadata); resp != nil {
		return resp, nil
	}

	messages := llm.AnswerMessages(llm.AccumulatedAnswerSystemPrompt, query, evidenceBlock(evidence, true))
	tokens := llm.EstimateTokens(messages)
	sel := o.table.Select("reason", tokens, routeOverride)

	extra := map[string]string{
		"temperature": formatTemperature(temperature),
		"accumulated": "true",
		"route":       routeOverride,
	}
	key := cache.MakeKey(sel.Model, messages, extra, fingerprints(evidence))
	if resp := o.cacheLookup(ctx, key, query, sel.Model); resp != nil {
		resp.SubQueries = result.SubQueries
		resp.Metadata = result.Metadata
		return resp, nil
	}

	answer, model, err := o.chat(ctx, sel, messages, temperature, routeOverride)
	if err != nil {
		return nil, err
	}

	payload := cachedAnswer{Answer: answer, Citations: sources(evidence)}
	o.cacheStore(ctx, key, query, payload)

	return &Response{
		OK:            true,
		Answer:        answer,
		Citations:     payload.Citations,
		Model:         model,
		SubQueries:    result.SubQueries,
		Metadata:      result.Metadata,
		EvidenceCount: len(evidence),
	}, nil
}

// abstainResponse runs the abstain gate and, when it trips, builds the
// token-compact refusal the agent can branch on.
func (o *Orchestrator) abstainResponse(query string, evidence []search.Hit, metadata []search.SubQueryStats) *Response {
	results := make([]guard.Result, len(evidence))
	for i, h := range evidence {
		results[i] = guard.Result{Score: h.Score, Source: h.Source}
	}
	limits := guard.Limits{
		MinHits:      o.cfg.Guardrail.MinHits,
		MinScore:     o.cfg.Guardrail.MinScore,
		MinDiversity: answerMinDiversity,
		MinAvgScore:  o.cfg.Guardrail.MinAvgScore,
	}
	reason := guard.Reason(results, limits)
	if reason == "" {
		return nil
	}
	guard.SuggestImprovements(query, results)
	return &Response{
		OK:        true,
		Answer:    fmt.Sprintf("Search failed: %s", reason),
		Citations: []string{},
		Abstained: true,
		Metadata:  metadata,
	}
}

// chat calls the selected model. With automatic routing, a failed call
// steps down once to the small-fast route before giving up.
func (o *Orchestrator) chat(ctx context.Context, sel route.Selection, messages []llm.Message, temperature float64, routeOverride string) (string, string, error) {
	opts := llm.ChatOptions{
		Temperature:     temperature,
		MaxOutputTokens: sel.MaxOutputTokens,
	}
	answer, err := o.client.Chat(ctx, sel.Model, messages, opts)
	if err == nil {
		return answer, sel.Model, nil
	}
	if routeOverride != "auto" {
		return "", "", err
	}
	fallback, ok := o.table.Routes["small-fast"]
	if !ok || fallback.Model == sel.Model {
		return "", "", err
	}
	slog.Warn("answer model failed, stepping down", "model", sel.Model, "fallback", fallback.Model, "error", err)
	opts.MaxOutputTokens = fallback.MaxOutputTokens
	answer, ferr := o.client.Chat(ctx, fallback.Model, messages, opts)
	if ferr != nil {
		return "", "", err
	}
	return answer, fallback.Model, nil
}

// cacheLookup consults the exact cache by key, then the semantic cache
// by query text. Cache failures only log; answering must not depend on
// cache health.
func (o *Orchestrator) cacheLookup(ctx context.Context, key, query, model string) *Response {
	if o.exact != nil {
		if v, ok, err := o.exact.Get(o.project.Name, key); err != nil {
			slog.Warn("exact cache read failed", "error", err)
		} else if ok {
			if resp := decodeCached(v, model); resp != nil {
				return resp
			}
		}
	}
	if o.semantic != nil {
		if v, ok, err := o.semantic.Get(ctx, query); err != nil {
			slog.Warn("semantic cache read failed", "error", err)
		} else if ok {
			if resp := decodeCached(v, model); resp != nil {
				return resp
			}
		}
	}
	return nil
}

func (o *Orchestrator) cacheStore(ctx context.Context, key, query string, payload cachedAnswer) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ttl := time.Duration(o.cfg.Cache.AnswerTTLSeconds) * time.Second
	if o.exact != nil {
		if err := o.exact.Set(o.project.Name, key, string(data), ttl); err != nil {
			slog.Warn("exact cache write failed", "error", err)
		}
	}
	if o.semantic != nil {
		if err := o.semantic.Set(ctx, query, string(data), ttl); err != nil {
			slog.Warn("semantic cache write failed", "error", err)
		}
	}
}

func decodeCached(value, model string) *Response {
	var payload cachedAnswer
	if err := json.Unmarshal([]byte(value), &payload); err != nil {
		slog.Warn("discarding undecodable cached answer", "error", err)
		return nil
	}
	return &Response{
		OK:        true,
		Answer:    payload.Answer,
		Citations: payload.Citations,
		Cached:    true,
		Model:     model,
	}
}

// evidenceBlock formats hits for the prompt, one cited chunk per
// paragraph. Accumulated evidence carries its search round so the model
// can see which aspect produced it.
func evidenceBlock(evidence []search.Hit, withRounds bool) string {
	parts := make([]string, len(evidence))
	for i, h := range evidence {
		if withRounds && h.Round > 0 {
			parts[i] = fmt.Sprintf("[%s] (round %d)\n%s", h.Source, h.Round, h.Text)
		} else {
			parts[i] = fmt.Sprintf("[%s]\n%s", h.Source, h.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func fingerprints(evidence []search.Hit) []string {
	fps := make([]string, len(evidence))
	for i, h := range evidence {
		fps[i] = cache.Fingerprint(h.Source, h.Text)
	}
	return fps
}

func sources(evidence []search.Hit) []string {
	srcs := make([]string, len(evidence))
	for i, h := range evidence {
		srcs[i] = h.Source
	}
	return srcs
}

func head(hits []search.Hit, k int) []search.Hit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}

func formatTemperature(t float64) string {
	return strconv.FormatFloat(t, 'g', -1, 64)
}
