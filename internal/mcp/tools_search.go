package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zoonderkins/augment-lite-mcp/internal/answer"
	"github.com/zoonderkins/augment-lite-mcp/internal/search"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
)

// orBool resolves an optional boolean argument against its default.
func orBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// orInt resolves an optional integer argument against its default.
func orInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// orFloat resolves an optional float argument against its default.
func orFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// RagSearchInput is the input schema for rag.search.
type RagSearchInput struct {
	Query        string `json:"query" jsonschema:"the search query"`
	Project      string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	K            *int   `json:"k,omitempty" jsonschema:"number of hits to return, default 8"`
	UseSubagent  *bool  `json:"use_subagent,omitempty" jsonschema:"re-rank candidates with the subagent model, default true"`
	UseIterative bool   `json:"use_iterative,omitempty" jsonschema:"run multi-round retrieval with query expansion, default false"`
	AutoIndex    *bool  `json:"auto_index,omitempty" jsonschema:"build or refresh the index before searching, default true"`
}

// RagSearchOutput is the output schema for rag.search.
type RagSearchOutput struct {
	Payload
	Project string       `json:"project,omitempty"`
	Hits    []search.Hit `json:"hits"`
}

func (s *Server) handleRagSearch(ctx context.Context, req *mcp.CallToolRequest, in RagSearchInput) (
	*mcp.CallToolResult, RagSearchOutput, error,
) {
	log := s.logger.With("tool", "rag.search", "request_id", generateRequestID())

	query, err := validation.Query(in.Query)
	if err != nil {
		return nil, RagSearchOutput{Payload: failure(err)}, nil
	}
	k := orInt(in.K, s.cfg.Search.DefaultK)
	if k < 0 {
		k = 0
	}

	sess, err := s.sessionFor(ctx, in.Project, orBool(in.AutoIndex, true))
	if err != nil {
		log.Warn("session unavailable", "error", err)
		return nil, RagSearchOutput{Payload: failure(err)}, nil
	}

	out := RagSearchOutput{Payload: ok(), Project: sess.project.Name, Hits: []search.Hit{}}
	if k == 0 {
		return nil, out, nil
	}

	searcher := sess.searcher
	if !orBool(in.UseSubagent, true) {
		searcher = search.NewSearcher(sess.engine, nil)
	}

	var hits []search.Hit
	if in.UseIterative {
		it := search.NewIterativeSearcher(searcher, s.client, search.DefaultSubagentModel)
		hits, err = it.Search(ctx, query, search.IterativeOptions{KPerIteration: k})
	} else {
		hits, err = searcher.Search(ctx, query, k)
	}
	if err != nil {
		log.Warn("search failed", "error", err)
		return nil, RagSearchOutput{Payload: failure(err)}, nil
	}

	log.Info("search complete", "project", sess.project.Name, "hits", len(hits))
	out.Hits = hits
	return nil, out, nil
}

// DualSearchInput is the input schema for dual.search. AuggieResults
// carries the external engine's hits back in; the server has no
// transport of its own to that engine.
type DualSearchInput struct {
	Query         string       `json:"query" jsonschema:"the search query"`
	Project       string       `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	K             *int         `json:"k,omitempty" jsonschema:"per-engine result count, default 8"`
	IncludeAuggie *bool        `json:"include_auggie,omitempty" jsonschema:"merge external-engine results and emit a fetch hint when absent, default true"`
	AutoRebuild   *bool        `json:"auto_rebuild,omitempty" jsonschema:"rebuild the local index when external results expose staleness, default true"`
	UseIterative  bool         `json:"use_iterative,omitempty" jsonschema:"force multi-round local retrieval"`
	AuggieResults []search.Hit `json:"auggie_results,omitempty" jsonschema:"external engine hits from a previous auggie call"`
}

// DualSearchOutput is the output schema for dual.search.
type DualSearchOutput struct {
	Payload
	Project         string                         `json:"project,omitempty"`
	Hits            []search.Hit                   `json:"hits"`
	Sources         map[string]search.EngineReport `json:"sources,omitempty"`
	AuggieAvailable bool                           `json:"auggie_available"`
	AuggieHint      string                         `json:"auggie_hint,omitempty"`
	IndexRebuilt    bool                           `json:"index_rebuilt"`
	RebuildReason   string                         `json:"rebuild_reason,omitempty"`
	RebuildError    string                         `json:"rebuild_error,omitempty"`
}

func (s *Server) handleDualSearch(ctx context.Context, req *mcp.CallToolRequest, in DualSearchInput) (
	*mcp.CallToolResult, DualSearchOutput, error,
) {
	log := s.logger.With("tool", "dual.search", "request_id", generateRequestID())

	query, err := validation.Query(in.Query)
	if err != nil {
		return nil, DualSearchOutput{Payload: failure(err)}, nil
	}

	sess, err := s.sessionFor(ctx, in.Project, true)
	if err != nil {
		log.Warn("session unavailable", "error", err)
		return nil, DualSearchOutput{Payload: failure(err)}, nil
	}

	includeAuggie := orBool(in.IncludeAuggie, true)
	opts := search.DualOptions{
		K:            orInt(in.K, s.cfg.Search.DefaultK),
		UseIterative: in.UseIterative,
		AutoRebuild:  orBool(in.AutoRebuild, true),
	}
	if includeAuggie {
		opts.ExternalHits = in.AuggieResults
	}

	result, err := sess.dual.Search(ctx, query, opts)
	if err != nil {
		log.Warn("dual search failed", "error", err)
		return nil, DualSearchOutput{Payload: failure(err)}, nil
	}
	if result.IndexRebuilt {
		s.invalidate(sess.project.Name)
	}

	out := DualSearchOutput{
		Payload:         ok(),
		Project:         sess.project.Name,
		Hits:            result.Hits,
		Sources:         result.Sources,
		AuggieAvailable: result.AuggieAvailable,
		AuggieHint:      result.AuggieHint,
		IndexRebuilt:    result.IndexRebuilt,
		RebuildReason:   result.RebuildReason,
		RebuildError:    result.RebuildError,
	}
	if !includeAuggie {
		delete(out.Sources, "auggie")
		out.AuggieAvailable = false
		out.AuggieHint = ""
	}

	log.Info("dual search complete", "project", sess.project.Name,
		"hits", len(out.Hits), "rebuilt", out.IndexRebuilt)
	return nil, out, nil
}

// AnswerGenerateInput is the input schema for answer.generate.
type AnswerGenerateInput struct {
	Query       string   `json:"query" jsonschema:"the question to answer"`
	Project     string   `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	TaskType    string   `json:"task_type,omitempty" jsonschema:"lookup, small_fix, refactor, or reason; default lookup"`
	Route       string   `json:"route,omitempty" jsonschema:"route or provider override; 'auto' selects by size and task type"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature, default 0.2"`
}

// AnswerOutput is the output schema shared by answer.generate and
// answer.accumulated.
type AnswerOutput struct {
	Payload
	Project       string                 `json:"project,omitempty"`
	Answer        string                 `json:"answer,omitempty"`
	Citations     []string               `json:"citations,omitempty"`
	Cached        bool                   `json:"cached"`
	Abstained     bool                   `json:"abstained,omitempty"`
	Model         string                 `json:"model,omitempty"`
	SubQueries    []string               `json:"sub_queries,omitempty"`
	Metadata      []search.SubQueryStats `json:"search_metadata,omitempty"`
	EvidenceCount int                    `json:"evidence_count,omitempty"`
}

func (s *Server) handleAnswerGenerate(ctx context.Context, req *mcp.CallToolRequest, in AnswerGenerateInput) (
	*mcp.CallToolResult, AnswerOutput, error,
) {
	log := s.logger.With("tool", "answer.generate", "request_id", generateRequestID())

	sess, err := s.sessionFor(ctx, in.Project, true)
	if err != nil {
		log.Warn("session unavailable", "error", err)
		return nil, AnswerOutput{Payload: failure(err)}, nil
	}

	taskType := in.TaskType
	if taskType == "" {
		taskType = "lookup"
	}
	resp, err := sess.answers.Generate(ctx, in.Query, taskType, in.Route, orFloat(in.Temperature, 0.2))
	if err != nil {
		log.Warn("answer generation failed", "error", err)
		return nil, AnswerOutput{Payload: failure(err)}, nil
	}

	log.Info("answer generated", "project", sess.project.Name,
		"model", resp.Model, "cached", resp.Cached, "abstained", resp.Abstained)
	return nil, answerOutput(sess.project.Name, resp), nil
}

// AnswerAccumulatedInput is the input schema for answer.accumulated.
type AnswerAccumulatedInput struct {
	Query       string   `json:"query" jsonschema:"the question to answer"`
	Project     string   `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	SubQueries  []string `json:"sub_queries,omitempty" jsonschema:"aspect sub-queries; decomposed from the query when omitted"`
	KPerQuery   *int     `json:"k_per_query,omitempty" jsonschema:"hits per sub-query, default 5"`
	Route       string   `json:"route,omitempty" jsonschema:"route override, default reason-large"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature, default 0.2"`
}

func (s *Server) handleAnswerAccumulated(ctx context.Context, req *mcp.CallToolRequest, in AnswerAccumulatedInput) (
	*mcp.CallToolResult, AnswerOutput, error,
) {
	log := s.logger.With("tool", "answer.accumulated", "request_id", generateRequestID())

	sess, err := s.sessionFor(ctx, in.Project, true)
	if err != nil {
		log.Warn("session unavailable", "error", err)
		return nil, AnswerOutput{Payload: failure(err)}, nil
	}

	resp, err := sess.answers.Accumulated(ctx, in.Query, in.SubQueries,
		orInt(in.KPerQuery, 5), in.Route, orFloat(in.Temperature, 0.2))
	if err != nil {
		log.Warn("accumulated answer failed", "error", err)
		return nil, AnswerOutput{Payload: failure(err)}, nil
	}

	log.Info("accumulated answer generated", "project", sess.project.Name,
		"sub_queries", len(resp.SubQueries), "evidence", resp.EvidenceCount)
	return nil, answerOutput(sess.project.Name, resp), nil
}

// AnswerUnifiedInput is the input schema for answer.unified.
type AnswerUnifiedInput struct {
	Query         string   `json:"query" jsonschema:"the question the plan should answer"`
	Project       string   `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	SubQueries    []string `json:"sub_queries,omitempty" jsonschema:"aspect sub-queries; decomposed from the query when omitted"`
	IncludeAuggie *bool    `json:"include_auggie,omitempty" jsonschema:"include an external-engine step, default true"`
	Route         string   `json:"route,omitempty" jsonschema:"synthesis route, default reason-large"`
}

// AnswerUnifiedOutput is the output schema for answer.unified.
type AnswerUnifiedOutput struct {
	Payload
	Project         string            `json:"project,omitempty"`
	PlanType        string            `json:"plan_type,omitempty"`
	Query           string            `json:"query,omitempty"`
	SubQueries      []string          `json:"sub_queries,omitempty"`
	TotalSteps      int               `json:"total_steps,omitempty"`
	Steps           []search.PlanStep `json:"steps,omitempty"`
	ExecutionHint   string            `json:"execution_hint,omitempty"`
	AutoRebuildHint string            `json:"auto_rebuild_hint,omitempty"`
}

func (s *Server) handleAnswerUnified(ctx context.Context, req *mcp.CallToolRequest, in AnswerUnifiedInput) (
	*mcp.CallToolResult, AnswerUnifiedOutput, error,
) {
	log := s.logger.With("tool", "answer.unified", "request_id", generateRequestID())

	query, err := validation.Query(in.Query)
	if err != nil {
		return nil, AnswerUnifiedOutput{Payload: failure(err)}, nil
	}

	sess, err := s.sessionFor(ctx, in.Project, true)
	if err != nil {
		log.Warn("session unavailable", "error", err)
		return nil, AnswerUnifiedOutput{Payload: failure(err)}, nil
	}

	plan := sess.accum.CreatePlan(ctx, query, in.SubQueries, orBool(in.IncludeAuggie, true), in.Route)
	log.Info("unified plan created", "project", sess.project.Name, "steps", plan.TotalSteps)
	return nil, AnswerUnifiedOutput{
		Payload:         ok(),
		Project:         sess.project.Name,
		PlanType:        plan.PlanType,
		Query:           plan.Query,
		SubQueries:      plan.SubQueries,
		TotalSteps:      plan.TotalSteps,
		Steps:           plan.Steps,
		ExecutionHint:   plan.ExecutionHint,
		AutoRebuildHint: plan.AutoRebuildHint,
	}, nil
}

// answerOutput maps an orchestrator response onto the tool envelope.
func answerOutput(project string, resp *answer.Response) AnswerOutput {
	return AnswerOutput{
		Payload:       ok(),
		Project:       project,
		Answer:        resp.Answer,
		Citations:     resp.Citations,
		Cached:        resp.Cached,
		Abstained:     resp.Abstained,
		Model:         resp.Model,
		SubQueries:    resp.SubQueries,
		Metadata:      resp.Metadata,
		EvidenceCount: resp.EvidenceCount,
	}
}
