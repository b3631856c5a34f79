package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PlanStep is one action in a unified execution plan. MCP call steps
// carry Tool/Params/StoreAs; the final synthesize step carries
// Instruction and Route.
type PlanStep struct {
	Step        int            `json:"step"`
	Action      string         `json:"action"`
	Tool        string         `json:"tool,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Purpose     string         `json:"purpose"`
	StoreAs     string         `json:"store_as,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
	Route       string         `json:"route,omitempty"`
}

// Plan is a structured sequence of retrieval and synthesis steps for an
// orchestrating agent to execute. The server cannot call other MCP
// servers itself, so multi-engine coordination is expressed as a plan.
type Plan struct {
	OK              bool       `json:"ok"`
	PlanType        string     `json:"plan_type"`
	Query           string     `json:"query"`
	SubQueries      []string   `json:"sub_queries"`
	TotalSteps      int        `json:"total_steps"`
	Steps           []PlanStep `json:"steps"`
	ExecutionHint   string     `json:"execution_hint"`
	AutoRebuildHint string     `json:"auto_rebuild_hint"`
}

/// CreatePlan builds the unified search plan: an optional external
// semantic search, a local iterative RAG search, up to three targeted
// sub-query searches, and a final synthesis step. Missing subQueries
// are decomposed via the accumulator's model.
func (a *Accumulator) CreatePlan(ctx context.Context, query string, subQueries []string, includeAuggie bool, routeName string) *Plan {
	if routeName == "" {
		routeName = "reason-large"
	}
	if len(subQueries) == 0 {
		subQueries = a.Decompose(ctx, query)
	}

	var steps []PlanStep
	step := 1

	if includeAuggie {
		steps = append(steps, PlanStep{
			Step:    step,
			Action:  "call_mcp",
			Tool:    "mcp__auggie-mcp__codebase-retrieval",
			Params:  map[string]any{"information_request": strings.ReplaceAll(query, `"`, "'")},
			Purpose: "Semantic code understanding from the external engine",
			StoreAs: "auggie_results",
		})
		step++
	}

	steps = append(steps, PlanStep{
		Step:   step,
		Action: "call_mcp",
		Tool:   "mcp__augment-lite__rag_search",
		Params: map[string]any{
			"query": query, "k": 8, "use_subagent": true, "use_iterative": true,
		},
		Purpose: "Local RAG search with BM25 + vector",
		StoreAs: "rag_results",
	})
	step++

	for i, subQ := range truncateStrings(subQueries, 3) {
		steps = append(steps, PlanStep{
			Step:    step,
			Action:  "call_mcp",
			Tool:    "mcp__augment-lite__rag_search",
			Params:  map[string]any{"query": subQ, "k": 5, "use_subagent": true},
			Purpose: fmt.Sprintf("Targeted search: %s", clip(subQ, 40)),
			StoreAs: fmt.Sprintf("sub_results_%d", i+1),
		})
		step++
	}

	steps = append(steps, PlanStep{
		Step:   step,
		Action: "synthesize",
		Instruction: "Merge all results from previous steps (auggie_results, rag_results, sub_results_*). " +
			"Deduplicate by source file. " +
			"Generate a comprehensive answer addressing all aspects of the query. " +
			"Cite sources as [source:file:line].",
		Route:   routeName,
		Purpose: "Generate final answer with all accumulated evidence",
	})

	return &Plan{
		OK:         true,
		PlanType:   "unified_search",
		Query:      query,
		SubQueries: subQueries,
		TotalSteps: len(steps),
		Steps:      steps,
		ExecutionHint: fmt.Sprintf(
			"Execute steps 1-%d in order. Store results from each step. "+
				"In the final synthesize step, combine all stored results to generate the answer.", step-1),
		AutoRebuildHint: "If the external engine returns files that rag_search misses (>50% difference), " +
			"call mcp__augment-lite__index_rebuild(project='auto') before the synthesize step.",
	}
}

// Instructions renders the plan as human-readable markdown.
func (p *Plan) Instructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Unified Search Execution Plan\nQuery: %s\nTotal Steps: %d\n\n### Steps:\n", p.Query, p.TotalSteps)
	for _, s := range p.Steps {
		switch s.Action {
		case "call_mcp":
			fmt.Fprintf(&b, "\n**Step %d**: %s\n", s.Step, s.Purpose)
			fmt.Fprintf(&b, "Tool: `%s`\n", s.Tool)
			fmt.Fprintf(&b, "Params: `%v`\n", s.Params)
			fmt.Fprintf(&b, "Store result as: `%s`\n", s.StoreAs)
		case "synthesize":
			fmt.Fprintf(&b, "\n**Step %d**: %s\n", s.Step, s.Purpose)
			fmt.Fprintf(&b, "Route: `%s`\n", s.Route)
			fmt.Fprintf(&b, "Instruction: %s\n", s.Instruction)
		}
	}
	fmt.Fprintf(&b, "\n### Execution Hint\n%s", p.ExecutionHint)
	return b.String()
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
