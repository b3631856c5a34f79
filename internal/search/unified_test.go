package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planAccumulator(t *testing.T) *Accumulator {
	e := buildEngine(t, testChunks(), true)
	return NewAccumulator(NewSearcher(e, nil), brokenLLMClient(t), "")
}

func TestCreatePlanWithAuggie(t *testing.T) {
	a := planAccumulator(t)
	subQueries := []string{"startup sequence", "config loading"}

	plan := a.CreatePlan(context.Background(), "how does the service boot", subQueries, true, "")
	require.NotNil(t, plan)

	assert.True(t, plan.OK)
	assert.Equal(t, "unified_search", plan.PlanType)
	assert.Equal(t, subQueries, plan.SubQueries)
	require.Equal(t, 5, plan.TotalSteps)
	require.Len(t, plan.Steps, 5)

	assert.Equal(t, "call_mcp", plan.Steps[0].Action)
	assert.Equal(t, "mcp__auggie-mcp__codebase-retrieval", plan.Steps[0].Tool)
	assert.Equal(t, "auggie_results", plan.Steps[0].StoreAs)

	assert.Equal(t, "mcp__augment-lite__rag_search", plan.Steps[1].Tool)
	assert.Equal(t, "rag_results", plan.Steps[1].StoreAs)

	assert.Equal(t, "sub_results_1", plan.Steps[2].StoreAs)
	assert.Equal(t, "sub_results_2", plan.Steps[3].StoreAs)

	last := plan.Steps[4]
	assert.Equal(t, "synthesize", last.Action)
	assert.Equal(t, "reason-large", last.Route)
	assert.Contains(t, last.Instruction, "Deduplicate by source file")

	for i, s := range plan.Steps {
		assert.Equal(t, i+1, s.Step)
	}
}

func TestCreatePlanWithoutAuggie(t *testing.T) {
	a := planAccumulator(t)

	plan := a.CreatePlan(context.Background(), "query", []string{"one aspect"}, false, "general")
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, "rag_results", plan.Steps[0].StoreAs)
	assert.Equal(t, "general", plan.Steps[2].Route)
}

func TestCreatePlanDecomposesWhenNeeded(t *testing.T) {
	a := planAccumulator(t)

	// Decomposition fails fast, so the query itself is the only aspect.
	plan := a.CreatePlan(context.Background(), "how does caching work", nil, false, "")
	assert.Equal(t, []string{"how does caching work"}, plan.SubQueries)
}

func TestPlanInstructions(t *testing.T) {
	a := planAccumulator(t)

	plan := a.CreatePlan(context.Background(), "boot flow", []string{"startup"}, true, "")
	text := plan.Instructions()
	assert.Contains(t, text, "## Unified Search Execution Plan")
	assert.Contains(t, text, "Query: boot flow")
	assert.Contains(t, text, "mcp__auggie-mcp__codebase-retrieval")
	assert.Contains(t, text, "### Execution Hint")
}

func TestSearcherWithoutFilter(t *testing.T) {
	e := buildEngine(t, testChunks(), true)
	s := NewSearcher(e, nil)

	hits, err := s.Search(context.Background(), "http mux", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
	assert.Equal(t, "server.go:1", hits[0].Source)
}
