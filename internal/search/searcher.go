package search

import (
	"context"
)

// Searcher is the two-stage retrieval pipeline: hybrid search over a
// widened candidate pool, then optional subagent re-ranking down to k.
type Searcher struct {
	engine *Engine
	filter *SubagentFilter
}

// NewSearcher wraps an engine. A nil filter disables re-ranking.
func NewSearcher(engine *Engine, filter *SubagentFilter) *Searcher {
	return &Searcher{engine: engine, filter: filter}
}

// Engine exposes the underlying engine.
func (s *Searcher) Engine() *Engine {
	return s.engine
}

// Search retrieves up to k hits. With a filter attached, the hybrid
// stage fetches a 3x candidate pool for the re-ranker to choose from.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	multiplier := 1
	if s.filter != nil {
		multiplier = 3
	}
	candidates, err := s.engine.HybridSearch(ctx, query, k*multiplier,
		s.engine.cfg.Search.BM25Weight, s.engine.cfg.Search.VectorWeight)
	if err != nil {
		return nil, err
	}
	if s.filter == nil {
		return truncate(candidates, k), nil
	}
	return s.filter.Filter(ctx, query, candidates, k), nil
}
