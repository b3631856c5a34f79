// Package search implements retrieval over a project's index artifacts:
// hybrid BM25 + vector fusion, LLM re-ranking, iterative query
// expansion, and multi-aspect accumulation.
package search

import "sort"

// Hit is a single retrieval result.
type Hit struct {
	// Text is the matched chunk content.
	Text string `json:"text"`

	// Source identifies the chunk, "<relpath>:<line>" or "<relpath>:chunk<N>".
	Source string `json:"source"`

	// Score is comparable only within one result set. Fused scores live
	// in [0,1]; raw BM25 scores do not.
	Score float64 `json:"score"`

	// SubQuery is the sub-query that produced this hit in an
	// accumulated search.
	SubQuery string `json:"sub_query,omitempty"`

	// Round is the 1-based search round in an accumulated search.
	Round int `json:"round,omitempty"`

	// Engine names the engine that produced the hit in a dual search.
	Engine string `json:"engine,omitempty"`
}

// sortHits orders hits by score descending, breaking ties by source so
// identical inputs always produce identical output order.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Source < hits[j].Source
	})
}
