package search

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
	"github.com/zoonderkins/augment-lite-mcp/internal/index"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

// Engine labels for merged dual-search hits.
const (
	engineLocal  = "augment-lite"
	engineAuggie = "auggie"
)

// DualOptions configures a dual search.
type DualOptions struct {
	// K is the per-engine result count. The merged list holds up to 2K.
	K int

	// UseIterative forces multi-round retrieval. When false, complex
	// queries still auto-enable it.
	UseIterative bool

	// AutoRebuild re-indexes and re-searches when the external results
	// expose a stale local index.
	AutoRebuild bool

	// ExternalHits are results from the external engine, passed back in
	// by the orchestrating agent. The local server has no transport to
	// the external engine, so without them only hints are returned.
	ExternalHits []Hit
}

// EngineReport is one engine's contribution to a dual search.
type EngineReport struct {
	Count     int    `json:"count"`
	Results   []Hit  `json:"results"`
	Available bool   `json:"available,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DualResult is the merged outcome of local plus external retrieval.
type DualResult struct {
	OK              bool                    `json:"ok"`
	Hits            []Hit                   `json:"hits"`
	Sources         map[string]EngineReport `json:"sources"`
	AuggieAvailable bool                    `json:"auggie_available"`
	AuggieHint      string                  `json:"auggie_hint,omitempty"`
	IndexRebuilt    bool                    `json:"index_rebuilt"`
	RebuildReason   string                  `json:"rebuild_reason,omitempty"`
	RebuildError    string                  `json:"rebuild_error,omitempty"`
}

// DualSearcher merges local retrieval with an external semantic engine.
// The external engine speaks stdio MCP and cannot be called in-process,
// so its results arrive through DualOptions.ExternalHits and hints tell
// the orchestrating agent how to fetch them.
type DualSearcher struct {
	searcher  *Searcher
	iterative *IterativeSearcher
	indexer   *index.Indexer
	project   store.Project
}

// NewDualSearcher wires the local pipelines and the indexer used for
// stale-index auto-rebuild.
func NewDualSearcher(searcher *Searcher, iterative *IterativeSearcher, indexer *index.Indexer, project store.Project) *DualSearcher {
	return &DualSearcher{searcher: searcher, iterative: iterative, indexer: indexer, project: project}
}

// AuggieHint formats the external MCP call the agent should make for
// comprehensive coverage.
func AuggieHint(query string) string {
	safe := strings.ReplaceAll(query, `"`, "'")
	return fmt.Sprintf(`mcp__auggie-mcp__codebase-retrieval(information_request="%s")`, safe)
}

// Search runs the local pipeline, merges any external hits, and
// optionally rebuilds a stale index. K defaults to 8.
func (d *DualSearcher) Search(ctx context.Context, query string, opts DualOptions) (*DualResult, error) {
	if opts.K <= 0 {
		opts.K = 8
	}

	result := &DualResult{
		OK:      true,
		Sources: map[string]EngineReport{},
	}

	useIterative := opts.UseIterative
	if !useIterative && ShouldUseIterative(query, "lookup") {
		useIterative = true
		slog.Info("auto-enabled iterative search for complex query")
	}

	localHits, err := d.localSearch(ctx, query, opts.K, useIterative)
	local := EngineReport{Count: len(localHits), Results: localHits, Available: true}
	if err != nil {
		slog.Warn("local search failed", "error", err)
		local.Error = err.Error()
	}
	result.Sources[engineLocal] = local

	external := EngineReport{Count: len(opts.ExternalHits), Results: opts.ExternalHits}
	external.Available = len(opts.ExternalHits) > 0
	result.Sources[engineAuggie] = external
	result.AuggieAvailable = external.Available
	if !external.Available {
		result.AuggieHint = AuggieHint(query)
	}

	result.Hits = mergeEngineHits(localHits, opts.ExternalHits, opts.K*2)

	if opts.AutoRebuild && len(opts.ExternalHits) > 0 && detectStaleIndex(localHits, opts.ExternalHits) {
		slog.Info("stale index detected, rebuilding")
		if _, rerr := d.indexer.Run(ctx, d.project, false, nil); rerr != nil {
			slog.Warn("stale-index rebuild failed", "error", rerr)
			result.RebuildError = rerr.Error()
			return result, nil
		}
		result.IndexRebuilt = true
		result.RebuildReason = "external engine found files missing from the local index"

		fresh, ferr := d.localSearch(ctx, query, opts.K, useIterative)
		if ferr != nil {
			slog.Warn("post-rebuild search failed", "error", ferr)
			return result, nil
		}
		result.Sources[engineLocal] = EngineReport{Count: len(fresh), Results: fresh, Available: true}
		result.Hits = mergeEngineHits(fresh, opts.ExternalHits, opts.K*2)
	}

	return result, nil
}

func (d *DualSearcher) localSearch(ctx context.Context, query string, k int, iterative bool) ([]Hit, error) {
	if iterative && d.iterative != nil {
		return d.iterative.Search(ctx, query, IterativeOptions{KPerIteration: k})
	}
	return d.searcher.Search(ctx, query, k)
}

// mergeEngineHits interleaves both engines, local first, deduplicating
// by source. Each engine gets half the budget, then local hits fill any
// remaining slots.
func mergeEngineHits(local, external []Hit, maxTotal int) []Hit {
	seen := make(map[string]bool)
	merged := make([]Hit, 0, maxTotal)
	perEngine := maxTotal / 2

	add := func(h Hit, engine string) {
		if len(merged) >= maxTotal || seen[h.Source] {
			return
		}
		seen[h.Source] = true
		h.Engine = engine
		merged = append(merged, h)
	}

	for _, h := range truncate(local, perEngine) {
		add(h, engineLocal)
	}
	for _, h := range truncate(external, perEngine) {
		add(h, engineAuggie)
	}
	if len(local) > perEngine {
		for _, h := range local[perEngine:] {
			add(h, engineLocal)
		}
	}
	return merged
}

// detectStaleIndex reports whether the external results expose files
// the local index does not know: either the local side found almost
// nothing, or over half the external files are missing locally.
func detectStaleIndex(local, external []Hit) bool {
	if len(external) == 0 {
		return false
	}
	if len(local) < 2 && len(external) >= 3 {
		return true
	}

	externalFiles := make(map[string]bool)
	for _, h := range external {
		if h.Source != "" && h.Source != "unknown" {
			externalFiles[filepath.Base(chunk.FileKey(h.Source))] = true
		}
	}
	if len(externalFiles) == 0 {
		return false
	}
	localFiles := make(map[string]bool)
	for _, h := range local {
		if h.Source != "" && h.Source != "unknown" {
			localFiles[filepath.Base(chunk.FileKey(h.Source))] = true
		}
	}

	missing := 0
	for f := range externalFiles {
		if !localFiles[f] {
			missing++
		}
	}
	return float64(missing)/float64(len(externalFiles)) > 0.5
}
