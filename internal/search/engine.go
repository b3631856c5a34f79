package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

// Engine serves retrieval for one project. It holds the chunk list in
// memory alongside the keyword index and, when one was built, the
// vector index. Engines are cheap to open and not safe for concurrent
// mutation; the server opens one per request scope.
type Engine struct {
	cfg      *config.Config
	embedder embed.Embedder
	chunks   []chunk.Chunk
	bm25     store.BM25Index
	vectors  *store.VectorStore
}

// Open loads the project's index artifacts. A missing vector index
// degrades to BM25-only search; a missing chunk list yields an engine
// that returns no hits.
func Open(ctx context.Context, project store.Project, cfg *config.Config, embedder embed.Embedder) (*Engine, error) {
	chunks, err := store.LoadChunks(store.ChunksPath(project.Name))
	if err != nil {
		return nil, err
	}

	bm25, err := store.NewBM25Index(project.Name, cfg.Search.BM25Backend)
	if err != nil {
		return nil, err
	}
	// The naive fallback index starts empty, and a half-written backend
	// can too. Rebuilding from the loaded chunks keeps search serving.
	if count, cerr := bm25.Count(ctx); cerr == nil && count == 0 && len(chunks) > 0 {
		if rerr := bm25.Rebuild(ctx, chunks); rerr != nil {
			_ = bm25.Close()
			return nil, rerr
		}
	}

	e := &Engine{cfg: cfg, embedder: embedder, chunks: chunks, bm25: bm25}

	vectorPath := store.VectorIndexPath(project.Name)
	if _, serr := os.Stat(vectorPath); serr == nil {
		dims, derr := store.ReadVectorStoreDimensions(vectorPath)
		if derr != nil {
			slog.Warn("vector index metadata unreadable, using keyword search only",
				"project", project.Name, "error", derr)
		} else {
			vs := store.NewVectorStore(dims)
			if lerr := vs.Load(vectorPath); lerr != nil {
				slog.Warn("vector index unreadable, using keyword search only",
					"project", project.Name, "error", lerr)
			} else {
				e.vectors = vs
			}
		}
	}
	return e, nil
}

// Close releases index resources.
func (e *Engine) Close() error {
	var errs []error
	if e.bm25 != nil {
		errs = append(errs, e.bm25.Close())
	}
	if e.vectors != nil {
		errs = append(errs, e.vectors.Close())
	}
	return errors.Join(errs...)
}

// ChunkCount returns the number of chunks the engine serves.
func (e *Engine) ChunkCount() int {
	return len(e.chunks)
}

// HasVectors reports whether dense search is available.
func (e *Engine) HasVectors() bool {
	return e.vectors != nil
}

// BM25Search returns up to k lexical hits with raw BM25 scores.
func (e *Engine) BM25Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || len(e.chunks) == 0 {
		return []Hit{}, nil
	}
	results, err := e.bm25.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.ChunkIndex < 0 || r.ChunkIndex >= len(e.chunks) {
			continue
		}
		c := e.chunks[r.ChunkIndex]
		hits = append(hits, Hit{Text: c.Text, Source: c.Source, Score: r.Score})
	}
	return hits, nil
}

// VectorSearch returns up to k dense hits with cosine-derived scores in
// [0,1]. Without a vector index it returns no hits.
func (e *Engine) VectorSearch(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || e.vectors == nil {
		return []Hit{}, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := e.vectors.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{Text: r.Chunk.Text, Source: r.Chunk.Source, Score: r.Score})
	}
	return hits, nil
}

// HybridSearch fuses lexical and dense retrieval. Both sources
// contribute 3k candidates; each source's scores are max-normalized to
// [0,1] and combined as a weighted sum, with absent origins counting as
// zero. At most maxPerFile chunks of the same file survive. The result
// is deterministic for identical indexes and query, and makes no LLM
// calls.
func (e *Engine) HybridSearch(ctx context.Context, query string, k int, bm25Weight, vectorWeight float64) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.InvalidInput("query must not be empty")
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	bm25Hits, err := e.BM25Search(ctx, query, k*3)
	if err != nil {
		return nil, err
	}
	vectorHits, err := e.VectorSearch(ctx, query, k*3)
	if err != nil {
		slog.Warn("vector search failed, continuing with keyword results", "error", err)
		vectorHits = nil
	}

	if len(vectorHits) == 0 {
		sortHits(bm25Hits)
		return truncate(bm25Hits, k), nil
	}

	normalizeScores(bm25Hits)
	normalizeScores(vectorHits)

	type fused struct {
		hit         Hit
		bm25Score   float64
		vectorScore float64
	}
	combined := make(map[string]*fused, len(bm25Hits)+len(vectorHits))
	for _, h := range bm25Hits {
		combined[h.Source] = &fused{hit: h, bm25Score: h.Score * bm25Weight}
	}
	for _, h := range vectorHits {
		if f, ok := combined[h.Source]; ok {
			f.vectorScore = h.Score * vectorWeight
			continue
		}
		combined[h.Source] = &fused{hit: h, vectorScore: h.Score * vectorWeight}
	}

	hits := make([]Hit, 0, len(combined))
	for _, f := range combined {
		h := f.hit
		h.Score = f.bm25Score + f.vectorScore
		hits = append(hits, h)
	}
	sortHits(hits)

	return truncate(dedupeByFile(hits, e.maxPerFile()), k), nil
}

func (e *Engine) maxPerFile() int {
	if e.cfg.Search.MaxPerFile > 0 {
		return e.cfg.Search.MaxPerFile
	}
	return 2
}

// normalizeScores divides each score by the set's max, mapping the set
// into [0,1]. An all-zero set is left unchanged.
func normalizeScores(hits []Hit) {
	var max float64
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	if max == 0 {
		return
	}
	for i := range hits {
		hits[i].Score /= max
	}
}

// dedupeByFile keeps at most limit hits per file key, preserving order.
func dedupeByFile(hits []Hit, limit int) []Hit {
	counts := make(map[string]int)
	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		key := chunk.FileKey(h.Source)
		counts[key]++
		if counts[key] <= limit {
			kept = append(kept, h)
		}
	}
	return kept
}

func truncate(hits []Hit, k int) []Hit {
	if len(hits) > k {
		return hits[:k]
	}
	return hits
}
