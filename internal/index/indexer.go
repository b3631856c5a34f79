// Package index builds and incrementally maintains a project's search
// artifacts: the chunk list, the keyword index, the vector index, and
// the change-detection state.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/scanner"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

// Stats summarizes one index run.
type Stats struct {
	FilesScanned  int           `json:"files_scanned"`
	FilesIndexed  int           `json:"files_indexed"`
	FilesRemoved  int           `json:"files_removed"`
	ChunksAdded   int           `json:"chunks_added"`
	ChunksRemoved int           `json:"chunks_removed"`
	ChunksTotal   int           `json:"chunks_total"`
	Duration      time.Duration `json:"-"`
}

// Progress reports indexing phases to an observer, usually the terminal
// UI. Implementations must tolerate being called from one goroutine only.
type Progress interface {
	Phase(name string)
	File(path string, done, total int)
}

// NopProgress discards progress events.
type NopProgress struct{}

func (NopProgress) Phase(string)          {}
func (NopProgress) File(string, int, int) {}

// Indexer runs index builds for projects.
type Indexer struct {
	cfg      *config.Config
	embedder embed.Embedder
}

// New creates an Indexer.
func New(cfg *config.Config, embedder embed.Embedder) *Indexer {
	return &Indexer{cfg: cfg, embedder: embedder}
}

// RunOptions tunes one index run.
type RunOptions struct {
	// Force discards the change-detection state and re-chunks everything.
	Force bool

	// SkipVectors leaves the vector index out. Any existing vector index
	// is removed so searches never mix fresh chunks with stale vectors.
	SkipVectors bool
}

// Run scans the project root and brings the on-disk artifacts up to date.
// Only files whose content actually changed (by size, mtime, and content
// digest) are re-chunked; the keyword and vector indexes are then rebuilt
// from the full chunk list. Force discards the change-detection state first.
func (ix *Indexer) Run(ctx context.Context, project store.Project, force bool, progress Progress) (Stats, error) {
	return ix.RunWith(ctx, project, RunOptions{Force: force}, progress)
}

// RunWith is Run with full options. A per-project file lock keeps two
// invocations from interleaving.
func (ix *Indexer) RunWith(ctx context.Context, project store.Project, opts RunOptions, progress Progress) (Stats, error) {
	if progress == nil {
		progress = NopProgress{}
	}
	start := time.Now()

	lockPath := store.IndexLockPath(project.Name)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return Stats{}, fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return Stats{}, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return Stats{}, apperrors.IndexUnavailable(
			fmt.Sprintf("another index operation is running for project %s", project.Name), nil)
	}
	defer func() { _ = lock.Unlock() }()

	progress.Phase("scanning")
	files, err := scanner.New(scanner.Options{MaxFileSize: ix.cfg.Index.MaxFileSize}).Scan(ctx, project.Root)
	if err != nil {
		return Stats{}, fmt.Errorf("scan project: %w", err)
	}

	statePath := store.IndexStatePath(project.Name)
	state := store.IndexState{}
	if !opts.Force {
		if state, err = store.LoadIndexState(statePath); err != nil {
			return Stats{}, err
		}
	}

	chunksPath := store.ChunksPath(project.Name)
	existing, err := store.LoadChunks(chunksPath)
	if err != nil {
		return Stats{}, err
	}
	if opts.Force {
		existing = nil
	}

	plan := planChanges(files, state)
	stats := Stats{FilesScanned: len(files), FilesIndexed: len(plan.changed), FilesRemoved: len(plan.removed)}

	if len(plan.changed) == 0 && len(plan.removed) == 0 && len(existing) > 0 {
		stats.ChunksTotal = len(existing)
		stats.Duration = time.Since(start)
		slog.Info("index up to date", "project", project.Name, "chunks", len(existing))
		return stats, nil
	}

	progress.Phase("chunking")
	kept, removed := dropStale(existing, plan)
	stats.ChunksRemoved = removed

	chunker := chunk.NewChunker()
	chunker.Code.Lines = ix.cfg.Index.CodeChunkLines
	chunker.Code.Overlap = ix.cfg.Index.CodeChunkOverlap
	chunker.Doc.Tokens = ix.cfg.Index.DocChunkTokens
	chunker.Doc.Overlap = ix.cfg.Index.DocChunkOverlap

	newState := store.IndexState{}
	for _, f := range plan.unchanged {
		// the fresh mtime goes into the state so the next run takes the
		// cheap path; the content digest carries over untouched
		newState[f.Path] = store.FileState{Size: f.Size, ModTime: f.ModTime, Hash: state[f.Path].Hash}
	}
	for i, f := range plan.changed {
		if err := ctx.Err(); err != nil {
			return Stats{}, apperrors.Wrap(apperrors.CodeCancelled, err)
		}
		progress.File(f.Path, i+1, len(plan.changed))

		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", f.Path, "error", err)
			continue
		}
		fileChunks := chunker.ChunkFile(f.Path, string(content))
		kept = append(kept, fileChunks...)
		stats.ChunksAdded += len(fileChunks)
		st := store.FileState{Size: f.Size, ModTime: f.ModTime}
		if int64(len(content)) < scanner.DefaultMaxFileSize {
			st.Hash = scanner.ContentMD5(content)
		}
		newState[f.Path] = st
	}
	stats.ChunksTotal = len(kept)

	progress.Phase("keyword index")
	bm25, err := store.NewBM25Index(project.Name, ix.cfg.Search.BM25Backend)
	if err != nil {
		return Stats{}, err
	}
	defer func() { _ = bm25.Close() }()
	if err := bm25.Rebuild(ctx, kept); err != nil {
		return Stats{}, fmt.Errorf("rebuild keyword index: %w", err)
	}

	if opts.SkipVectors {
		removeVectorIndex(project.Name)
	} else {
		progress.Phase("embedding")
		texts := make([]string, len(kept))
		for i, c := range kept {
			texts[i] = c.Text
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return Stats{}, fmt.Errorf("embed chunks: %w", err)
		}

		progress.Phase("vector index")
		vec := store.NewVectorStore(ix.embedder.Dimensions())
		defer func() { _ = vec.Close() }()
		if err := vec.Build(ctx, kept, vectors); err != nil {
			return Stats{}, fmt.Errorf("build vector index: %w", err)
		}
		if err := vec.Save(store.VectorIndexPath(project.Name)); err != nil {
			return Stats{}, fmt.Errorf("save vector index: %w", err)
		}
	}

	// Chunk list and state go last: if anything above failed, the old
	// state still matches the old artifacts and the next run retries.
	if err := store.SaveChunks(chunksPath, kept); err != nil {
		return Stats{}, err
	}
	if err := store.SaveIndexState(statePath, newState); err != nil {
		return Stats{}, err
	}

	stats.Duration = time.Since(start)
	slog.Info("index complete",
		"project", project.Name,
		"files_indexed", stats.FilesIndexed,
		"chunks_added", stats.ChunksAdded,
		"chunks_removed", stats.ChunksRemoved,
		"chunks_total", stats.ChunksTotal,
		"duration", stats.Duration)
	return stats, nil
}

type changePlan struct {
	changed   []scanner.FileInfo
	unchanged []scanner.FileInfo
	removed   []string
	stale     map[string]struct{}
}

// planChanges splits the scan into changed, unchanged, and removed files
// by comparing size and mtime against the recorded state. A file whose
// mtime moved but whose size and content digest both match is still
// unchanged: checkouts and touch rewrite identical bytes all the time.
func planChanges(files []scanner.FileInfo, state store.IndexState) changePlan {
	plan := changePlan{stale: make(map[string]struct{})}
	seen := make(map[string]struct{}, len(files))

	for _, f := range files {
		seen[f.Path] = struct{}{}
		prev, ok := state[f.Path]
		if ok && prev.Size == f.Size && prev.ModTime.Equal(f.ModTime) {
			plan.unchanged = append(plan.unchanged, f)
			continue
		}
		if ok && prev.Hash != "" && prev.Size == f.Size {
			if h, err := f.MD5(); err == nil && h == prev.Hash {
				plan.unchanged = append(plan.unchanged, f)
				continue
			}
		}
		plan.changed = append(plan.changed, f)
		plan.stale[f.Path] = struct{}{}
	}
	for path := range state {
		if _, ok := seen[path]; !ok {
			plan.removed = append(plan.removed, path)
			plan.stale[path] = struct{}{}
		}
	}
	return plan
}

// dropStale removes chunks belonging to changed or deleted files.
func dropStale(chunks []chunk.Chunk, plan changePlan) ([]chunk.Chunk, int) {
	if len(plan.stale) == 0 {
		return chunks, 0
	}
	kept := make([]chunk.Chunk, 0, len(chunks))
	removed := 0
	for _, c := range chunks {
		if _, stale := plan.stale[chunk.FileKey(c.Source)]; stale {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}

// removeVectorIndex deletes a project's vector index files if present.
func removeVectorIndex(project string) {
	path := store.VectorIndexPath(project)
	_ = os.Remove(path)
	_ = os.Remove(path + ".meta")
}

// RebuildVectors re-embeds the current chunk list and rewrites the
// vector index, leaving the chunk list and keyword index untouched.
func (ix *Indexer) RebuildVectors(ctx context.Context, project store.Project, progress Progress) (int, error) {
	if progress == nil {
		progress = NopProgress{}
	}

	lock := flock.New(store.IndexLockPath(project.Name))
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return 0, apperrors.IndexUnavailable(
			fmt.Sprintf("another index operation is running for project %s", project.Name), nil)
	}
	defer func() { _ = lock.Unlock() }()

	chunks, err := store.LoadChunks(store.ChunksPath(project.Name))
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, apperrors.IndexUnavailable(
			fmt.Sprintf("project %s has no indexed chunks", project.Name), nil)
	}

	progress.Phase("embedding")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	progress.Phase("vector index")
	vec := store.NewVectorStore(ix.embedder.Dimensions())
	defer func() { _ = vec.Close() }()
	if err := vec.Build(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("build vector index: %w", err)
	}
	if err := vec.Save(store.VectorIndexPath(project.Name)); err != nil {
		return 0, fmt.Errorf("save vector index: %w", err)
	}
	return len(chunks), nil
}
