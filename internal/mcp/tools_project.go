package mcp

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/index"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
)

// ProjectInitInput is the input schema for project.init.
type ProjectInitInput struct {
	Project     string `json:"project,omitempty" jsonschema:"project name, or 'auto' to register the working directory under its basename"`
	Path        string `json:"path,omitempty" jsonschema:"project root, default the working directory"`
	BuildVector *bool  `json:"build_vector,omitempty" jsonschema:"build the vector index alongside the keyword index, default true"`
}

// IndexStatsOutput is the output schema shared by the indexing tools.
type IndexStatsOutput struct {
	Payload
	Project       string `json:"project,omitempty"`
	Root          string `json:"root,omitempty"`
	FilesScanned  int    `json:"files_scanned,omitempty"`
	FilesIndexed  int    `json:"files_indexed,omitempty"`
	ChunksAdded   int    `json:"chunks_added,omitempty"`
	ChunksRemoved int    `json:"chunks_removed,omitempty"`
	ChunksTotal   int    `json:"chunks_total,omitempty"`
	DurationMS    int64  `json:"duration_ms,omitempty"`
}

func (s *Server) handleProjectInit(ctx context.Context, req *mcp.CallToolRequest, in ProjectInitInput) (
	*mcp.CallToolResult, IndexStatsOutput, error,
) {
	log := s.logger.With("tool", "project.init", "request_id", generateRequestID())

	p, err := s.initProject(in.Project, in.Path)
	if err != nil {
		return nil, IndexStatsOutput{Payload: failure(err)}, nil
	}

	opts := index.RunOptions{SkipVectors: !orBool(in.BuildVector, true)}
	stats, err := s.indexer.RunWith(ctx, p, opts, index.NopProgress{})
	if err != nil {
		log.Warn("index build failed", "project", p.Name, "error", err)
		return nil, IndexStatsOutput{Payload: failure(apperrors.IndexUnavailable("index build failed", err))}, nil
	}
	s.invalidate(p.Name)

	log.Info("project initialized", "project", p.Name, "chunks", stats.ChunksTotal)
	return nil, indexStatsOutput(p, stats), nil
}

// initProject registers (or fetches) the project for project.init. An
// explicit name binds to the given path or the working directory; an
// empty or auto name registers the working directory under its basename.
func (s *Server) initProject(name, path string) (store.Project, error) {
	if name == "auto" {
		name = ""
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return store.Project{}, apperrors.Internal("resolve working directory", err)
		}
		path = cwd
	}
	root, err := validation.ProjectPath(path)
	if err != nil {
		return store.Project{}, err
	}
	if name == "" {
		name = filepath.Base(root)
	}
	cleaned, err := validation.ProjectName(name, false)
	if err != nil {
		return store.Project{}, err
	}

	p, err := s.registry.Get(cleaned)
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.CodeNotFound {
			return store.Project{}, err
		}
		if p, err = s.registry.Add(cleaned, root); err != nil {
			return store.Project{}, err
		}
	}
	return s.registry.SetActive(p.Name)
}

func indexStatsOutput(p store.Project, stats index.Stats) IndexStatsOutput {
	return IndexStatsOutput{
		Payload:       ok(),
		Project:       p.Name,
		Root:          p.Root,
		FilesScanned:  stats.FilesScanned,
		FilesIndexed:  stats.FilesIndexed,
		ChunksAdded:   stats.ChunksAdded,
		ChunksRemoved: stats.ChunksRemoved,
		ChunksTotal:   stats.ChunksTotal,
		DurationMS:    stats.Duration.Milliseconds(),
	}
}

// ProjectAddInput is the input schema for project.add.
type ProjectAddInput struct {
	Project string `json:"project" jsonschema:"project name"`
	Path    string `json:"path" jsonschema:"project root directory"`
}

// ProjectOutput is the output schema for tools returning one project.
type ProjectOutput struct {
	Payload
	Project string `json:"project,omitempty"`
	Root    string `json:"root,omitempty"`
	Active  bool   `json:"active,omitempty"`
}

func (s *Server) handleProjectAdd(ctx context.Context, req *mcp.CallToolRequest, in ProjectAddInput) (
	*mcp.CallToolResult, ProjectOutput, error,
) {
	name, err := validation.ProjectName(in.Project, false)
	if err != nil {
		return nil, ProjectOutput{Payload: failure(err)}, nil
	}
	root, err := validation.ProjectPath(in.Path)
	if err != nil {
		return nil, ProjectOutput{Payload: failure(err)}, nil
	}
	p, err := s.registry.Add(name, root)
	if err != nil {
		return nil, ProjectOutput{Payload: failure(err)}, nil
	}
	s.logger.Info("project added", "project", p.Name, "root", p.Root)
	return nil, ProjectOutput{Payload: ok(), Project: p.Name, Root: p.Root, Active: p.Active}, nil
}

// ProjectListInput is the input schema for project.list.
type ProjectListInput struct{}

// ProjectEntry is one project in a project.list response.
type ProjectEntry struct {
	Project string `json:"project"`
	Root    string `json:"root"`
	Active  bool   `json:"active"`
}

// ProjectListOutput is the output schema for project.list.
type ProjectListOutput struct {
	Payload
	Projects []ProjectEntry `json:"projects"`
}

func (s *Server) handleProjectList(ctx context.Context, req *mcp.CallToolRequest, in ProjectListInput) (
	*mcp.CallToolResult, ProjectListOutput, error,
) {
	projects, err := s.registry.List()
	if err != nil {
		return nil, ProjectListOutput{Payload: failure(err)}, nil
	}
	out := ProjectListOutput{Payload: ok(), Projects: []ProjectEntry{}}
	for _, p := range projects {
		out.Projects = append(out.Projects, ProjectEntry{Project: p.Name, Root: p.Root, Active: p.Active})
	}
	return nil, out, nil
}

// ProjectNameInput is the input schema for tools addressing one project.
type ProjectNameInput struct {
	Project string `json:"project" jsonschema:"project name"`
}

func (s *Server) handleProjectActivate(ctx context.Context, req *mcp.CallToolRequest, in ProjectNameInput) (
	*mcp.CallToolResult, ProjectOutput, error,
) {
	p, err := s.registry.SetActive(in.Project)
	if err != nil {
		return nil, ProjectOutput{Payload: failure(err)}, nil
	}
	s.logger.Info("project activated", "project", p.Name)
	return nil, ProjectOutput{Payload: ok(), Project: p.Name, Root: p.Root, Active: true}, nil
}

func (s *Server) handleProjectRemove(ctx context.Context, req *mcp.CallToolRequest, in ProjectNameInput) (
	*mcp.CallToolResult, Payload, error,
) {
	if err := s.registry.Remove(in.Project); err != nil {
		return nil, failure(err), nil
	}
	s.invalidate(in.Project)
	s.removeProjectArtifacts(in.Project)
	s.logger.Info("project removed", "project", in.Project)
	return nil, ok(), nil
}

// removeProjectArtifacts deletes every partition carrying the project's
// name: index artifacts, cache files, and the stored memory and task
// rows. The session is already invalidated so no handles are open.
func (s *Server) removeProjectArtifacts(name string) {
	if err := store.RemoveArtifacts(name); err != nil {
		s.logger.Warn("artifact removal failed", "project", name, "error", err)
	}
	if err := s.exact.Clear(name); err != nil {
		s.logger.Warn("exact cache clear failed", "project", name, "error", err)
	}
	if err := s.mem.Purge(name); err != nil {
		s.logger.Warn("memory purge failed", "project", name, "error", err)
	}
	if err := s.tasks.Purge(name); err != nil {
		s.logger.Warn("task purge failed", "project", name, "error", err)
	}
}

// ProjectStatusInput is the input schema for project.status and
// index.status.
type ProjectStatusInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
}

// ProjectStatusOutput is the output schema for project.status and
// index.status.
type ProjectStatusOutput struct {
	Payload
	Project       string `json:"project,omitempty"`
	Root          string `json:"root,omitempty"`
	Active        bool   `json:"active,omitempty"`
	Indexed       bool   `json:"indexed"`
	FilesIndexed  int    `json:"files_indexed"`
	ChunksTotal   int    `json:"chunks_total"`
	HasVectors    bool   `json:"has_vectors"`
	EmbedderModel string `json:"embedder_model,omitempty"`
	EmbedderDims  int    `json:"embedder_dims,omitempty"`
}

func (s *Server) handleProjectStatus(ctx context.Context, req *mcp.CallToolRequest, in ProjectStatusInput) (
	*mcp.CallToolResult, ProjectStatusOutput, error,
) {
	return s.statusOutput(in.Project)
}

func (s *Server) handleIndexStatus(ctx context.Context, req *mcp.CallToolRequest, in ProjectStatusInput) (
	*mcp.CallToolResult, ProjectStatusOutput, error,
) {
	return s.statusOutput(in.Project)
}

// statusOutput reads index artifacts directly so status works without
// opening an engine (and without triggering an index build).
func (s *Server) statusOutput(projectArg string) (*mcp.CallToolResult, ProjectStatusOutput, error) {
	p, err := s.resolveProject(projectArg, false)
	if err != nil {
		return nil, ProjectStatusOutput{Payload: failure(err)}, nil
	}

	chunks, err := store.LoadChunks(store.ChunksPath(p.Name))
	if err != nil {
		s.logger.Warn("chunk list unreadable", "project", p.Name, "error", err)
		chunks = nil
	}
	state, err := store.LoadIndexState(store.IndexStatePath(p.Name))
	if err != nil {
		state = store.IndexState{}
	}
	_, statErr := os.Stat(store.VectorIndexPath(p.Name))

	return nil, ProjectStatusOutput{
		Payload:       ok(),
		Project:       p.Name,
		Root:          p.Root,
		Active:        p.Active,
		Indexed:       len(chunks) > 0,
		FilesIndexed:  len(state),
		ChunksTotal:   len(chunks),
		HasVectors:    statErr == nil,
		EmbedderModel: s.embedder.ModelName(),
		EmbedderDims:  s.embedder.Dimensions(),
	}, nil
}

// IndexRebuildInput is the input schema for index.rebuild.
type IndexRebuildInput struct {
	Project    string `json:"project,omitempty" jsonschema:"project name, or 'auto' to resolve from the working directory"`
	VectorOnly bool   `json:"vector_only,omitempty" jsonschema:"re-embed and rewrite only the vector index"`
}

func (s *Server) handleIndexRebuild(ctx context.Context, req *mcp.CallToolRequest, in IndexRebuildInput) (
	*mcp.CallToolResult, IndexStatsOutput, error,
) {
	log := s.logger.With("tool", "index.rebuild", "request_id", generateRequestID())

	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, IndexStatsOutput{Payload: failure(err)}, nil
	}

	if in.VectorOnly {
		count, err := s.indexer.RebuildVectors(ctx, p, index.NopProgress{})
		if err != nil {
			log.Warn("vector rebuild failed", "project", p.Name, "error", err)
			return nil, IndexStatsOutput{Payload: failure(err)}, nil
		}
		s.invalidate(p.Name)
		log.Info("vector index rebuilt", "project", p.Name, "chunks", count)
		return nil, IndexStatsOutput{Payload: ok(), Project: p.Name, Root: p.Root, ChunksTotal: count}, nil
	}

	stats, err := s.indexer.Run(ctx, p, true, index.NopProgress{})
	if err != nil {
		log.Warn("rebuild failed", "project", p.Name, "error", err)
		return nil, IndexStatsOutput{Payload: failure(apperrors.IndexUnavailable("index rebuild failed", err))}, nil
	}
	s.invalidate(p.Name)
	log.Info("index rebuilt", "project", p.Name, "chunks", stats.ChunksTotal)
	return nil, indexStatsOutput(p, stats), nil
}

// CacheClearInput is the input schema for cache.clear.
type CacheClearInput struct {
	Project string `json:"project,omitempty" jsonschema:"project partition to clear, or 'all' for every partition; default the resolved project"`
}

func (s *Server) handleCacheClear(ctx context.Context, req *mcp.CallToolRequest, in CacheClearInput) (
	*mcp.CallToolResult, Payload, error,
) {
	if in.Project == "all" {
		if err := s.exact.ClearAll(); err != nil {
			return nil, failure(err), nil
		}
		s.mu.Lock()
		for _, sess := range s.sessions {
			if sess.semantic != nil {
				_ = sess.semantic.Clear()
			}
		}
		s.mu.Unlock()
		// projects without a live session still have cache files on disk
		projects, err := s.registry.List()
		if err != nil {
			return nil, failure(err), nil
		}
		for _, p := range projects {
			removeSemanticCacheFile(s.logger, p.Name)
		}
		s.logger.Info("cleared all cache partitions")
		return nil, ok(), nil
	}

	p, err := s.resolveProject(in.Project, false)
	if err != nil {
		return nil, failure(err), nil
	}
	if err := s.exact.Clear(p.Name); err != nil {
		return nil, failure(err), nil
	}
	s.mu.Lock()
	if sess, found := s.sessions[p.Name]; found && sess.semantic != nil {
		_ = sess.semantic.Clear()
	}
	s.mu.Unlock()
	removeSemanticCacheFile(s.logger, p.Name)
	s.logger.Info("cleared cache partition", "project", p.Name)
	return nil, ok(), nil
}

// removeSemanticCacheFile drops a project's persisted semantic cache.
// A live session's Clear already removed it, so a missing file is fine.
func removeSemanticCacheFile(logger *slog.Logger, project string) {
	path := store.SemanticCacheEntriesPath(project)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("semantic cache removal failed", "project", project, "path", path, "error", err)
	}
}

// CacheStatusInput is the input schema for cache.status.
type CacheStatusInput struct{}

// CachePartition is one project's response-cache entry counts.
type CachePartition struct {
	Project  string `json:"project"`
	Exact    int    `json:"exact"`
	Semantic int    `json:"semantic"`
}

// CacheStatusOutput is the output schema for cache.status.
type CacheStatusOutput struct {
	Payload
	Partitions []CachePartition `json:"partitions"`
}

func (s *Server) handleCacheStatus(ctx context.Context, req *mcp.CallToolRequest, in CacheStatusInput) (
	*mcp.CallToolResult, CacheStatusOutput, error,
) {
	projects, err := s.registry.List()
	if err != nil {
		return nil, CacheStatusOutput{Payload: failure(err)}, nil
	}

	out := CacheStatusOutput{Payload: ok(), Partitions: []CachePartition{}}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range projects {
		part := CachePartition{Project: p.Name}
		if n, err := s.exact.Count(p.Name); err == nil {
			part.Exact = n
		}
		if sess, found := s.sessions[p.Name]; found && sess.semantic != nil {
			part.Semantic = sess.semantic.Len()
		}
		out.Partitions = append(out.Partitions, part)
	}
	return nil, out, nil
}
