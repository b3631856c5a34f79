// Package mcp exposes the retrieval, answer, memory, and code
// intelligence surface as MCP tools over stdio.
package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zoonderkins/augment-lite-mcp/internal/answer"
	"github.com/zoonderkins/augment-lite-mcp/internal/cache"
	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	"github.com/zoonderkins/augment-lite-mcp/internal/embed"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/index"
	"github.com/zoonderkins/augment-lite-mcp/internal/llm"
	"github.com/zoonderkins/augment-lite-mcp/internal/memory"
	"github.com/zoonderkins/augment-lite-mcp/internal/route"
	"github.com/zoonderkins/augment-lite-mcp/internal/search"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
	"github.com/zoonderkins/augment-lite-mcp/pkg/version"
)

// Server bridges MCP clients with the per-project search engines and
// the shared stores. Engines are opened lazily on first use and cached
// until an index run changes their artifacts.
type Server struct {
	mcp      *mcp.Server
	cfg      *config.Config
	table    *route.Table
	client   *llm.Client
	embedder embed.Embedder
	registry *store.Registry
	indexer  *index.Indexer
	exact    *cache.ExactCache
	mem      *memory.Store
	tasks    *memory.TaskStore
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session holds the retrieval stack for one open project.
type session struct {
	project   store.Project
	engine    *search.Engine
	searcher  *search.Searcher
	iterative *search.IterativeSearcher
	accum     *search.Accumulator
	dual      *search.DualSearcher
	semantic  *cache.SemanticCache
	answers   *answer.Orchestrator
}

// NewServer wires the shared stores and registers every tool. The
// per-project pieces (engine, caches, orchestrator) are created on
// demand inside sessionFor.
func NewServer(cfg *config.Config, table *route.Table) (*Server, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	exact, err := cache.NewExactCache(store.ResponseCachePath())
	if err != nil {
		return nil, err
	}
	mem, err := memory.NewStore(store.MemoryPath())
	if err != nil {
		return nil, err
	}
	tasks, err := memory.NewTaskStore(store.TasksPath())
	if err != nil {
		return nil, err
	}

	embedder := embed.NewFromConfig(cfg.Embeddings)
	s := &Server{
		cfg:      cfg,
		table:    table,
		client:   llm.NewClient(table),
		embedder: embedder,
		registry: store.NewRegistry(store.RegistryPath()),
		indexer:  index.New(cfg, embedder),
		exact:    exact,
		mem:      mem,
		tasks:    tasks,
		logger:   slog.Default(),
		sessions: map[string]*session{},
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "augment-lite",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Serve runs the stdio transport until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio", "version", version.Version)
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped", "error", err)
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// Close releases the shared stores and every cached session.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, sess := range s.sessions {
		if sess.engine != nil {
			_ = sess.engine.Close()
		}
		delete(s.sessions, name)
	}
	_ = s.exact.Close()
	_ = s.mem.Close()
	return s.tasks.Close()
}

// resolveProject maps a tool's project argument to a registered project.
// "auto" and "" resolve from the working directory; with autoInit set,
// an unregistered working directory is registered under its basename.
func (s *Server) resolveProject(name string, autoInit bool) (store.Project, error) {
	if name == "auto" {
		name = ""
	}
	if name != "" {
		cleaned, err := validation.ProjectName(name, false)
		if err != nil {
			return store.Project{}, err
		}
		name = cleaned
	}

	cwd, err := os.Getwd()
	if err != nil {
		return store.Project{}, apperrors.Internal("resolve working directory", err)
	}

	p, err := s.registry.Resolve(name, cwd)
	if err == nil {
		return p, nil
	}
	if !autoInit || name != "" || apperrors.CodeOf(err) != apperrors.CodeNotFound {
		return store.Project{}, err
	}

	root, verr := validation.ProjectPath(cwd)
	if verr != nil {
		return store.Project{}, verr
	}
	p, err = s.registry.Add(filepath.Base(root), root)
	if err != nil {
		return store.Project{}, err
	}
	if _, err := s.registry.SetActive(p.Name); err != nil {
		return store.Project{}, err
	}
	s.logger.Info("auto-registered project", "project", p.Name, "root", p.Root)
	return p, nil
}

// sessionFor returns the retrieval stack for a project, indexing first
// when asked. A run that touched chunks invalidates the cached engine.
func (s *Server) sessionFor(ctx context.Context, projectArg string, autoIndex bool) (*session, error) {
	p, err := s.resolveProject(projectArg, autoIndex)
	if err != nil {
		return nil, err
	}

	if autoIndex {
		stats, err := s.indexer.Run(ctx, p, false, index.NopProgress{})
		if err != nil {
			return nil, apperrors.IndexUnavailable("index build failed", err)
		}
		if stats.ChunksAdded > 0 || stats.ChunksRemoved > 0 {
			s.invalidate(p.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, found := s.sessions[p.Name]; found {
		return sess, nil
	}

	engine, err := search.Open(ctx, p, s.cfg, s.embedder)
	if err != nil {
		return nil, apperrors.IndexUnavailable("open index", err)
	}

	filter := search.NewSubagentFilter(s.client, search.DefaultSubagentModel)
	searcher := search.NewSearcher(engine, filter)
	iterative := search.NewIterativeSearcher(searcher, s.client, search.DefaultSubagentModel)
	accum := search.NewAccumulator(searcher, s.client, search.DefaultSubagentModel)

	var semantic *cache.SemanticCache
	if s.cfg.Cache.SemanticEnabled {
		semantic, err = cache.NewSemanticCache(
			store.SemanticCacheEntriesPath(p.Name), s.embedder, s.cfg.Cache.SemanticThreshold)
		if err != nil {
			s.logger.Warn("semantic cache unavailable", "project", p.Name, "error", err)
			semantic = nil
		}
	}

	sess := &session{
		project:   p,
		engine:    engine,
		searcher:  searcher,
		iterative: iterative,
		accum:     accum,
		dual:      search.NewDualSearcher(searcher, iterative, s.indexer, p),
		semantic:  semantic,
		answers: answer.New(answer.Options{
			Config:      s.cfg,
			Table:       s.table,
			Client:      s.client,
			Searcher:    searcher,
			Iterative:   iterative,
			Accumulator: accum,
			Exact:       s.exact,
			Semantic:    semantic,
			Project:     p,
		}),
	}
	s.sessions[p.Name] = sess
	return sess, nil
}

// invalidate drops a cached session so the next use reopens the engine.
func (s *Server) invalidate(project string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, found := s.sessions[project]; found {
		if sess.engine != nil {
			_ = sess.engine.Close()
		}
		delete(s.sessions, project)
	}
}

// registerTools registers the full tool catalog.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rag.search",
		Description: "Hybrid BM25 + vector search over the indexed project, with optional LLM re-ranking and iterative query expansion. Auto-indexes on first use.",
	}, s.handleRagSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "dual.search",
		Description: "Local hybrid search merged with results from an external semantic engine. Detects stale local indexes and can rebuild them.",
	}, s.handleDualSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "answer.generate",
		Description: "Retrieve evidence and generate a cited answer. Routes to a model by task type and abstains when evidence is weak.",
	}, s.handleAnswerGenerate)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "answer.accumulated",
		Description: "Decompose a complex question into sub-queries, accumulate evidence across them, and generate one synthesized answer.",
	}, s.handleAnswerAccumulated)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "answer.unified",
		Description: "Build a step-by-step retrieval and synthesis plan for the calling agent to execute across engines.",
	}, s.handleAnswerUnified)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.init",
		Description: "Register the project (or the current directory) and build its indexes.",
	}, s.handleProjectInit)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.add",
		Description: "Register a project by name and root path without indexing it.",
	}, s.handleProjectAdd)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.list",
		Description: "List registered projects.",
	}, s.handleProjectList)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.activate",
		Description: "Mark a registered project as the active default.",
	}, s.handleProjectActivate)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.remove",
		Description: "Remove a project from the registry and delete its index artifacts, caches, memories, and tasks.",
	}, s.handleProjectRemove)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.status",
		Description: "Report the resolved project, its root, and index readiness.",
	}, s.handleProjectStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index.status",
		Description: "Report chunk counts and vector availability for the project index.",
	}, s.handleIndexStatus)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index.rebuild",
		Description: "Rebuild the project indexes from scratch.",
	}, s.handleIndexRebuild)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cache.clear",
		Description: "Clear the exact and semantic response caches for one project, or 'all' for every project.",
	}, s.handleCacheClear)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cache.status",
		Description: "Report response cache entry counts.",
	}, s.handleCacheStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.set",
		Description: "Store a long-term memory value under a key, partitioned by project.",
	}, s.handleMemorySet)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.get",
		Description: "Fetch a long-term memory value by key.",
	}, s.handleMemoryGet)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.list",
		Description: "List stored memory entries for a project, most recently updated first.",
	}, s.handleMemoryList)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.delete",
		Description: "Delete a memory entry by key.",
	}, s.handleMemoryDelete)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.add",
		Description: "Add a task, optionally as a subtask of an existing one.",
	}, s.handleTaskAdd)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.list",
		Description: "List tasks by priority, optionally filtered by status. Includes per-status counts.",
	}, s.handleTaskList)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.update",
		Description: "Update a task's title, description, status, priority, or metadata.",
	}, s.handleTaskUpdate)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.current",
		Description: "Return the highest-priority in-progress task.",
	}, s.handleTaskCurrent)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.delete",
		Description: "Delete a task. Subtasks are detached unless subtasks=true deletes them too.",
	}, s.handleTaskDelete)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "code.symbols",
		Description: "Extract the symbol tree of a source file via tree-sitter.",
	}, s.handleCodeSymbols)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "code.find_symbol",
		Description: "Find symbols by name substring across the project or one file.",
	}, s.handleCodeFindSymbol)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "code.references",
		Description: "Find references to a symbol, AST-exact where tree-sitter supports the language.",
	}, s.handleCodeReferences)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search.pattern",
		Description: "Regex search across project files with surrounding context lines.",
	}, s.handleSearchPattern)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "file.read",
		Description: "Read a file inside the project root, optionally a line range, with numbered output.",
	}, s.handleFileRead)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "file.list",
		Description: "List a directory inside the project root, optionally recursive with a glob filter.",
	}, s.handleFileList)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "file.find",
		Description: "Find files by glob pattern or name fragment.",
	}, s.handleFileFind)

	s.logger.Info("MCP tools registered")
}

// generateRequestID creates a short unique id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
