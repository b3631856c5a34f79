package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/config"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/route"
	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("AUGMENT_DB_DIR", t.TempDir())

	table, err := route.Load()
	require.NoError(t, err)

	s, err := NewServer(config.NewConfig(), table)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newTestProject writes a small source tree and registers it.
func newTestProject(t *testing.T, s *Server, name string) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "widget.go", "package widget\n\n// Frobnicate adjusts the widget.\nfunc Frobnicate() int {\n\treturn 42\n}\n")
	writeFile(t, root, "docs/readme.md", "# Widget\n\nThe frobnicate helper adjusts widgets.\n")

	_, err := s.registry.Add(name, root)
	require.NoError(t, err)
	return root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestFailurePayload(t *testing.T) {
	p := failure(apperrors.InvalidInput("query must not be empty"))
	assert.False(t, p.OK)
	assert.Equal(t, "INVALID_INPUT: query must not be empty", p.Error)
	assert.Empty(t, p.Suggestion)

	p = failure(apperrors.IndexUnavailable("open index", nil))
	assert.True(t, strings.HasPrefix(p.Error, "INDEX_UNAVAILABLE"))
	assert.Contains(t, p.Suggestion, "index.rebuild")

	p = failure(apperrors.NotFound("project nope is not registered"))
	assert.True(t, strings.HasPrefix(p.Error, "NOT_FOUND"))
	assert.NotEmpty(t, p.Suggestion)
}

func TestResolveProjectUnknown(t *testing.T) {
	s := newTestServer(t)

	_, err := s.resolveProject("nope", false)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestResolveProjectAutoInit(t *testing.T) {
	s := newTestServer(t)

	dir := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	t.Chdir(dir)

	p, err := s.resolveProject("", true)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
	assert.True(t, p.Active)

	// Second resolution finds the registration instead of duplicating it.
	again, err := s.resolveProject("auto", true)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
}

func TestProjectAddListActivateRemove(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	root := t.TempDir()

	_, out, err := s.handleProjectAdd(ctx, nil, ProjectAddInput{Project: "alpha", Path: root})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	assert.Equal(t, "alpha", out.Project)

	_, bad, err := s.handleProjectAdd(ctx, nil, ProjectAddInput{Project: "bad name!", Path: root})
	require.NoError(t, err)
	assert.False(t, bad.OK)
	assert.True(t, strings.HasPrefix(bad.Error, "INVALID_INPUT"))

	_, list, err := s.handleProjectList(ctx, nil, ProjectListInput{})
	require.NoError(t, err)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, "alpha", list.Projects[0].Project)

	_, act, err := s.handleProjectActivate(ctx, nil, ProjectNameInput{Project: "alpha"})
	require.NoError(t, err)
	assert.True(t, act.Active)

	_, rm, err := s.handleProjectRemove(ctx, nil, ProjectNameInput{Project: "alpha"})
	require.NoError(t, err)
	assert.True(t, rm.OK)

	_, list, err = s.handleProjectList(ctx, nil, ProjectListInput{})
	require.NoError(t, err)
	assert.Empty(t, list.Projects)
}

func TestProjectStatusUnindexed(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")

	_, out, err := s.handleProjectStatus(context.Background(), nil, ProjectStatusInput{Project: "widget"})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	assert.False(t, out.Indexed)
	assert.Zero(t, out.ChunksTotal)
	assert.False(t, out.HasVectors)
	assert.NotEmpty(t, out.EmbedderModel)
}

func TestProjectInitBuildsIndex(t *testing.T) {
	s := newTestServer(t)
	root := newTestProject(t, s, "widget")

	_, out, err := s.handleProjectInit(context.Background(), nil, ProjectInitInput{
		Project: "widget",
		Path:    root,
	})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	assert.Equal(t, "widget", out.Project)
	assert.Positive(t, out.ChunksTotal)

	_, status, err := s.handleIndexStatus(context.Background(), nil, ProjectStatusInput{Project: "widget"})
	require.NoError(t, err)
	assert.True(t, status.Indexed)
	assert.True(t, status.HasVectors)
	assert.Positive(t, status.FilesIndexed)
}

func TestProjectInitSkipsVectors(t *testing.T) {
	s := newTestServer(t)
	root := newTestProject(t, s, "widget")

	_, out, err := s.handleProjectInit(context.Background(), nil, ProjectInitInput{
		Project:     "widget",
		Path:        root,
		BuildVector: boolPtr(false),
	})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)

	_, status, err := s.handleIndexStatus(context.Background(), nil, ProjectStatusInput{Project: "widget"})
	require.NoError(t, err)
	assert.True(t, status.Indexed)
	assert.False(t, status.HasVectors)
}

func TestRagSearchEndToEnd(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")

	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{
		Query:       "frobnicate",
		Project:     "widget",
		UseSubagent: boolPtr(false),
	})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	assert.Equal(t, "widget", out.Project)
	require.NotEmpty(t, out.Hits)
	assert.Contains(t, strings.ToLower(out.Hits[0].Text), "frobnicate")
}

func TestRagSearchZeroK(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")

	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{
		Query:       "frobnicate",
		Project:     "widget",
		K:           intPtr(0),
		UseSubagent: boolPtr(false),
	})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	assert.Empty(t, out.Hits)
}

func TestRagSearchEmptyQuery(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleRagSearch(context.Background(), nil, RagSearchInput{Query: "   "})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.True(t, strings.HasPrefix(out.Error, "INVALID_INPUT"))
}

func TestIndexRebuildVectorOnlyNeedsChunks(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")

	_, out, err := s.handleIndexRebuild(context.Background(), nil, IndexRebuildInput{
		Project:    "widget",
		VectorOnly: true,
	})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.True(t, strings.HasPrefix(out.Error, "INDEX_UNAVAILABLE"))
}

func TestMemoryHandlers(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, set, err := s.handleMemorySet(ctx, nil, MemorySetInput{Key: "style", Value: "tabs"})
	require.NoError(t, err)
	require.True(t, set.OK, set.Error)

	_, got, err := s.handleMemoryGet(ctx, nil, MemoryKeyInput{Key: "style"})
	require.NoError(t, err)
	require.True(t, got.OK)
	assert.True(t, got.Found)
	assert.Equal(t, "tabs", got.Value)

	_, list, err := s.handleMemoryList(ctx, nil, MemoryListInput{})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "style", list.Entries[0].Key)

	_, del, err := s.handleMemoryDelete(ctx, nil, MemoryKeyInput{Key: "style"})
	require.NoError(t, err)
	assert.True(t, del.OK)

	_, got, err = s.handleMemoryGet(ctx, nil, MemoryKeyInput{Key: "style"})
	require.NoError(t, err)
	assert.True(t, got.OK)
	assert.False(t, got.Found)
}

func TestMemoryKeyValidation(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleMemorySet(context.Background(), nil, MemorySetInput{Key: "", Value: "v"})
	require.NoError(t, err)
	assert.False(t, out.OK)
	assert.True(t, strings.HasPrefix(out.Error, "INVALID_INPUT"))
}

func TestTaskHandlers(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, added, err := s.handleTaskAdd(ctx, nil, TaskAddInput{Title: "wire the parser", Priority: 5})
	require.NoError(t, err)
	require.True(t, added.OK, added.Error)
	require.NotNil(t, added.Task)

	_, upd, err := s.handleTaskUpdate(ctx, nil, TaskUpdateInput{
		ID:     added.Task.ID,
		Status: strPtr("in_progress"),
	})
	require.NoError(t, err)
	require.True(t, upd.OK, upd.Error)
	assert.Equal(t, "in_progress", upd.Task.Status)

	_, cur, err := s.handleTaskCurrent(ctx, nil, TaskCurrentInput{})
	require.NoError(t, err)
	require.True(t, cur.OK)
	require.NotNil(t, cur.Task)
	assert.Equal(t, added.Task.ID, cur.Task.ID)

	_, list, err := s.handleTaskList(ctx, nil, TaskListInput{})
	require.NoError(t, err)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, 1, list.Stats["in_progress"])
	assert.Equal(t, 0, list.Stats["pending"])

	_, del, err := s.handleTaskDelete(ctx, nil, TaskDeleteInput{ID: added.Task.ID})
	require.NoError(t, err)
	assert.True(t, del.OK)

	_, list, err = s.handleTaskList(ctx, nil, TaskListInput{})
	require.NoError(t, err)
	assert.Empty(t, list.Tasks)
}

func TestFileHandlers(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")
	ctx := context.Background()

	_, read, err := s.handleFileRead(ctx, nil, FileReadInput{Project: "widget", Path: "widget.go"})
	require.NoError(t, err)
	require.True(t, read.OK, read.Error)
	assert.Contains(t, read.Content, "Frobnicate")
	assert.Contains(t, read.Content, "   1| ")

	_, escape, err := s.handleFileRead(ctx, nil, FileReadInput{Project: "widget", Path: "../secret"})
	require.NoError(t, err)
	assert.False(t, escape.OK)
	assert.True(t, strings.HasPrefix(escape.Error, "INVALID_INPUT"))

	_, list, err := s.handleFileList(ctx, nil, FileListInput{Project: "widget"})
	require.NoError(t, err)
	require.True(t, list.OK, list.Error)
	assert.Contains(t, list.Files, "widget.go")
	assert.Contains(t, list.Directories, "docs")

	_, find, err := s.handleFileFind(ctx, nil, FileFindInput{Project: "widget", Pattern: "**.md"})
	require.NoError(t, err)
	require.True(t, find.OK, find.Error)
	require.Len(t, find.Files, 1)
	assert.Equal(t, "docs/readme.md", find.Files[0].Path)

	_, none, err := s.handleFileFind(ctx, nil, FileFindInput{Project: "widget"})
	require.NoError(t, err)
	assert.False(t, none.OK)
	assert.True(t, strings.HasPrefix(none.Error, "INVALID_INPUT"))
}

func TestCodeSymbolsHandler(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")
	ctx := context.Background()

	_, out, err := s.handleCodeSymbols(ctx, nil, CodeSymbolsInput{Project: "widget", Path: "widget.go"})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	require.NotEmpty(t, out.Symbols)

	names := make([]string, 0, len(out.Symbols))
	for _, sym := range out.Symbols {
		names = append(names, sym.Name)
	}
	assert.Contains(t, names, "Frobnicate")

	_, bad, err := s.handleCodeSymbols(ctx, nil, CodeSymbolsInput{Project: "widget", Path: "docs/readme.md"})
	require.NoError(t, err)
	assert.False(t, bad.OK)
	assert.True(t, strings.HasPrefix(bad.Error, "INVALID_INPUT"))
}

func TestSearchPatternHandler(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")

	_, out, err := s.handleSearchPattern(context.Background(), nil, SearchPatternInput{
		Project: "widget",
		Pattern: `func \w+`,
	})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	require.Len(t, out.Matches, 1)
	assert.Equal(t, "widget.go", out.Matches[0].File)
}

func TestCodeReferencesHandler(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")

	_, out, err := s.handleCodeReferences(context.Background(), nil, CodeReferencesInput{
		Project: "widget",
		Symbol:  "Frobnicate",
		Glob:    "**.go",
	})
	require.NoError(t, err)
	require.True(t, out.OK, out.Error)
	require.NotEmpty(t, out.References)
	assert.Equal(t, "widget.go", out.References[0].File)
}

func TestCacheStatusAndClear(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")
	ctx := context.Background()

	require.NoError(t, s.exact.Set("widget", "k", "v", 0))

	_, status, err := s.handleCacheStatus(ctx, nil, CacheStatusInput{})
	require.NoError(t, err)
	require.True(t, status.OK, status.Error)
	require.Len(t, status.Partitions, 1)
	assert.Equal(t, 1, status.Partitions[0].Exact)

	_, cleared, err := s.handleCacheClear(ctx, nil, CacheClearInput{Project: "all"})
	require.NoError(t, err)
	assert.True(t, cleared.OK)

	_, status, err = s.handleCacheStatus(ctx, nil, CacheStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, status.Partitions[0].Exact)
}

func TestCacheClearRemovesPersistedSemanticCache(t *testing.T) {
	s := newTestServer(t)
	newTestProject(t, s, "widget")
	newTestProject(t, s, "gadget")
	ctx := context.Background()

	// persisted semantic caches with no live session behind them
	widgetCache := store.SemanticCacheEntriesPath("widget")
	gadgetCache := store.SemanticCacheEntriesPath("gadget")
	require.NoError(t, os.WriteFile(widgetCache, []byte("entries"), 0o644))
	require.NoError(t, os.WriteFile(gadgetCache, []byte("entries"), 0o644))

	_, cleared, err := s.handleCacheClear(ctx, nil, CacheClearInput{Project: "widget"})
	require.NoError(t, err)
	require.True(t, cleared.OK, cleared.Error)
	assert.NoFileExists(t, widgetCache)
	assert.FileExists(t, gadgetCache)

	_, cleared, err = s.handleCacheClear(ctx, nil, CacheClearInput{Project: "all"})
	require.NoError(t, err)
	require.True(t, cleared.OK, cleared.Error)
	assert.NoFileExists(t, gadgetCache)
}

func TestProjectRemoveDeletesArtifacts(t *testing.T) {
	s := newTestServer(t)
	root := newTestProject(t, s, "widget")
	ctx := context.Background()

	_, built, err := s.handleProjectInit(ctx, nil, ProjectInitInput{Project: "widget", Path: root})
	require.NoError(t, err)
	require.True(t, built.OK, built.Error)

	require.NoError(t, s.exact.Set("widget", "q", "cached", 0))
	require.NoError(t, s.mem.Set("widget", "style", "tabs"))
	_, err = s.tasks.Add("widget", "ship it", "", 1, nil, "")
	require.NoError(t, err)
	semanticCache := store.SemanticCacheEntriesPath("widget")
	require.NoError(t, os.WriteFile(semanticCache, []byte("entries"), 0o644))

	_, rm, err := s.handleProjectRemove(ctx, nil, ProjectNameInput{Project: "widget"})
	require.NoError(t, err)
	require.True(t, rm.OK, rm.Error)

	for _, path := range []string{
		store.ChunksPath("widget"),
		store.IndexStatePath("widget"),
		store.VectorIndexPath("widget"),
		store.VectorIndexPath("widget") + ".meta",
		store.CorpusPath("widget", s.cfg.Search.BM25Backend),
		semanticCache,
	} {
		assert.NoFileExists(t, path)
	}

	n, err := s.exact.Count("widget")
	require.NoError(t, err)
	assert.Zero(t, n)
	entries, err := s.mem.List("widget")
	require.NoError(t, err)
	assert.Empty(t, entries)
	tasks, err := s.tasks.List("widget", "")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
