package codeintel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/scanner"
)

const goSource = `package demo

const MaxRetries = 3

type Server struct {
	addr string
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

func (s *Server) Start() error {
	return nil
}
`

const pySource = `import os

class Worker:
    def run(self):
        return os.getpid()

    def stop(self):
        pass

def make_worker():
    return Worker()
`

func newTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "server.go"), []byte(goSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte(pySource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("The Server starts a Worker.\n"), 0o644))
	return root
}

func fileInfoForPath(path string) scanner.FileInfo {
	return scanner.FileInfo{Path: path, AbsPath: "/" + path}
}

func symbolNames(symbols []Symbol) []string {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	return names
}

func TestExtractSymbolsGo(t *testing.T) {
	root := newTestProject(t)

	symbols, err := ExtractSymbols(context.Background(), filepath.Join(root, "server.go"), 2, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"MaxRetries", "Server", "NewServer", "Start"}, symbolNames(symbols))

	byName := map[string]Symbol{}
	for _, s := range symbols {
		byName[s.Name] = s
	}
	assert.Equal(t, "constant", byName["MaxRetries"].Kind)
	assert.Equal(t, "type", byName["Server"].Kind)
	assert.Equal(t, "function", byName["NewServer"].Kind)
	assert.Equal(t, "method", byName["Start"].Kind)
	assert.Equal(t, 5, byName["Server"].Line)
	assert.Greater(t, byName["Server"].EndLine, byName["Server"].Line)
}

func TestExtractSymbolsPython(t *testing.T) {
	root := newTestProject(t)

	symbols, err := ExtractSymbols(context.Background(), filepath.Join(root, "app.py"), 2, true)
	require.NoError(t, err)
	require.Len(t, symbols, 2)

	worker := symbols[0]
	assert.Equal(t, "Worker", worker.Name)
	assert.Equal(t, "class", worker.Kind)
	assert.Contains(t, worker.Body, "def run")
	require.Len(t, worker.Children, 2)
	assert.Equal(t, "run", worker.Children[0].Name)
	assert.Equal(t, "method", worker.Children[0].Kind)
	assert.Equal(t, "Worker/run", worker.Children[0].NamePath)

	assert.Equal(t, "make_worker", symbols[1].Name)
	assert.Equal(t, "function", symbols[1].Kind)
}

func TestExtractSymbolsDepthOne(t *testing.T) {
	root := newTestProject(t)

	symbols, err := ExtractSymbols(context.Background(), filepath.Join(root, "app.py"), 1, false)
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	assert.Empty(t, symbols[0].Children)
}

func TestExtractSymbolsUnsupported(t *testing.T) {
	root := newTestProject(t)

	_, err := ExtractSymbols(context.Background(), filepath.Join(root, "README.md"), 2, false)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestFindSymbol(t *testing.T) {
	root := newTestProject(t)

	results, err := FindSymbol(context.Background(), "worker", FindSymbolOptions{Root: root})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, sym := range results {
		assert.Contains(t, []string{"Worker", "make_worker"}, sym.Name)
		assert.Equal(t, "app.py", sym.File)
	}

	results, err = FindSymbol(context.Background(), "server", FindSymbolOptions{Root: root, MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = FindSymbol(context.Background(), "  ", FindSymbolOptions{Root: root})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestFindReferencesAST(t *testing.T) {
	root := newTestProject(t)

	refs, err := FindReferences(context.Background(), "Worker", root, ReferenceOptions{Glob: "*.py"})
	require.NoError(t, err)
	require.NotEmpty(t, refs)
	for _, ref := range refs {
		assert.Equal(t, "app.py", ref.File)
		assert.Equal(t, "ast", ref.Method)
		assert.Equal(t, "python", ref.Language)
		assert.NotEmpty(t, ref.Context)
	}
	// Definition plus the constructor call in make_worker.
	assert.GreaterOrEqual(t, len(refs), 2)
}

func TestFindReferencesRegexFallback(t *testing.T) {
	root := newTestProject(t)

	refs, err := FindReferences(context.Background(), "Server", root, ReferenceOptions{Glob: "*.md"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "README.md", refs[0].File)
	assert.Equal(t, "regex", refs[0].Method)
	assert.Equal(t, 1, refs[0].Line)
}

func TestFindReferencesValidation(t *testing.T) {
	root := newTestProject(t)

	_, err := FindReferences(context.Background(), "not a symbol", root, ReferenceOptions{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestSearchPattern(t *testing.T) {
	root := newTestProject(t)

	matches, err := SearchPattern(context.Background(), `def \w+`, root, PatternOptions{Glob: "*.py"})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "app.py", matches[0].File)
	assert.Equal(t, "def run", matches[0].Match)

	matches, err = SearchPattern(context.Background(), `SERVER`, root, PatternOptions{IgnoreCase: true, Glob: "*.md"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = SearchPattern(context.Background(), `[`, root, PatternOptions{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	matches, err = SearchPattern(context.Background(), `def \w+`, root, PatternOptions{Glob: "*.py", MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestGlobFilter(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.py", "app.py", true},
		{"*.py", "sub/app.py", false},
		{"**.py", "sub/app.py", true},
		{"src/*.go", "src/main.go", true},
		{"src/*.go", "main.go", false},
	}
	for _, tc := range cases {
		filter, err := globFilter(tc.pattern)
		require.NoError(t, err)
		got := filter(fileInfoForPath(tc.path))
		assert.Equal(t, tc.want, got, "%s vs %s", tc.pattern, tc.path)
	}

	filter, err := globFilter("")
	require.NoError(t, err)
	assert.Nil(t, filter)

	_, err = globFilter("[")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}
