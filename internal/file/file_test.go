package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

func newTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"),
		[]byte("package main\n\nfunc main() {\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util.go"),
		[]byte("package src\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "helper.py"),
		[]byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep", "index.js"),
		[]byte("module.exports = {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"),
		[]byte("SECRET=1\n"), 0o644))
	return root
}

func TestReadWholeFile(t *testing.T) {
	root := newTestTree(t)

	res, err := Read("main.go", root, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalLines)
	assert.Equal(t, 1, res.StartLine)
	assert.Equal(t, 4, res.EndLine)
	assert.False(t, res.Truncated)
	assert.Contains(t, res.Content, "   1| package main")
	assert.Contains(t, res.RawContent, "package main")
}

func TestReadLineRange(t *testing.T) {
	root := newTestTree(t)

	res, err := Read("main.go", root, ReadOptions{StartLine: 3, EndLine: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.StartLine)
	assert.Equal(t, 3, res.EndLine)
	assert.Equal(t, "func main() {", res.RawContent)
	assert.True(t, res.Truncated)
}

func TestReadMaxLines(t *testing.T) {
	root := newTestTree(t)

	res, err := Read("main.go", root, ReadOptions{MaxLines: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.EndLine)
	assert.True(t, res.Truncated)
}

func TestReadErrors(t *testing.T) {
	root := newTestTree(t)

	_, err := Read("missing.go", root, ReadOptions{})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = Read("src", root, ReadOptions{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	_, err = Read("../outside.txt", root, ReadOptions{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	_, err = Read("", root, ReadOptions{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestReadRejectsBinary(t *testing.T) {
	root := newTestTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0xff, 0xfe, 0x00, 0x01}, 0o644))

	_, err := Read("blob.bin", root, ReadOptions{})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestListFlat(t *testing.T) {
	root := newTestTree(t)

	listing, err := List(".", root, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, listing.Files)
	assert.Equal(t, []string{"src"}, listing.Directories)
	assert.False(t, listing.Truncated)
}

func TestListRecursive(t *testing.T) {
	root := newTestTree(t)

	listing, err := List(".", root, ListOptions{Recursive: true, Pattern: "*.go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "src/util.go"}, listing.Files)
	assert.NotContains(t, listing.Files, "src/helper.py")
	assert.NotContains(t, listing.Directories, "node_modules")
	assert.NotContains(t, listing.Directories, "node_modules/dep")
}

func TestListTruncation(t *testing.T) {
	root := newTestTree(t)

	listing, err := List(".", root, ListOptions{Recursive: true, MaxItems: 2})
	require.NoError(t, err)
	assert.True(t, listing.Truncated)
	assert.Equal(t, 2, listing.Count)
}

func TestFind(t *testing.T) {
	root := newTestTree(t)

	found, err := Find("src/*.go", root, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "src/util.go", found[0].Path)
	assert.Greater(t, found[0].Size, int64(0))

	found, err = Find("**.go", root, 0)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = Find("[", root, 0)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	_, err = Find("*.go", filepath.Join(root, "missing"), 0)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestFindSkipsVendorAndHidden(t *testing.T) {
	root := newTestTree(t)

	found, err := Find("**", root, 0)
	require.NoError(t, err)
	for _, f := range found {
		assert.NotContains(t, f.Path, "node_modules")
		assert.NotContains(t, f.Path, ".env")
	}
}

func TestFindByName(t *testing.T) {
	root := newTestTree(t)

	found, err := FindByName("UTIL", root, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "src/util.go", found[0].Path)

	_, err = FindByName("  ", root, 0)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}
