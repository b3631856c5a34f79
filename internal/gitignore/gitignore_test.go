package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"glob extension", "*.log", "error.log", false, true},
		{"glob extension nested", "*.log", "logs/error.log", false, true},
		{"glob no match", "*.log", "main.go", false, false},
		{"exact name", "node_modules", "node_modules", true, true},
		{"name anywhere", "node_modules", "web/node_modules", true, true},
		{"dir only matches dir", "build/", "build", true, true},
		{"dir only matches contents", "build/", "build/out.o", false, true},
		{"dir only rejects file", "build/", "build", false, false},
		{"anchored", "/dist", "dist", true, true},
		{"anchored not nested", "/dist", "web/dist", true, false},
		{"question mark", "?.txt", "a.txt", false, true},
		{"question mark no slash", "?.txt", "ab.txt", false, false},
		{"double star prefix", "**/temp", "a/b/temp", true, true},
		{"internal slash anchors", "doc/frotz", "doc/frotz", true, true},
		{"internal slash not nested", "doc/frotz", "a/doc/frotz", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.AddPattern(tt.pattern)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestNegation(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("!important.log")

	assert.True(t, m.Match("error.log", false))
	assert.False(t, m.Match("important.log", false))
}

func TestCommentsAndBlankLines(t *testing.T) {
	m := New()
	m.AddPattern("# a comment")
	m.AddPattern("")
	m.AddPattern("   ")
	assert.False(t, m.Match("anything", false))

	m.AddPattern(`\#literal`)
	assert.True(t, m.Match("#literal", false))
}

func TestNestedBase(t *testing.T) {
	m := New()
	m.AddPatternWithBase("*.tmp", "src")

	assert.True(t, m.Match("src/a.tmp", false))
	assert.False(t, m.Match("a.tmp", false))
	assert.False(t, m.Match("other/a.tmp", false))
}

func TestAddFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("*.bak\n# comment\nvendor/\n"), 0o644))

	m := New()
	require.NoError(t, m.AddFromFile(path, ""))

	assert.True(t, m.Match("old.bak", false))
	assert.True(t, m.Match("vendor/lib.go", false))
	assert.False(t, m.Match("main.go", false))
}

func TestParsePatterns(t *testing.T) {
	got := ParsePatterns("*.log\n\n# comment\nbuild/\n")
	assert.Equal(t, []string{"*.log", "build/"}, got)
}
