package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

func TestProjectPath(t *testing.T) {
	dir := t.TempDir()

	got, err := ProjectPath(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = ProjectPath("")
	assert.Equal(t, errors.CodeInvalidInput, errors.CodeOf(err))

	_, err = ProjectPath(dir + "/does-not-exist")
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		allowAuto bool
		wantErr   bool
	}{
		{"simple", "myproject", false, false},
		{"with hyphen", "my-project_2", false, false},
		{"auto allowed", "auto", true, false},
		{"empty", "", true, true},
		{"spaces", "my project", false, true},
		{"slash", "a/b", false, true},
		{"too long", strings.Repeat("a", 65), false, true},
		{"max length ok", strings.Repeat("a", 64), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProjectName(tt.input, tt.allowAuto)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.input, got)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	got, err := Query("how does auth work")
	require.NoError(t, err)
	assert.Equal(t, "how does auth work", got)

	_, err = Query("")
	assert.Equal(t, errors.CodeInvalidInput, errors.CodeOf(err))

	_, err = Query(strings.Repeat("q", MaxQueryLength+1))
	assert.Error(t, err)

	got, err = Query("a\x00b")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestMemoryKey(t *testing.T) {
	got, err := MemoryKey("build.notes-v2")
	require.NoError(t, err)
	assert.Equal(t, "build.notes-v2", got)

	for _, bad := range []string{"", "with space", "key/slash", strings.Repeat("k", 257)} {
		_, err := MemoryKey(bad)
		assert.Error(t, err, "key %q", bad)
	}
}

func TestSanitizeForDisplay(t *testing.T) {
	assert.Equal(t, "", SanitizeForDisplay("", 10))
	assert.Equal(t, "ab?cd", SanitizeForDisplay("ab\x01cd", 100))
	assert.Equal(t, "a\nb\tc", SanitizeForDisplay("a\nb\tc", 100))

	long := strings.Repeat("x", 50)
	got := SanitizeForDisplay(long, 10)
	assert.True(t, strings.HasSuffix(got, "... (truncated)"))
	assert.True(t, strings.HasPrefix(got, "xxxxxxxxxx"))

	// CJK survives sanitization.
	assert.Equal(t, "數據庫", SanitizeForDisplay("數據庫", 100))
}
