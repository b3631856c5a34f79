package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	state := IndexState{
		"src/main.go": {Size: 1024, ModTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		"README.md":   {Size: 88, ModTime: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)},
	}
	require.NoError(t, SaveIndexState(path, state))

	loaded, err := LoadIndexState(path)
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
}

func TestLoadIndexStateMissing(t *testing.T) {
	loaded, err := LoadIndexState(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestLoadIndexStateCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded, err := LoadIndexState(path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
