package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDirEnvOverride(t *testing.T) {
	t.Setenv(EnvDataDir, "/tmp/custom-augment")
	assert.Equal(t, "/tmp/custom-augment", DataDir())
}

func TestDataDirDefault(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".augment-lite"), DataDir())
}

func TestDebugEnabled(t *testing.T) {
	t.Setenv(EnvDebug, "")
	assert.False(t, DebugEnabled())
	t.Setenv(EnvDebug, "1")
	assert.True(t, DebugEnabled())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestSetupWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	logPath := filepath.Join(dir, "logs", "server.log")
	logger, cleanup, err := Setup(Config{
		Level:         "info",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      2,
		WriteToStderr: false,
	})
	require.NoError(t, err)

	logger.Info("hello", slog.String("component", "test"))
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	var entry map[string]any
	line := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)[0]
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
}

func TestRotatingWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	// Force rotation by shrinking the threshold.
	w.maxSize = 64

	payload := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte(payload))
		require.NoError(t, err)
	}

	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file should exist")
}

func TestRotatingWriterKeepsMaxFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()
	w.maxSize = 16

	for i := 0; i < 10; i++ {
		_, err := w.Write([]byte(strings.Repeat("y", 15) + "\n"))
		require.NoError(t, err)
	}

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 2)
}
