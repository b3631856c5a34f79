package logging

import (
	"os"
	"path/filepath"
)

// EnvDataDir overrides where indexes, caches, and logs are stored.
const EnvDataDir = "AUGMENT_DB_DIR"

// EnvDebug enables debug-level logging when set to a non-empty value.
const EnvDebug = "AUGMENT_DEBUG"

// DataDir returns the root data directory. AUGMENT_DB_DIR takes
// precedence; otherwise ~/.augment-lite is used, falling back to the
// temp directory when no home is available.
func DataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".augment-lite")
	}
	return filepath.Join(home, ".augment-lite")
}

// LogDir returns the log directory under the data directory.
func LogDir() string {
	return filepath.Join(DataDir(), "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(LogDir(), "server.log")
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(LogDir(), 0o755)
}

// ModelsConfigPath returns the path of the optional routing table
// override in the data directory.
func ModelsConfigPath() string {
	return filepath.Join(DataDir(), "models.yaml")
}

// DebugEnabled reports whether AUGMENT_DEBUG is set.
func DebugEnabled() bool {
	return os.Getenv(EnvDebug) != ""
}
