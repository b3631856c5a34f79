package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zoonderkins/augment-lite-mcp/internal/logging"
)

// Per-project artifact paths under the data directory. Partitioning is
// by file-name suffix so that deleting a project is a matter of removing
// every file carrying its name.

// CorpusPath returns the BM25 store path for the given backend.
func CorpusPath(project, backend string) string {
	if backend == "bleve" {
		return filepath.Join(logging.DataDir(), fmt.Sprintf("corpus_%s.bleve", project))
	}
	return filepath.Join(logging.DataDir(), fmt.Sprintf("corpus_%s.sqlite", project))
}

// ChunksPath returns the chunk list path (one JSON chunk per line).
func ChunksPath(project string) string {
	return filepath.Join(logging.DataDir(), fmt.Sprintf("chunks_%s.jsonl", project))
}

// IndexStatePath returns the change-detection state path.
func IndexStatePath(project string) string {
	return filepath.Join(logging.DataDir(), fmt.Sprintf("index_state_%s.json", project))
}

// VectorIndexPath returns the dense index path. A ".meta" sidecar with
// the chunk list sits next to it.
func VectorIndexPath(project string) string {
	return filepath.Join(logging.DataDir(), fmt.Sprintf("vector_index_%s.hnsw", project))
}

// SemanticCacheEntriesPath returns the semantic cache entry list path.
func SemanticCacheEntriesPath(project string) string {
	return filepath.Join(logging.DataDir(), fmt.Sprintf("semantic_cache_entries_%s.gob", project))
}

// ResponseCachePath returns the shared exact-cache database path.
func ResponseCachePath() string {
	return filepath.Join(logging.DataDir(), "response_cache.sqlite")
}

// MemoryPath returns the shared long-term memory database path.
func MemoryPath() string {
	return filepath.Join(logging.DataDir(), "longterm.sqlite")
}

// TasksPath returns the task store database path.
func TasksPath() string {
	return filepath.Join(logging.DataDir(), "memory.sqlite")
}

// RegistryPath returns the project registry path.
func RegistryPath() string {
	return filepath.Join(logging.DataDir(), "projects.json")
}

// IndexLockPath returns the advisory lock file guarding index rebuilds.
func IndexLockPath(project string) string {
	return filepath.Join(logging.DataDir(), fmt.Sprintf("index_%s.lock", project))
}

// RemoveArtifacts deletes every file partition carrying the project's
// name. Rows in the shared databases (response cache, memory, tasks)
// are the caller's to purge. The first removal error is returned but
// the sweep keeps going so one failure does not strand the rest.
func RemoveArtifacts(project string) error {
	var firstErr error
	sqliteCorpus := CorpusPath(project, "sqlite")
	for _, path := range []string{
		ChunksPath(project),
		IndexStatePath(project),
		VectorIndexPath(project),
		VectorIndexPath(project) + ".meta",
		SemanticCacheEntriesPath(project),
		IndexLockPath(project),
		sqliteCorpus,
		sqliteCorpus + "-wal",
		sqliteCorpus + "-shm",
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	// the bleve backend stores a directory
	if err := os.RemoveAll(CorpusPath(project, "bleve")); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
