package store

import (
	"fmt"
	"log/slog"
)

// BM25Backend selects the keyword index implementation.
type BM25Backend string

const (
	// BM25BackendSQLite uses SQLite FTS5 (default). WAL mode allows the
	// CLI and a running server to share the index file.
	BM25BackendSQLite BM25Backend = "sqlite"

	// BM25BackendBleve uses bleve v2. BoltDB holds an exclusive lock, so
	// the index is single-process only.
	BM25BackendBleve BM25Backend = "bleve"
)

// NewBM25Index opens a keyword index for a project using the configured
// backend. When the backend cannot be opened it degrades to the naive
// in-memory index so search stays available, just worse.
func NewBM25Index(project, backend string) (BM25Index, error) {
	idx, err := openBM25Backend(project, backend)
	if err != nil {
		slog.Warn("bm25 backend unavailable, using naive fallback",
			"backend", backend, "project", project, "error", err)
		return NewNaiveBM25(), nil
	}
	return idx, nil
}

func openBM25Backend(project, backend string) (BM25Index, error) {
	switch BM25Backend(backend) {
	case BM25BackendSQLite, "":
		return NewSQLiteBM25(CorpusPath(project, string(BM25BackendSQLite)))
	case BM25BackendBleve:
		return NewBleveBM25(CorpusPath(project, string(BM25BackendBleve)))
	default:
		return nil, fmt.Errorf("unknown bm25 backend: %s (valid options: sqlite, bleve)", backend)
	}
}
