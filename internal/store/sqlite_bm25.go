package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

// SQLiteBM25 holds keyword-searchable chunks in a SQLite FTS5 table. Chunk
// identity is list position: rowid i+1 in the content table corresponds to
// index i in the chunk list the index was built from.
type SQLiteBM25 struct {
	db   *sql.DB
	path string
}

// NewSQLiteBM25 opens (or creates) an FTS5-backed index at path.
func NewSQLiteBM25(path string) (*SQLiteBM25, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids table-lock errors from concurrent writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-65536",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	idx := &SQLiteBM25{db: db, path: path}
	if err := idx.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := idx.validate(); err != nil {
		slog.Warn("bm25 index failed integrity check, clearing", "path", path, "error", err)
		if err := idx.clear(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("clear corrupted index: %w", err)
		}
	}
	return idx, nil
}

func (s *SQLiteBM25) createSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	source TEXT NOT NULL
);
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	text,
	content='chunks',
	content_rowid='id',
	tokenize='porter unicode61'
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// validate runs a trivial FTS query to detect a corrupted shadow table.
func (s *SQLiteBM25) validate() error {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM chunks").Scan(&n); err != nil {
		return err
	}
	rows, err := s.db.Query("SELECT rowid FROM chunks_fts WHERE chunks_fts MATCH 'a' LIMIT 1")
	if err != nil {
		// "no such token" style errors are fine, structural errors are not.
		if strings.Contains(err.Error(), "malformed") || strings.Contains(err.Error(), "corrupt") {
			return err
		}
		return nil
	}
	return rows.Close()
}

func (s *SQLiteBM25) clear() error {
	if _, err := s.db.Exec("DROP TABLE IF EXISTS chunks_fts"); err != nil {
		return err
	}
	if _, err := s.db.Exec("DROP TABLE IF EXISTS chunks"); err != nil {
		return err
	}
	return s.createSchema()
}

// Rebuild replaces the index contents with the given chunk list.
func (s *SQLiteBM25) Rebuild(ctx context.Context, chunks []chunk.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks(id, text, source) VALUES(?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, i+1, c.Text, c.Source); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO chunks_fts(chunks_fts) VALUES('rebuild')"); err != nil {
		return fmt.Errorf("rebuild fts: %w", err)
	}
	return tx.Commit()
}

// Search returns up to k chunk positions ranked by BM25 relevance. Query
// tokens are OR-joined so partial matches still rank. FTS syntax errors
// from hostile queries degrade to empty results rather than failing.
func (s *SQLiteBM25) Search(ctx context.Context, query string, k int) ([]BM25Result, error) {
	if k <= 0 {
		return nil, nil
	}
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, bm25(chunks_fts) FROM chunks_fts WHERE chunks_fts MATCH ? ORDER BY bm25(chunks_fts) LIMIT ?`,
		match, k)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			slog.Debug("fts query rejected", "query", query, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []BM25Result
	for rows.Next() {
		var rowid int
		var score float64
		if err := rows.Scan(&rowid, &score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		// bm25() returns lower-is-better; negate so higher is better.
		results = append(results, BM25Result{ChunkIndex: rowid - 1, Score: -score})
	}
	return results, rows.Err()
}

// buildMatchQuery quotes each token and joins with OR. Quoting neutralizes
// FTS5 operators embedded in user input.
func buildMatchQuery(query string) string {
	tokens := chunk.Tokenize(query)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ReplaceAll(t, `"`, "")
		if t == "" {
			continue
		}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// Count reports the number of indexed chunks.
func (s *SQLiteBM25) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM chunks").Scan(&n)
	return n, err
}

// Close releases the underlying database handle.
func (s *SQLiteBM25) Close() error {
	return s.db.Close()
}

var _ BM25Index = (*SQLiteBM25)(nil)
