// Package memory implements persistent agent state: a key-value long
// term memory and a structured task tracker, both partitioned per
// project in SQLite.
package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/validation"
)

// Entry is one long-term memory record.
type Entry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store is the long-term key-value memory. An empty project name is the
// global partition.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the memory database at path.
func NewStore(path string) (*Store, error) {
	db, err := openDB(path, `
CREATE TABLE IF NOT EXISTS mem (
	project TEXT NOT NULL,
	k TEXT NOT NULL,
	v TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (project, k)
);`)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get returns the value for key, or ok=false when absent.
func (s *Store) Get(project, key string) (string, bool, error) {
	key, err := validation.MemoryKey(key)
	if err != nil {
		return "", false, err
	}
	var v string
	err = s.db.QueryRow("SELECT v FROM mem WHERE project=? AND k=?", project, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("memory get: %w", err)
	}
	return v, true, nil
}

// Set stores or replaces a value. The original created_at survives a
// replace only in spirit; REPLACE rewrites the row, matching how the
// store has always behaved.
func (s *Store) Set(project, key, value string) error {
	key, err := validation.MemoryKey(key)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err = s.db.Exec(
		"REPLACE INTO mem (project, k, v, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		project, key, value, now, now)
	if err != nil {
		return fmt.Errorf("memory set: %w", err)
	}
	return nil
}

// List returns all entries of a project, most recently updated first.
func (s *Store) List(project string) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT k, v, updated_at FROM mem WHERE project=? ORDER BY updated_at DESC, k ASC", project)
	if err != nil {
		return nil, fmt.Errorf("memory list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a key. Deleting an absent key is an error so the agent
// learns the key was wrong.
func (s *Store) Delete(project, key string) error {
	key, err := validation.MemoryKey(key)
	if err != nil {
		return err
	}
	res, err := s.db.Exec("DELETE FROM mem WHERE project=? AND k=?", project, key)
	if err != nil {
		return fmt.Errorf("memory delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound(fmt.Sprintf("memory key %q not found", key))
	}
	return nil
}

// Purge removes every entry in a project's partition. Called when the
// project itself is deleted, so an already empty partition is fine.
func (s *Store) Purge(project string) error {
	if _, err := s.db.Exec("DELETE FROM mem WHERE project=?", project); err != nil {
		return fmt.Errorf("memory purge: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func openDB(path, schema string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}
