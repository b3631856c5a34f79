// Package cache stores generated answers twice over: an exact cache keyed
// by a hash of the full request, and a semantic cache that matches near-
// identical queries by embedding similarity.
package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL is the cache lifetime when the caller does not pick one.
const DefaultTTL = time.Hour

// ExactCache is a per-project response cache in SQLite. Entries expire
// lazily: an expired row is deleted the first time a read finds it.
type ExactCache struct {
	db *sql.DB
}

// NewExactCache opens (or creates) the response cache database.
func NewExactCache(path string) (*ExactCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	schema := `CREATE TABLE IF NOT EXISTS cache (
	project TEXT NOT NULL,
	k TEXT NOT NULL,
	v TEXT NOT NULL,
	expire_at INTEGER NOT NULL,
	PRIMARY KEY (project, k)
)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &ExactCache{db: db}, nil
}

// keyPayload is hashed to form the cache key. Fields are marshalled in
// struct order, which keeps the key stable across runs.
type keyPayload struct {
	Evidence []string          `json:"evidence"`
	Extra    map[string]string `json:"extra"`
	Messages any               `json:"messages"`
	Model    string            `json:"model"`
}

// MakeKey hashes the full request into a cache key: model, conversation,
// extra parameters, and the fingerprints of the evidence the answer will
// cite. Any change to the evidence invalidates the key.
func MakeKey(model string, messages any, extra map[string]string, evidenceFingerprints []string) string {
	payload := keyPayload{
		Evidence: evidenceFingerprints,
		Extra:    extra,
		Messages: messages,
		Model:    model,
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint identifies one evidence chunk by source and content.
func Fingerprint(source, text string) string {
	sum := sha1.Sum([]byte(source + "|" + text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for a key, or ok=false on a miss. Reading
// an expired entry deletes it.
func (c *ExactCache) Get(project, key string) (string, bool, error) {
	var value string
	var expireAt int64
	err := c.db.QueryRow(
		"SELECT v, expire_at FROM cache WHERE project=? AND k=?", project, key,
	).Scan(&value, &expireAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache: %w", err)
	}
	if expireAt < time.Now().Unix() {
		if _, err := c.db.Exec("DELETE FROM cache WHERE project=? AND k=?", project, key); err != nil {
			return "", false, fmt.Errorf("evict expired entry: %w", err)
		}
		return "", false, nil
	}
	return value, true, nil
}

// Set stores a value under a key with the given lifetime.
func (c *ExactCache) Set(project, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	expireAt := time.Now().Add(ttl).Unix()
	_, err := c.db.Exec(
		"REPLACE INTO cache (project, k, v, expire_at) VALUES (?, ?, ?, ?)",
		project, key, value, expireAt)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Clear drops all entries for a project. An empty project clears the
// global namespace only; ClearAll wipes everything.
func (c *ExactCache) Clear(project string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE project=?", project)
	return err
}

// ClearAll drops every entry across all projects.
func (c *ExactCache) ClearAll() error {
	_, err := c.db.Exec("DELETE FROM cache")
	return err
}

// Count returns the number of live entries for a project.
func (c *ExactCache) Count(project string) (int, error) {
	var n int
	err := c.db.QueryRow(
		"SELECT count(*) FROM cache WHERE project=? AND expire_at >= ?",
		project, time.Now().Unix(),
	).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (c *ExactCache) Close() error {
	return c.db.Close()
}
