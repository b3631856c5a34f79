package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExactCache(t *testing.T) *ExactCache {
	t.Helper()
	c, err := NewExactCache(filepath.Join(t.TempDir(), "response_cache.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestExactCacheRoundTrip(t *testing.T) {
	c := newTestExactCache(t)

	require.NoError(t, c.Set("proj", "key1", `{"answer":"42"}`, time.Hour))

	v, ok, err := c.Get("proj", "key1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"answer":"42"}`, v)

	// different project namespace is a miss
	_, ok, err = c.Get("other", "key1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExactCacheExpiry(t *testing.T) {
	c := newTestExactCache(t)

	require.NoError(t, c.Set("proj", "stale", "v", time.Second))

	// simulate expiry by rewriting expire_at into the past
	_, err := c.db.Exec("UPDATE cache SET expire_at=? WHERE k=?", time.Now().Add(-time.Minute).Unix(), "stale")
	require.NoError(t, err)

	_, ok, err := c.Get("proj", "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	// the expired row was deleted on read
	var n int
	require.NoError(t, c.db.QueryRow("SELECT count(*) FROM cache WHERE k='stale'").Scan(&n))
	assert.Zero(t, n)
}

func TestExactCacheClear(t *testing.T) {
	c := newTestExactCache(t)

	require.NoError(t, c.Set("a", "k", "v", time.Hour))
	require.NoError(t, c.Set("b", "k", "v", time.Hour))

	require.NoError(t, c.Clear("a"))
	_, ok, err := c.Get("a", "k")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = c.Get("b", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ClearAll())
	n, err := c.Count("b")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMakeKeyStability(t *testing.T) {
	messages := []map[string]string{{"role": "user", "content": "how does auth work"}}
	extra := map[string]string{"temperature": "0.2", "route": "general"}
	evidence := []string{Fingerprint("auth.go:1", "func Login()")}

	k1 := MakeKey("glm-main", messages, extra, evidence)
	k2 := MakeKey("glm-main", messages, extra, evidence)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)

	// any ingredient change produces a different key
	assert.NotEqual(t, k1, MakeKey("glm-air", messages, extra, evidence))
	assert.NotEqual(t, k1, MakeKey("glm-main", messages, extra, []string{Fingerprint("auth.go:1", "changed")}))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("a.go:1", "text")
	assert.Len(t, a, 40)
	assert.Equal(t, a, Fingerprint("a.go:1", "text"))
	assert.NotEqual(t, a, Fingerprint("a.go:2", "text"))
	assert.NotEqual(t, a, Fingerprint("a.go:1", "other"))
}
