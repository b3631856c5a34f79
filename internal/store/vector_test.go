package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

func testVectors() ([]chunk.Chunk, [][]float32) {
	chunks := []chunk.Chunk{
		{Text: "alpha", Source: "a.go:1"},
		{Text: "beta", Source: "b.go:1"},
		{Text: "gamma", Source: "c.go:1"},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	return chunks, vectors
}

func TestVectorStoreBuildAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(4)
	defer func() { _ = s.Close() }()

	chunks, vectors := testVectors()
	require.NoError(t, s.Build(ctx, chunks, vectors))
	assert.Equal(t, 3, s.Count())

	hits, err := s.Search(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.go:1", hits[0].Chunk.Source)
	assert.InDelta(t, 1.0, hits[0].Score, 0.05)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(4)
	defer func() { _ = s.Close() }()

	err := s.Build(ctx, []chunk.Chunk{{Text: "x", Source: "x.go:1"}}, [][]float32{{1, 0}})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	chunks, vectors := testVectors()
	require.NoError(t, s.Build(ctx, chunks, vectors))
	_, err = s.Search(ctx, []float32{1, 0}, 2)
	require.ErrorAs(t, err, &dimErr)
}

func TestVectorStoreEmptySearch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(4)
	defer func() { _ = s.Close() }()

	hits, err := s.Search(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	s := NewVectorStore(4)
	chunks, vectors := testVectors()
	require.NoError(t, s.Build(ctx, chunks, vectors))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	dims, err := ReadVectorStoreDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)

	loaded := NewVectorStore(0)
	require.NoError(t, loaded.Load(path))
	defer func() { _ = loaded.Close() }()

	assert.Equal(t, 3, loaded.Count())
	assert.Equal(t, 4, loaded.Dimensions())

	hits, err := loaded.Search(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b.go:1", hits[0].Chunk.Source)
}

func TestReadVectorStoreDimensionsMissing(t *testing.T) {
	dims, err := ReadVectorStoreDimensions(filepath.Join(t.TempDir(), "nope.hnsw"))
	require.NoError(t, err)
	assert.Zero(t, dims)
}

func TestVectorStoreBuildReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore(4)
	defer func() { _ = s.Close() }()

	chunks, vectors := testVectors()
	require.NoError(t, s.Build(ctx, chunks, vectors))
	require.NoError(t, s.Build(ctx, chunks[:1], vectors[:1]))
	assert.Equal(t, 1, s.Count())
}
