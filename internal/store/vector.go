package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

// VectorStore is the semantic half of hybrid search. Chunk embeddings live
// in an HNSW graph keyed by chunk list position; the chunks themselves ride
// along in a gob sidecar so a hit can be resolved without the keyword index.
type VectorStore struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[uint64]
	chunks     []chunk.Chunk
	dimensions int
	closed     bool
}

// vectorMetadata is the gob sidecar written next to the graph file.
type vectorMetadata struct {
	Chunks     []chunk.Chunk
	Dimensions int
}

// NewVectorStore creates an empty store for embeddings of the given width.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		graph:      newVectorGraph(),
		dimensions: dimensions,
	}
}

func newVectorGraph() *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return graph
}

// Build replaces the store contents with the given chunks and embeddings,
// one vector per chunk in list order.
func (s *VectorStore) Build(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	for _, v := range vectors {
		if len(v) != s.dimensions {
			return ErrDimensionMismatch{Expected: s.dimensions, Got: len(v)}
		}
	}

	graph := newVectorGraph()
	for i, v := range vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		normalizeVectorInPlace(vec)
		graph.Add(hnsw.MakeNode(uint64(i), vec))
	}

	s.graph = graph
	s.chunks = append([]chunk.Chunk(nil), chunks...)
	return nil
}

// Search finds the k nearest chunks to a query embedding. Scores are cosine
// similarity mapped to [0, 1].
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.dimensions {
		return nil, ErrDimensionMismatch{Expected: s.dimensions, Got: len(query)}
	}
	if k <= 0 || s.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := s.graph.Search(normalized, k)

	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		if node.Key >= uint64(len(s.chunks)) {
			continue
		}
		distance := s.graph.Distance(normalized, node.Value)
		hits = append(hits, VectorHit{
			Chunk: s.chunks[node.Key],
			Score: float64(distanceToScore(distance)),
		})
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return len(s.chunks)
}

// Dimensions reports the embedding width the store was built for.
func (s *VectorStore) Dimensions() int {
	return s.dimensions
}

// Save persists the graph and chunk sidecar atomically.
func (s *VectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}

	return s.saveMetadata(path + ".meta")
}

func (s *VectorStore) saveMetadata(path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	meta := vectorMetadata{Chunks: s.chunks, Dimensions: s.dimensions}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load restores a store previously written by Save.
func (s *VectorStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if err := s.loadMetadata(path + ".meta"); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// graph.Import requires an io.ByteReader.
	s.graph = newVectorGraph()
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func (s *VectorStore) loadMetadata(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var meta vectorMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	s.chunks = meta.Chunks
	s.dimensions = meta.Dimensions
	return nil
}

// Close releases the in-memory graph.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	s.chunks = nil
	return nil
}

// ReadVectorStoreDimensions reads the embedding width of a persisted store
// without loading the graph. Returns 0 when no store exists yet.
func ReadVectorStoreDimensions(path string) (int, error) {
	file, err := os.Open(path + ".meta")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var meta vectorMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return 0, fmt.Errorf("decode metadata: %w", err)
	}
	return meta.Dimensions, nil
}

func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore maps cosine distance (0 to 2) onto a 0 to 1 similarity.
func distanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}
