package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/zoonderkins/augment-lite-mcp/internal/store"
)

// StaticEmbedder generates embeddings by hashing tokens and character
// trigrams into a fixed-width vector. It needs no network or model files,
// so it doubles as the fallback when a remote provider is down. Semantic
// quality is reduced but results are deterministic.
type StaticEmbedder struct{}

var programmingStopWords = store.BuildStopWordMap([]string{
	"func", "function", "def", "class", "return", "import", "const",
	"var", "let", "int", "string", "bool", "void", "true", "false",
	"nil", "null", "this", "self", "new",
})

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// NewStaticEmbedder creates a hash-based embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates an embedding for a single text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	// Identifier tokens carry most of the signal.
	for _, token := range store.TokenizeCode(text) {
		if _, stop := programmingStopWords[token]; stop {
			continue
		}
		vector[hashToIndex(token, StaticDimensions)] += tokenWeight
	}

	// Character trigrams keep partial matches alive for typos and
	// unusual identifiers.
	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, StaticDimensions)] += ngramWeight
	}
	return vector
}

func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding width.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string { return "static" }

// Available always reports true, the static embedder has no dependencies.
func (e *StaticEmbedder) Available(_ context.Context) bool { return true }

// Close releases resources.
func (e *StaticEmbedder) Close() error { return nil }

var _ Embedder = (*StaticEmbedder)(nil)
