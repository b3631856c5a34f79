package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/zoonderkins/augment-lite-mcp/internal/chunk"
)

const (
	codeTokenizerName = "code_tokenizer"
	codeStopName      = "code_stop"
	codeAnalyzerName  = "code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopName, codeStopFilterConstructor)
}

// BleveBM25 is the bleve-backed keyword index. Documents are keyed by
// chunk list position so hits map straight back into the chunk list.
type BleveBM25 struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

type bleveDoc struct {
	Content string `json:"content"`
}

// NewBleveBM25 opens (or creates) a bleve index at path. An empty path
// builds an in-memory index, used by tests.
func NewBleveBM25(path string) (*BleveBM25, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil {
			// Corrupted or half-written index. State and chunks live
			// elsewhere, so clearing and reindexing is always safe.
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("clear corrupted index: %w (open error: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}
	return &BleveBM25{index: idx, path: path}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(codeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = codeAnalyzerName
	return indexMapping, nil
}

// Rebuild replaces the index contents with the given chunk list. The whole
// on-disk index is recreated so stale documents cannot survive a rebuild.
func (b *BleveBM25) Rebuild(ctx context.Context, chunks []chunk.Chunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	if err := b.index.Close(); err != nil {
		return fmt.Errorf("close index for rebuild: %w", err)
	}
	indexMapping, err := createIndexMapping()
	if err != nil {
		return fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if b.path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.RemoveAll(b.path); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
		idx, err = bleve.New(b.path, indexMapping)
	}
	if err != nil {
		return fmt.Errorf("recreate index: %w", err)
	}
	b.index = idx

	batch := b.index.NewBatch()
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(strconv.Itoa(i), bleveDoc{Content: c.Text}); err != nil {
			return fmt.Errorf("index chunk %d: %w", i, err)
		}
		if batch.Size() >= 500 {
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("execute batch: %w", err)
			}
			batch = b.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("execute batch: %w", err)
		}
	}
	return nil
}

// Search returns up to k chunk positions ranked by BM25 relevance.
func (b *BleveBM25) Search(ctx context.Context, query string, k int) ([]BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = k

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}

	results := make([]BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		idx, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		results = append(results, BM25Result{ChunkIndex: idx, Score: hit.Score})
	}
	return results, nil
}

// Count reports the number of indexed chunks.
func (b *BleveBM25) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	n, err := b.index.DocCount()
	return int(n), err
}

// Close closes the underlying index.
func (b *BleveBM25) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

// bleveCodeTokenizer feeds code-aware tokens into bleve's analysis chain.
type bleveCodeTokenizer struct{}

func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveCodeStopFilter{stopWords: BuildStopWordMap(DefaultCodeStopWords)}, nil
}

type bleveCodeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveCodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

var _ BM25Index = (*BleveBM25)(nil)
