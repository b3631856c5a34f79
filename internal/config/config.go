// Package config loads and validates augment-lite-mcp configuration.
//
// Configuration hierarchy, later entries win:
//  1. Hardcoded defaults (NewConfig)
//  2. config.yaml in the data directory
//  3. Environment variables (AUGMENT_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zoonderkins/augment-lite-mcp/internal/logging"
)

// Config represents the complete augment-lite-mcp configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Guardrail  GuardrailConfig  `yaml:"guardrail" json:"guardrail"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	// BM25Weight is the weight for lexical BM25 scores (0.0-1.0).
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`

	// VectorWeight is the weight for dense cosine scores (0.0-1.0).
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`

	// DefaultK is the default number of hits returned per search.
	DefaultK int `yaml:"default_k" json:"default_k"`

	// MaxPerFile caps how many chunks of the same file a result set may carry.
	MaxPerFile int `yaml:"max_per_file" json:"max_per_file"`

	// BM25Backend selects the BM25 index backend.
	// Options: "sqlite" (default, concurrent access) or "bleve".
	BM25Backend string `yaml:"bm25_backend" json:"bm25_backend"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "api" (remote with local fallback) or "static" (local only).
	Provider string `yaml:"provider" json:"provider"`

	// BaseURLEnv names the environment variable carrying the API base URL.
	BaseURLEnv string `yaml:"base_url_env" json:"base_url_env"`

	// APIKeyEnv names the environment variable carrying the API key.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// Model is the embedding model identifier sent to the API.
	Model string `yaml:"model" json:"model"`

	// Dimensions is the expected embedding dimensionality.
	// A provider returning a different width is a configuration error.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// BatchSize is how many texts are embedded per API request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// TimeoutSeconds bounds each embedding HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// CacheSize is the LRU capacity of the embedding cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexConfig configures chunking and file scanning.
type IndexConfig struct {
	// CodeChunkLines is the window size for line-based code chunks.
	CodeChunkLines int `yaml:"code_chunk_lines" json:"code_chunk_lines"`

	// CodeChunkOverlap is the line overlap between consecutive code chunks.
	CodeChunkOverlap int `yaml:"code_chunk_overlap" json:"code_chunk_overlap"`

	// DocChunkTokens is the window size for token-based prose chunks.
	DocChunkTokens int `yaml:"doc_chunk_tokens" json:"doc_chunk_tokens"`

	// DocChunkOverlap is the token overlap between consecutive prose chunks.
	DocChunkOverlap int `yaml:"doc_chunk_overlap" json:"doc_chunk_overlap"`

	// MaxFileSize is the largest file (bytes) the scanner will index.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// GuardrailConfig configures the abstain guardrail thresholds.
type GuardrailConfig struct {
	MinHits      int     `yaml:"min_hits" json:"min_hits"`
	MinScore     float64 `yaml:"min_score" json:"min_score"`
	MinDiversity int     `yaml:"min_diversity" json:"min_diversity"`
	MinAvgScore  float64 `yaml:"min_avg_score" json:"min_avg_score"`
}

// CacheConfig configures the response caches.
type CacheConfig struct {
	// AnswerTTLSeconds is the lifetime of cached answers.
	AnswerTTLSeconds int `yaml:"answer_ttl_seconds" json:"answer_ttl_seconds"`

	// SemanticEnabled toggles the semantic-similarity cache.
	SemanticEnabled bool `yaml:"semantic_enabled" json:"semantic_enabled"`

	// SemanticThreshold is the minimum cosine similarity for a semantic hit.
	SemanticThreshold float64 `yaml:"semantic_threshold" json:"semantic_threshold"`
}

// ServerConfig configures the MCP server process.
type ServerConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			BM25Weight:   0.5,
			VectorWeight: 0.5,
			DefaultK:     8,
			MaxPerFile:   2,
			BM25Backend:  "sqlite",
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "api",
			BaseURLEnv:     "AUGMENT_EMBED_BASE_URL",
			APIKeyEnv:      "AUGMENT_EMBED_API_KEY",
			Model:          "text-embedding-3-small",
			Dimensions:     256,
			BatchSize:      10,
			TimeoutSeconds: 90,
			CacheSize:      10000,
		},
		Index: IndexConfig{
			CodeChunkLines:   50,
			CodeChunkOverlap: 10,
			DocChunkTokens:   256,
			DocChunkOverlap:  32,
			MaxFileSize:      1 << 20,
		},
		Guardrail: GuardrailConfig{
			MinHits:      1,
			MinScore:     0.1,
			MinDiversity: 1,
			MinAvgScore:  0.05,
		},
		Cache: CacheConfig{
			AnswerTTLSeconds:  7200,
			SemanticEnabled:   true,
			SemanticThreshold: 0.95,
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// ConfigPath returns the path of the optional config file in the data dir.
func ConfigPath() string {
	return filepath.Join(logging.DataDir(), "config.yaml")
}

// Load reads configuration from the data directory, applying env overrides.
// A missing config file is not an error; defaults are used.
func Load() (*Config, error) {
	cfg := NewConfig()

	path := ConfigPath()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies AUGMENT_* environment overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AUGMENT_BM25_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.BM25Weight = f
		}
	}
	if v := os.Getenv("AUGMENT_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("AUGMENT_BM25_BACKEND"); v != "" {
		c.Search.BM25Backend = v
	}
	if v := os.Getenv("AUGMENT_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AUGMENT_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.Dimensions = n
		}
	}
	if logging.DebugEnabled() {
		c.Server.LogLevel = "debug"
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25_weight must be in [0,1], got %v", c.Search.BM25Weight)
	}
	if c.Search.VectorWeight < 0 || c.Search.VectorWeight > 1 {
		return fmt.Errorf("search.vector_weight must be in [0,1], got %v", c.Search.VectorWeight)
	}
	if c.Search.DefaultK < 0 {
		return fmt.Errorf("search.default_k must be >= 0, got %d", c.Search.DefaultK)
	}
	if c.Search.BM25Backend != "sqlite" && c.Search.BM25Backend != "bleve" {
		return fmt.Errorf("search.bm25_backend must be sqlite or bleve, got %q", c.Search.BM25Backend)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Index.CodeChunkOverlap >= c.Index.CodeChunkLines {
		return fmt.Errorf("index.code_chunk_overlap must be smaller than code_chunk_lines")
	}
	if c.Index.DocChunkOverlap >= c.Index.DocChunkTokens {
		return fmt.Errorf("index.doc_chunk_overlap must be smaller than doc_chunk_tokens")
	}
	if c.Cache.SemanticThreshold < 0 || c.Cache.SemanticThreshold > 1 {
		return fmt.Errorf("cache.semantic_threshold must be in [0,1], got %v", c.Cache.SemanticThreshold)
	}
	return nil
}

// WriteYAML writes the configuration to the given path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
