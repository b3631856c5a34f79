package embed

import (
	"log/slog"
	"time"

	"github.com/zoonderkins/augment-lite-mcp/internal/config"
)

// NewFromConfig builds the embedder stack the config asks for, wrapped in
// the LRU cache. The api provider degrades to the static embedder when
// its base URL environment variable is unset, so a fresh checkout indexes
// without any credentials.
func NewFromConfig(cfg config.EmbeddingsConfig) Embedder {
	var inner Embedder
	switch cfg.Provider {
	case "api":
		baseURL := resolveEnv(cfg.BaseURLEnv)
		if baseURL == "" {
			slog.Info("embedding endpoint not configured, using static embedder",
				"base_url_env", cfg.BaseURLEnv)
			inner = NewStaticEmbedder()
			break
		}
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     resolveEnv(cfg.APIKeyEnv),
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			slog.Warn("embedding provider rejected config, using static embedder", "error", err)
			inner = NewStaticEmbedder()
			break
		}
		inner = e
	default:
		inner = NewStaticEmbedder()
	}
	return NewCachedEmbedder(inner, cfg.CacheSize)
}
