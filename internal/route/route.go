// Package route maps a task type and prompt size onto a model route.
package route

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zoonderkins/augment-lite-mcp/configs"
	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/logging"
)

// Provider describes how to reach one model endpoint. Credentials are
// named by environment variable, never stored.
type Provider struct {
	Type       string `yaml:"type"`
	BaseURLEnv string `yaml:"base_url_env"`
	APIKeyEnv  string `yaml:"api_key_env"`
	ModelID    string `yaml:"model_id"`
	ModelIDEnv string `yaml:"model_id_env"`
}

// Route binds a model alias to an output-token budget.
type Route struct {
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type thresholds struct {
	SmallMaxTokens       int `yaml:"small_max_tokens"`
	BigMidMaxTokens      int `yaml:"big_mid_max_tokens"`
	LongContextMaxTokens int `yaml:"long_context_max_tokens"`
}

type defaults struct {
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// Table is the full routing configuration.
type Table struct {
	Defaults   defaults            `yaml:"defaults"`
	Thresholds thresholds          `yaml:"routing_thresholds"`
	Routes     map[string]Route    `yaml:"routes"`
	Providers  map[string]Provider `yaml:"providers"`
}

// Selection is a fully resolved routing decision.
type Selection struct {
	Model           string
	MaxOutputTokens int
}

// Load reads the routing table. A models.yaml in the data dir overrides
// the embedded copy, so deployments can swap models without rebuilding.
func Load() (*Table, error) {
	data := []byte(configs.ModelsConfig)
	if override, err := os.ReadFile(logging.ModelsConfigPath()); err == nil {
		data = override
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse models config: %w", err)
	}
	if t.Thresholds.SmallMaxTokens == 0 {
		t.Thresholds.SmallMaxTokens = 200_000
	}
	if t.Thresholds.BigMidMaxTokens == 0 {
		t.Thresholds.BigMidMaxTokens = 400_000
	}
	if t.Thresholds.LongContextMaxTokens == 0 {
		t.Thresholds.LongContextMaxTokens = 1_000_000
	}
	if t.Defaults.MaxOutputTokens == 0 {
		t.Defaults.MaxOutputTokens = 4096
	}
	if len(t.Routes) == 0 {
		return nil, fmt.Errorf("models config defines no routes")
	}
	return &t, nil
}

// byTaskType picks a route for prompts that fit the small tier.
func byTaskType(taskType string) string {
	switch taskType {
	case "lookup", "small_fix":
		return "small-fast"
	case "refactor", "reason":
		return "reason-large"
	default:
		return "general"
	}
}

// PickRoute returns the route name for a request. An override names either
// a route or a provider directly; "auto" and "" defer to size then task
// type. Thresholds are strict: a prompt exactly at a boundary stays in
// the lower tier.
func (t *Table) PickRoute(taskType string, totalTokensEst int, override string) string {
	if override != "" && override != "auto" {
		if _, ok := t.Routes[override]; ok {
			return override
		}
		if _, ok := t.Providers[override]; ok {
			return override
		}
		return "general"
	}
	switch {
	case totalTokensEst > t.Thresholds.LongContextMaxTokens:
		return "ultra-long-context"
	case totalTokensEst > t.Thresholds.BigMidMaxTokens:
		return "long-context"
	case totalTokensEst > t.Thresholds.SmallMaxTokens:
		return "big-mid"
	default:
		return byTaskType(taskType)
	}
}

// Select resolves a request to a model alias and output budget. A provider
// name used as an override gets the default output budget.
func (t *Table) Select(taskType string, totalTokensEst int, override string) Selection {
	name := t.PickRoute(taskType, totalTokensEst, override)

	if r, ok := t.Routes[name]; ok {
		maxOut := r.MaxOutputTokens
		if maxOut == 0 {
			maxOut = t.Defaults.MaxOutputTokens
		}
		return Selection{Model: r.Model, MaxOutputTokens: maxOut}
	}
	// Direct provider override.
	return Selection{Model: name, MaxOutputTokens: t.Defaults.MaxOutputTokens}
}

// ResolveProvider returns the provider record for a model alias.
func (t *Table) ResolveProvider(model string) (Provider, error) {
	p, ok := t.Providers[model]
	if !ok {
		return Provider{}, apperrors.InvalidInput(fmt.Sprintf("model %q has no provider entry", model))
	}
	return p, nil
}

// ResolveModelID returns the upstream model identifier, honoring the
// model_id_env override.
func (p Provider) ResolveModelID(alias string) string {
	if p.ModelIDEnv != "" {
		if v := os.Getenv(p.ModelIDEnv); v != "" {
			return v
		}
	}
	if p.ModelID != "" {
		return p.ModelID
	}
	return alias
}
