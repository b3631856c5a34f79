package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
	"github.com/zoonderkins/augment-lite-mcp/internal/route"
)

// Client dispatches chat calls to the provider a model alias resolves to.
// Anthropic-type providers get the /messages wire format, everything else
// speaks OpenAI /chat/completions.
type Client struct {
	table  *route.Table
	client *http.Client
}

// NewClient builds a chat client over a routing table.
func NewClient(table *route.Table) *Client {
	return &Client{
		table: table,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// resolvedProvider is a provider with its environment references resolved.
type resolvedProvider struct {
	Type    string
	BaseURL string
	APIKey  string
	ModelID string
}

func (c *Client) resolveProvider(alias string) (resolvedProvider, error) {
	// Route names are accepted anywhere a model alias is: a caller
	// asking for "small-fast" gets that route's model.
	if r, ok := c.table.Routes[alias]; ok {
		alias = r.Model
	}
	p, err := c.table.ResolveProvider(alias)
	if err != nil {
		return resolvedProvider{}, err
	}
	baseURL := strings.TrimRight(os.Getenv(p.BaseURLEnv), "/")
	if baseURL == "" {
		return resolvedProvider{}, apperrors.Upstream(
			fmt.Sprintf("provider for %s is not configured: %s is unset", alias, p.BaseURLEnv), nil)
	}
	return resolvedProvider{
		Type:    p.Type,
		BaseURL: baseURL,
		APIKey:  os.Getenv(p.APIKeyEnv),
		ModelID: p.ResolveModelID(alias),
	}, nil
}

// Chat sends a conversation to the model behind alias and returns the
// generated text. Transient upstream failures are retried with backoff.
func (c *Client) Chat(ctx context.Context, alias string, messages []Message, opts ChatOptions) (string, error) {
	if len(messages) == 0 {
		return "", apperrors.InvalidInput("messages are empty")
	}
	provider, err := c.resolveProvider(alias)
	if err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	return apperrors.RetryWithResult(ctx, apperrors.DefaultRetryConfig(), func() (string, error) {
		if provider.Type == "anthropic" {
			return c.anthropicChat(ctx, provider, messages, opts)
		}
		return c.openaiChat(ctx, provider, messages, opts)
	})
}

// minOutputTokens guards against truncated-to-empty responses: some models
// spend budget on reasoning before emitting text, so budgets below their
// practical floor are raised.
func minOutputTokens(modelID string) int {
	lower := strings.ToLower(modelID)
	switch {
	case strings.Contains(lower, "glm"):
		return 10000
	case strings.Contains(lower, "minimax"):
		return 500
	default:
		return 100
	}
}

type openaiChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
	Seed        *int      `json:"seed,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content          string `json:"content"`
			Text             string `json:"text"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) openaiChat(ctx context.Context, provider resolvedProvider, messages []Message, opts ChatOptions) (string, error) {
	maxTokens := opts.MaxOutputTokens
	if floor := minOutputTokens(provider.ModelID); maxTokens < floor {
		maxTokens = floor
	}

	req := openaiChatRequest{
		Model:       provider.ModelID,
		Messages:    processMessagesForModel(messages, provider.ModelID),
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   maxTokens,
	}
	// Gemini endpoints reject the seed parameter.
	if !strings.Contains(strings.ToLower(provider.ModelID), "gemini") {
		seed := opts.Seed
		req.Seed = &seed
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if provider.APIKey != "" {
		headers["Authorization"] = "Bearer " + provider.APIKey
	}

	var parsed openaiChatResponse
	if err := c.post(ctx, provider.BaseURL+"/chat/completions", headers, req, opts.Timeout, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", apperrors.Upstream("chat response has no choices", nil)
	}

	msg := parsed.Choices[0].Message
	content := msg.Content
	if content == "" {
		if msg.Text != "" {
			content = msg.Text
		} else if msg.ReasoningContent != "" {
			content = msg.ReasoningContent
		}
	}
	return content, nil
}

// processMessagesForModel merges the system turn into the first user turn
// for Gemini, which rejects the system role on OpenAI-compatible proxies.
func processMessagesForModel(messages []Message, modelID string) []Message {
	if !strings.Contains(strings.ToLower(modelID), "gemini") {
		return messages
	}

	var system string
	processed := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		processed = append(processed, m)
	}
	if system != "" {
		for i, m := range processed {
			if m.Role == "user" {
				processed[i].Content = system + "\n\n" + m.Content
				break
			}
		}
	}
	return processed
}

type anthropicChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
}

type anthropicChatResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) anthropicChat(ctx context.Context, provider resolvedProvider, messages []Message, opts ChatOptions) (string, error) {
	var system string
	userMessages := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		userMessages = append(userMessages, m)
	}

	req := anthropicChatRequest{
		Model:       provider.ModelID,
		Messages:    userMessages,
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: opts.Temperature,
		System:      system,
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"anthropic-version": "2023-06-01",
	}
	if provider.APIKey != "" {
		headers["x-api-key"] = provider.APIKey
	}

	var parsed anthropicChatResponse
	if err := c.post(ctx, provider.BaseURL+"/messages", headers, req, opts.Timeout, &parsed); err != nil {
		return "", err
	}

	var out strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}

func (c *Client) post(ctx context.Context, url string, headers map[string]string, body any, timeout time.Duration, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return apperrors.Internal("encode chat request", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return apperrors.Internal("create chat request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstreamFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e := apperrors.Upstream(fmt.Sprintf("chat endpoint returned %d: %s", resp.StatusCode, string(respBody)), nil)
		e.Retryable = apperrors.RetryableHTTPStatus(resp.StatusCode)
		slog.Debug("chat request failed", "url", url, "status", resp.StatusCode, "retryable", e.Retryable)
		return e
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Upstream("decode chat response", err)
	}
	return nil
}
