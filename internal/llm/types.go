// Package llm talks to chat-completion providers through a unified client.
package llm

import "time"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tune a single chat call. Zero values take the defaults.
type ChatOptions struct {
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
	Seed            int
	Timeout         time.Duration
}

const (
	defaultTemperature = 0.2
	defaultTopP        = 1.0
	defaultSeed        = 7
	defaultTimeout     = 90 * time.Second
)

func (o ChatOptions) withDefaults() ChatOptions {
	if o.TopP == 0 {
		o.TopP = defaultTopP
	}
	if o.Seed == 0 {
		o.Seed = defaultSeed
	}
	if o.Timeout == 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
