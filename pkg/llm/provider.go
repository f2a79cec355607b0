package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage carries token accounting returned by the provider, pass-through.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
	TotalTokens      *int `json:"total_tokens,omitempty"`
}

// ChatResult is the normalized non-streaming completion result.
type ChatResult struct {
	Content string
	Model   string
	Usage   *Usage
	// Raw is the decoded upstream payload, kept for debug passthrough.
	Raw map[string]interface{}
}

// StreamDelta is one element of a streaming completion. Content carries an
// incremental text fragment; a non-nil Err is terminal and is always the
// last element before the channel closes.
type StreamDelta struct {
	Content string
	Err     error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Model       string // Override default model
	Temperature *float64
	TopP        *float64
	MaxTokens   int
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithTopP(topP float64) Option {
	return func(o *Options) {
		o.TopP = &topP
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends the message history to the model and returns the full response
	Chat(ctx context.Context, history []Message, options ...Option) (*ChatResult, error)

	// StreamChat sends the same request with streaming enabled. The returned
	// channel yields incremental text fragments and closes when the upstream
	// signals completion or the context is cancelled. A mid-stream failure is
	// delivered as a final delta with Err set.
	StreamChat(ctx context.Context, history []Message, options ...Option) (<-chan StreamDelta, error)
}
