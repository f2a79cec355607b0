package dto

import (
	"recipe-rag-be/pkg/llm"
	"recipe-rag-be/pkg/retrieval"
)

// ChatRequest is the inbound /chat body. Optional fields are pointers so
// "absent" and "explicit zero value" stay distinguishable when applying
// override precedence against the configured defaults.
type ChatRequest struct {
	Query      string  `json:"query" validate:"required"`
	TopK       *int    `json:"top_k,omitempty" validate:"omitempty,gte=1,lte=50"`
	Stream     bool    `json:"stream"`
	UseRerank  *bool   `json:"use_rerank,omitempty"`
	RerankMode *string `json:"rerank_mode,omitempty" validate:"omitempty,oneof=cross bi"`
	RerankTopK *int    `json:"rerank_top_k,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// ChatResponse is the buffered (non-streaming) reply.
type ChatResponse struct {
	Answer      string                 `json:"answer"`
	Model       string                 `json:"model"`
	Usage       *llm.Usage             `json:"usage,omitempty"`
	RawResponse map[string]interface{} `json:"raw_response,omitempty"`
	Documents   []retrieval.Document   `json:"documents"`
}

// StreamMeta is the payload of the first SSE frame of a streamed reply.
type StreamMeta struct {
	Model     string               `json:"model"`
	Documents []retrieval.Document `json:"documents"`
}

// StreamEnd is the payload of the terminal "end" frame.
type StreamEnd struct {
	Answer string `json:"answer"`
}

// StreamError is the payload of the terminal "error" frame.
type StreamError struct {
	Message string `json:"message"`
}
