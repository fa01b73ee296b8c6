// Package provider maps logical model identifiers to concrete LLM backends
// and exposes one unified streaming contract for all of them.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredentials is returned by a provider when no API key is
// configured for it. The registry never fails on resolve; the missing
// key only surfaces when a turn actually tries to open a stream.
var ErrMissingCredentials = errors.New("provider credentials are not configured")

// APIError is a non-2xx response from an upstream provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Message is a single turn in the conversation, in the common
// role + content shape every backend gets translated from.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the unified request handed to a provider. Model here is
// always the concrete model name from the resolved binding, never the
// logical id the client asked for.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage holds normalized token counts reported by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamChunk is one piece of a streaming response. The provider sends
// these over a channel and closes it after the terminal chunk.
//
// Exactly one terminal chunk is delivered per stream: either Done=true
// (carrying Usage and FinishReason when the backend reported them) or
// Err non-nil. No chunks follow a terminal one.
type StreamChunk struct {
	Delta        string
	Done         bool
	Usage        *Usage
	FinishReason string
	Err          error
}

// Provider is the interface every LLM backend must satisfy.
// Pre-stream failures (missing credentials, auth rejection, bad request)
// are returned synchronously; failures after the stream has started are
// delivered as a terminal chunk with Err set. Streams are not
// restartable — a consumer that stops reading can only issue a new call.
type Provider interface {
	// Name returns the backend identifier, e.g. "openai" or "google".
	Name() string

	// ChatCompletionStream opens a streaming completion. Cancelling ctx
	// stops the upstream call; the stream then terminates with ctx's error.
	ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
}
