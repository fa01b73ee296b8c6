package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider streams chat completions from the OpenAI API (or any
// compatible endpoint via the baseURL override).
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAI(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: streams legitimately stay open for a while.
		// Cancellation comes from the request context.
		httpClient: &http.Client{Timeout: 0},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Wire types for the chat completions endpoint.
type openAIChatRequest struct {
	Model         string              `json:"model"`
	Messages      []Message           `json:"messages"`
	Stream        bool                `json:"stream"`
	Temperature   float64             `json:"temperature"`
	MaxTokens     int                 `json:"max_tokens"`
	StreamOptions openAIStreamOptions `json:"stream_options"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletionStream opens an SSE stream against /chat/completions and
// relays content deltas over the returned channel. The final usage chunk
// (requested via stream_options.include_usage) feeds the terminal Done chunk.
func (p *OpenAIProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingCredentials)
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:         req.Model,
		Messages:      req.Messages,
		Stream:        true,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		StreamOptions: openAIStreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &APIError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	ch := make(chan StreamChunk)
	go p.readStream(ctx, resp.Body, ch)
	return ch, nil
}

// readStream parses SSE events off the response body until [DONE] or an
// error, then sends exactly one terminal chunk and closes the channel.
func (p *OpenAIProvider) readStream(ctx context.Context, body io.ReadCloser, ch chan<- StreamChunk) {
	defer close(ch)
	defer body.Close()

	send := func(chunk StreamChunk) bool {
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var usage *Usage
	finishReason := ""

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)

		if data == "[DONE]" {
			send(StreamChunk{Done: true, Usage: usage, FinishReason: finishReason})
			return
		}

		var chunk openAIChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			send(StreamChunk{Err: fmt.Errorf("openai: decode stream chunk: %w", err)})
			return
		}
		if chunk.Error != nil {
			send(StreamChunk{Err: &APIError{Provider: p.Name(), StatusCode: http.StatusOK, Message: chunk.Error.Message}})
			return
		}

		if chunk.Usage != nil {
			usage = &Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		for _, choice := range chunk.Choices {
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				finishReason = *choice.FinishReason
			}
			if choice.Delta.Content == "" {
				continue
			}
			if !send(StreamChunk{Delta: choice.Delta.Content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		send(StreamChunk{Err: fmt.Errorf("openai: read stream: %w", err)})
		return
	}

	// Upstream closed the connection without a [DONE] sentinel; some
	// compatible endpoints do this. Treat it as a normal end of stream.
	send(StreamChunk{Done: true, Usage: usage, FinishReason: finishReason})
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error body"
	}
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(bytes.TrimSpace(raw))
}
