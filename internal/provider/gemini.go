package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider streams chat completions from the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGemini initializes the Gemini client.
func NewGemini(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredentials)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return "google" }

// Close releases the underlying client.
func (p *GeminiProvider) Close() error { return p.client.Close() }

// ChatCompletionStream translates the unified request into a Gemini chat
// session: the system message becomes the SystemInstruction, prior turns
// become session history, and the last user message is sent streaming.
func (p *GeminiProvider) ChatCompletionStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	model := p.client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	model.SetMaxOutputTokens(int32(req.MaxTokens))

	var history []*genai.Content
	last := ""
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case "assistant":
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	// The final user message is dispatched, not kept in history.
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		if text, ok := history[n-1].Parts[0].(genai.Text); ok {
			last = string(text)
		}
		history = history[:n-1]
	}
	if last == "" {
		return nil, fmt.Errorf("gemini: request has no user message to send")
	}

	cs := model.StartChat()
	cs.History = history
	iter := cs.SendMessageStream(ctx, genai.Text(last))

	ch := make(chan StreamChunk)
	go p.readStream(ctx, iter, ch)
	return ch, nil
}

func (p *GeminiProvider) readStream(ctx context.Context, iter *genai.GenerateContentResponseIterator, ch chan<- StreamChunk) {
	defer close(ch)

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

	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			send(StreamChunk{Done: true, Usage: usage, FinishReason: finishReason})
			return
		}
		if err != nil {
			send(StreamChunk{Err: fmt.Errorf("gemini: stream failed: %w", err)})
			return
		}

		// UsageMetadata on each response is cumulative for the request;
		// keep the latest one.
		if resp.UsageMetadata != nil {
			usage = &Usage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
		}

		for _, candidate := range resp.Candidates {
			if candidate.FinishReason != genai.FinishReasonUnspecified {
				finishReason = geminiFinishReason(candidate.FinishReason)
			}
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok || text == "" {
					continue
				}
				if !send(StreamChunk{Delta: string(text)}) {
					return
				}
			}
		}
	}
}

func geminiFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return "stop"
	case genai.FinishReasonMaxTokens:
		return "length"
	case genai.FinishReasonSafety:
		return "content_filter"
	default:
		return reason.String()
	}
}
