package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/chatforge/chatforge-golang/internal/models"
	"github.com/chatforge/chatforge-golang/internal/provider"
)

// Defaults for the provider call. Exposed as coordinator fields so a
// deployment can tune them.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

// Finish reasons recorded when the stream does not end normally.
const (
	FinishReasonError     = "error"
	FinishReasonCancelled = "cancelled"
)

// Directory looks up the authenticated user's snapshot.
type Directory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Store is the conversation persistence the coordinator drives.
type Store interface {
	GetOrCreate(ctx context.Context, userID, conversationID, firstMessage, model string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, content string, metadata *models.MessageMetadata) (*models.Message, error)
	Touch(ctx context.Context, conversationID string) error
}

// Guard is the quota check plus the usage ledger.
type Guard interface {
	Check(user *models.User) error
	Commit(ctx context.Context, userID string) error
	Record(ctx context.Context, rec *models.UsageRecord) error
}

// Resolver maps a requested model id to a provider binding.
type Resolver interface {
	Resolve(requested string) provider.Binding
}

// Sink receives the turn's streamed output. Start is called exactly once,
// after the provider stream has opened and before the first delta, so the
// transport can commit response headers as late as possible. A non-nil
// error from Delta means the caller is gone; the coordinator then cancels
// the provider and finalizes with whatever arrived.
type Sink interface {
	Start(conv *models.Conversation) error
	Delta(text string) error
}

// TurnRequest is one inbound chat turn. UserID must already be verified
// by the transport layer.
type TurnRequest struct {
	UserID         string
	ConversationID string
	Model          string
	Messages       []provider.Message
}

// Completion is the aggregate outcome of the stream, assembled exactly
// once when the provider delivers its terminal chunk.
type Completion struct {
	FinalText    string
	TokensUsed   int
	FinishReason string
}

// TurnResult is returned once the turn reaches a terminal state. When
// StreamStarted is true the transport has already received content, so
// any later failure is reflected in StreamErr rather than an HTTP status.
type TurnResult struct {
	Conversation  *models.Conversation
	Binding       provider.Binding
	Completion    Completion
	StreamStarted bool
	StreamErr     error
}

// Coordinator runs chat turns: it validates input, enforces the quota,
// resolves the provider binding, persists the inbound message, relays the
// provider stream to the sink, and reconciles durable state when the
// stream ends. Each turn is independent; the coordinator holds no
// per-turn state after RunTurn returns.
type Coordinator struct {
	Users         Directory
	Conversations Store
	Usage         Guard
	Registry      Resolver

	Temperature float64
	MaxTokens   int

	// Logf reports non-fatal finalization failures. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

func NewCoordinator(users Directory, conversations Store, usage Guard, registry Resolver) *Coordinator {
	return &Coordinator{
		Users:         users,
		Conversations: conversations,
		Usage:         usage,
		Registry:      registry,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		Logf:          log.Printf,
	}
}

func (co *Coordinator) logf(format string, args ...any) {
	if co.Logf != nil {
		co.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// RunTurn executes one chat turn end to end.
//
// Failures before the stream opens abort with a TurnError and no writes
// beyond the already-durable user message. Once the sink has seen content
// the turn always finalizes: the assistant message, the usage record, the
// quota increment, and the conversation touch are each best-effort, and a
// failure in one is logged without rolling back the others — the caller
// has already received the streamed text.
func (co *Coordinator) RunTurn(ctx context.Context, req TurnRequest, sink Sink) (*TurnResult, error) {
	// 1. --- Validating ---
	if err := co.validate(&req); err != nil {
		return nil, err
	}

	// 2. --- QuotaChecking ---
	// The check runs against this snapshot; the increment happens after
	// the stream ends. Concurrent turns may overshoot the limit (soft quota).
	user, err := co.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := co.Usage.Check(user); err != nil {
		return nil, err
	}

	// 3. --- ConversationResolving ---
	conv, err := co.Conversations.GetOrCreate(ctx, req.UserID, req.ConversationID, firstUserContent(req.Messages), req.Model)
	if err != nil {
		return nil, err
	}

	// 4. --- ProviderResolving ---
	binding := co.Registry.Resolve(req.Model)
	system := fmt.Sprintf("You are a helpful AI assistant. You are currently running as %s. Be conversational and helpful.", req.Model)
	if !binding.Available {
		system += fmt.Sprintf(" The requested model is not available right now, so you are answering on its behalf as %s; mention this if the user asks which model they are talking to.", binding.ConcreteModel)
	}

	// 5. --- UserMessagePersisting ---
	// The inbound message must be durable before the provider is asked
	// to stream; a later provider failure still leaves a valid transcript.
	userContent := req.Messages[len(req.Messages)-1].Content
	if _, err := co.Conversations.AppendMessage(ctx, conv.ID, models.RoleUser, userContent, nil); err != nil {
		return nil, err
	}

	// 6. --- Streaming ---
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	full := append([]provider.Message{{Role: models.RoleSystem, Content: system}}, req.Messages...)
	chunks, err := binding.Provider.ChatCompletionStream(streamCtx, provider.ChatRequest{
		Model:       binding.ConcreteModel,
		Messages:    full,
		Temperature: co.Temperature,
		MaxTokens:   co.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, provider.ErrMissingCredentials) {
			return nil, &TurnError{Kind: KindProviderConfig, Err: err}
		}
		return nil, &TurnError{Kind: KindProvider, Err: err}
	}

	result := &TurnResult{Conversation: conv, Binding: binding}
	clientGone := false

	var text strings.Builder
	var usage *provider.Usage
	finishReason := ""

	for chunk := range chunks {
		if chunk.Err != nil {
			if !clientGone {
				result.StreamErr = chunk.Err
				finishReason = FinishReasonError
			}
			break
		}
		if chunk.Done {
			usage = chunk.Usage
			// A disconnect stays a disconnect even if the provider's
			// terminal chunk was already in flight when we cancelled.
			if !clientGone {
				finishReason = chunk.FinishReason
				if finishReason == "" {
					finishReason = "stop"
				}
			}
			break
		}
		text.WriteString(chunk.Delta)
		if clientGone {
			continue
		}
		if !result.StreamStarted {
			// Commit the response as late as possible: the first delta.
			// Everything before this point can still fail with a clean
			// HTTP status instead of a broken stream.
			if err := sink.Start(conv); err != nil {
				clientGone = true
				result.StreamErr = err
				finishReason = FinishReasonCancelled
				cancel()
				continue
			}
			result.StreamStarted = true
		}
		if err := sink.Delta(chunk.Delta); err != nil {
			// Client disconnect: stop paying for tokens nobody reads,
			// but keep what already arrived for finalization.
			clientGone = true
			result.StreamErr = err
			finishReason = FinishReasonCancelled
			cancel()
		}
	}
	if finishReason == "" {
		// Channel closed without a terminal chunk; the cancel above (or a
		// parent context cancellation) cut the stream short.
		finishReason = FinishReasonCancelled
	}

	// 7. --- Finalizing ---
	result.Completion = co.finalize(conv, binding, req, text.String(), usage, finishReason)

	if result.StreamErr != nil && !result.StreamStarted {
		// Nothing reached the caller, so the error can still be surfaced
		// as a failed turn instead of a broken stream.
		return result, &TurnError{Kind: KindProvider, Err: result.StreamErr}
	}
	return result, nil
}

// finalize reconciles durable state with the finished stream. It runs
// exactly once per turn, driven by the stream's terminal chunk. Each of
// the four writes is independent; failures are logged, never re-thrown,
// because the streamed content has already been delivered.
func (co *Coordinator) finalize(conv *models.Conversation, binding provider.Binding, req TurnRequest, finalText string, usage *provider.Usage, finishReason string) Completion {
	// The caller's context may already be cancelled (client disconnect);
	// the finalizing writes must still run.
	ctx := context.Background()

	tokens := 0
	if usage != nil {
		tokens = usage.TotalTokens
	}
	if tokens == 0 && finalText != "" {
		tokens = estimateTokens(req.Messages, finalText)
	}

	completion := Completion{
		FinalText:    finalText,
		TokensUsed:   tokens,
		FinishReason: finishReason,
	}

	if finalText != "" {
		metadata := &models.MessageMetadata{
			Model:         req.Model,
			ActualModel:   binding.ConcreteModel,
			TokensUsed:    tokens,
			FinishReason:  finishReason,
			IsPlaceholder: !binding.Available,
		}
		if _, err := co.Conversations.AppendMessage(ctx, conv.ID, models.RoleAssistant, finalText, metadata); err != nil {
			co.logf("Warning: failed to save assistant message for conversation %s: %v", conv.ID, err)
		}
	}

	modelLabel := req.Model
	if !binding.Available {
		modelLabel = fmt.Sprintf("%s (via %s)", req.Model, binding.ConcreteModel)
	}
	record := &models.UsageRecord{
		UserID:         req.UserID,
		ConversationID: &conv.ID,
		Model:          modelLabel,
		TokensUsed:     tokens,
		CostCents:      costCents(req.Model, tokens),
	}
	if err := co.Usage.Record(ctx, record); err != nil {
		co.logf("Warning: failed to record usage for user %s: %v", req.UserID, err)
	}

	if err := co.Usage.Commit(ctx, req.UserID); err != nil {
		co.logf("Warning: failed to increment api usage for user %s: %v", req.UserID, err)
	}

	if err := co.Conversations.Touch(ctx, conv.ID); err != nil {
		co.logf("Warning: failed to touch conversation %s: %v", conv.ID, err)
	}

	return completion
}

// validate rejects malformed turns before any side effect.
func (co *Coordinator) validate(req *TurnRequest) error {
	if req.UserID == "" {
		return turnErrorf(KindUnauthenticated, "request carries no verified user id")
	}
	if len(req.Messages) == 0 {
		return turnErrorf(KindInvalidInput, "message list is empty")
	}
	for i, msg := range req.Messages {
		if !models.ValidRole(msg.Role) {
			return turnErrorf(KindInvalidInput, "message %d has invalid role %q", i, msg.Role)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return turnErrorf(KindInvalidInput, "message %d has empty content", i)
		}
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != models.RoleUser {
		return turnErrorf(KindInvalidInput, "last message must be user-authored, got %q", last.Role)
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = string(provider.DefaultModel)
	}
	return nil
}

// firstUserContent returns the content of the earliest user message,
// used to derive the title of a freshly created conversation.
func firstUserContent(messages []provider.Message) string {
	for _, msg := range messages {
		if msg.Role == models.RoleUser {
			return msg.Content
		}
	}
	return ""
}

// estimateTokens is the heuristic used when the provider never reported
// usage (cancelled or failed streams): roughly four bytes per token over
// the prompt and the partial reply.
func estimateTokens(messages []provider.Message, finalText string) int {
	total := len(finalText)
	for _, msg := range messages {
		total += len(msg.Content)
	}
	tokens := total / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// costCents derives the ledger cost as a fixed linear function of tokens.
// No external pricing lookup: premium models bill 3 cents, everything
// else 1 cent, per thousand tokens.
func costCents(model string, tokens int) int {
	rate := 1
	switch provider.Model(model) {
	case provider.ModelGPT4, provider.ModelClaude3:
		rate = 3
	}
	return tokens * rate / 1000
}
