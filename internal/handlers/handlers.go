package handlers

import (
	"context"
	"net/http"

	"github.com/chatforge/chatforge-golang/internal/chat"
)

// TurnRunner is what the chat endpoint needs from the coordinator.
type TurnRunner interface {
	RunTurn(ctx context.Context, req chat.TurnRequest, sink chat.Sink) (*chat.TurnResult, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Coordinator   TurnRunner
	Conversations *chat.ConversationStore
	Users         *chat.UserStore
}

// statusForKind is the fixed mapping from turn error kinds to HTTP
// statuses. It never varies by model.
func statusForKind(kind chat.ErrorKind) int {
	switch kind {
	case chat.KindUnauthenticated:
		return http.StatusUnauthorized
	case chat.KindInvalidInput:
		return http.StatusBadRequest
	case chat.KindNotFound:
		return http.StatusNotFound
	case chat.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case chat.KindProviderConfig:
		return http.StatusServiceUnavailable
	case chat.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
