package models

import "time"

// Message roles. These are the only values the 'role' column accepts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ValidRole reports whether role is one of the accepted message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// MessageMetadata is the optional JSON blob stored alongside assistant
// messages. Model is the model the client asked for; ActualModel is the
// one that really produced the text (they differ when a fallback served
// the turn, in which case IsPlaceholder is true).
type MessageMetadata struct {
	Model         string `json:"model,omitempty"`
	ActualModel   string `json:"actualModel,omitempty"`
	TokensUsed    int    `json:"tokensUsed,omitempty"`
	FinishReason  string `json:"finishReason,omitempty"`
	IsPlaceholder bool   `json:"isPlaceholder,omitempty"`
}

// Message defines the model for the 'messages' table.
// Messages are append-only: once written, a row is never updated.
type Message struct {
	ID             string           `json:"id" db:"id"`
	ConversationID string           `json:"conversationId" db:"conversation_id"`
	Role           string           `json:"role" db:"role"`
	Content        string           `json:"content" db:"content"`
	Metadata       *MessageMetadata `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}
