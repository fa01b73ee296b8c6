package models

import "time"

// UsageRecord defines the model for the 'usage_tracking' table.
// One row is appended per completed chat turn; rows are never updated.
// Model carries the requested model id, annotated with the concrete
// model when a fallback served the turn (e.g. "claude-3 (via gpt-4)").
type UsageRecord struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	ConversationID *string   `json:"conversationId,omitempty" db:"conversation_id"`
	Model          string    `json:"model" db:"model"`
	TokensUsed     int       `json:"tokensUsed" db:"tokens_used"`
	CostCents      int       `json:"costCents" db:"cost"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
