package models

import "time"

// Conversation defines the model for the 'conversations' table.
// A conversation is owned by exactly one user; deleting the user
// cascades to its conversations and their messages.
type Conversation struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	Title      string    `json:"title" db:"title"`
	Model      string    `json:"model" db:"model"`
	IsArchived bool      `json:"isArchived" db:"is_archived"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
