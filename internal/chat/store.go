package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge-golang/internal/models"
)

// DefaultTitle is used when a conversation is created without any
// usable first message to derive a title from.
const DefaultTitle = "New Chat"

// titleRuneLimit caps derived conversation titles.
const titleRuneLimit = 50

// ConversationStore owns the conversations and messages tables.
// Messages are append-only; conversations are only ever touched to
// advance updated_at.
type ConversationStore struct {
	DB *sql.DB
}

// DeriveTitle builds a conversation title from the first user message:
// the first 50 characters, cut on a rune boundary so multi-byte text is
// never split mid-codepoint. Empty input falls back to DefaultTitle.
func DeriveTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	if title == "" {
		return DefaultTitle
	}
	runes := []rune(title)
	if len(runes) > titleRuneLimit {
		return string(runes[:titleRuneLimit])
	}
	return title
}

// GetOrCreate resolves the conversation for a turn. With an explicit id
// it fetches the row (scoped to the owner — a stale or foreign id is a
// not_found turn error). Without one it creates a fresh conversation
// titled from the first user message. Two concurrent turns on a fresh
// session may each create their own conversation; that race is accepted.
func (s *ConversationStore) GetOrCreate(ctx context.Context, userID, conversationID, firstMessage, model string) (*models.Conversation, error) {
	if conversationID != "" {
		return s.getOwned(ctx, userID, conversationID)
	}
	return s.Create(ctx, userID, DeriveTitle(firstMessage), model)
}

func (s *ConversationStore) getOwned(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, model, is_archived, created_at, updated_at
		FROM conversations
		WHERE id = ? AND user_id = ?`

	var conv models.Conversation
	err := s.DB.QueryRowContext(ctx, query, conversationID, userID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.Model,
		&conv.IsArchived, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, turnErrorf(KindNotFound, "conversation %s not found", conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return &conv, nil
}

// Create inserts a new conversation row.
func (s *ConversationStore) Create(ctx context.Context, userID, title, model string) (*models.Conversation, error) {
	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO conversations
		(id, user_id, title, model, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`

	_, err := s.DB.ExecContext(ctx, query,
		conv.ID, conv.UserID, conv.Title, conv.Model, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// AppendMessage writes one message row. A failure (for instance the
// conversation was deleted concurrently and the FK insert rejects) is a
// storage turn error; it is propagated, never silently retried, because
// dropping a message would corrupt the transcript.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID, role, content string, metadata *models.MessageMetadata) (*models.Message, error) {
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}

	var metadataJSON sql.NullString
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, &TurnError{Kind: KindStorage, Err: fmt.Errorf("failed to encode message metadata: %w", err)}
		}
		metadataJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO messages
		(id, conversation_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.DB.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, metadataJSON, msg.CreatedAt,
	)
	if err != nil {
		return nil, &TurnError{Kind: KindStorage, Err: fmt.Errorf("failed to append %s message: %w", role, err)}
	}
	return msg, nil
}

// Touch advances the conversation's updated_at; called once per
// completed turn.
func (s *ConversationStore) Touch(ctx context.Context, conversationID string) error {
	query := `UPDATE conversations SET updated_at = ? WHERE id = ?`
	_, err := s.DB.ExecContext(ctx, query, time.Now(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// ListByUser returns the user's conversations, most recently updated first.
func (s *ConversationStore) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	query := `
		SELECT id, user_id, title, model, is_archived, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC`

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.UserID, &conv.Title, &conv.Model,
			&conv.IsArchived, &conv.CreatedAt, &conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// ListMessages returns a conversation's transcript in creation order.
// The caller is responsible for the ownership check (via getOwned or
// GetOrCreate) before exposing the transcript.
func (s *ConversationStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, metadata, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC`

	rows, err := s.DB.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var metadataJSON sql.NullString
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content,
			&metadataJSON, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if metadataJSON.Valid {
			var metadata models.MessageMetadata
			if err := json.Unmarshal([]byte(metadataJSON.String), &metadata); err == nil {
				msg.Metadata = &metadata
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetOwned exposes the ownership-scoped fetch for handlers.
func (s *ConversationStore) GetOwned(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	return s.getOwned(ctx, userID, conversationID)
}
