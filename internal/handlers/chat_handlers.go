package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatforge/chatforge-golang/internal/chat"
	"github.com/chatforge/chatforge-golang/internal/models"
	"github.com/chatforge/chatforge-golang/internal/provider"
)

// ChatInput defines the structure of the JSON request body.
type ChatInput struct {
	Messages       []MessageInput `json:"messages" binding:"required,min=1,dive"`
	Model          string         `json:"model"`
	ConversationID string         `json:"conversationId"`
}

type MessageInput struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// sseSink streams coordinator output to the client as server-sent
// events. Headers are written on Start, one data event per delta.
type sseSink struct {
	c       *gin.Context
	flusher http.Flusher
}

func (s *sseSink) Start(conv *models.Conversation) error {
	header := s.c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Conversation-Id", conv.ID)
	s.c.Writer.WriteHeader(http.StatusOK)
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Delta(text string) error {
	payload, err := json.Marshal(gin.H{"content": text})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) event(payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.c.Writer, "data: %s\n\n", raw)
	s.flusher.Flush()
}

func (s *sseSink) done() {
	fmt.Fprint(s.c.Writer, "data: [DONE]\n\n")
	s.flusher.Flush()
}

// ChatStream handles POST /v1/chat: it runs one chat turn and streams
// the assistant's reply back token by token.
func (h *Handlers) ChatStream(c *gin.Context) {
	// 1. --- Get User Context (set by AuthMiddleware) ---
	userIDRaw, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userID := userIDRaw.(string)

	// 2. --- Parse Input ---
	var input ChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	messages := make([]provider.Message, 0, len(input.Messages))
	for _, msg := range input.Messages {
		messages = append(messages, provider.Message{Role: msg.Role, Content: msg.Content})
	}

	// 3. --- Run the Turn ---
	sink := &sseSink{c: c, flusher: flusher}
	result, err := h.Coordinator.RunTurn(c.Request.Context(), chat.TurnRequest{
		UserID:         userID,
		ConversationID: input.ConversationID,
		Model:          input.Model,
		Messages:       messages,
	}, sink)

	// 4. --- Surface the Outcome ---
	// Before any content reached the client we can still answer with a
	// proper status; after that, the only channel left is the stream itself.
	if err != nil && (result == nil || !result.StreamStarted) {
		kind := chat.KindOf(err)
		c.JSON(statusForKind(kind), gin.H{"error": err.Error(), "kind": string(kind)})
		return
	}

	if result != nil && !result.StreamStarted {
		// Stream ended without producing content (e.g. an empty reply).
		if startErr := sink.Start(result.Conversation); startErr != nil {
			return
		}
	}
	if result != nil && result.StreamErr != nil {
		sink.event(gin.H{"error": "The provider stream was interrupted", "kind": string(chat.KindProvider)})
	}
	if result != nil {
		sink.event(gin.H{
			"conversationId": result.Conversation.ID,
			"finishReason":   result.Completion.FinishReason,
			"tokensUsed":     result.Completion.TokensUsed,
		})
	}
	sink.done()
}
