package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatforge/chatforge-golang/internal/chat"
	"github.com/chatforge/chatforge-golang/internal/provider"
)

//
// --- Conversation Handlers ---
//

// GetMyConversations is the handler for GET /v1/conversations.
// It lists the user's conversations, most recently updated first.
func (h *Handlers) GetMyConversations(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(string)

	conversations, err := h.Conversations.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// CreateConversationInput is the body for an explicit create. Both
// fields are optional; defaults match the chat flow's lazy creation.
type CreateConversationInput struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

// CreateConversation is the handler for POST /v1/conversations.
func (h *Handlers) CreateConversation(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(string)

	var input CreateConversationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	title := input.Title
	if title == "" {
		title = chat.DefaultTitle
	}
	model := input.Model
	if model == "" {
		model = string(provider.DefaultModel)
	}

	conv, err := h.Conversations.Create(c.Request.Context(), userID, title, model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

// GetConversationMessages is the handler for
// GET /v1/conversations/:id/messages. Ownership is checked before the
// transcript is returned.
func (h *Handlers) GetConversationMessages(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(string)
	conversationID := c.Param("id")

	conv, err := h.Conversations.GetOwned(c.Request.Context(), userID, conversationID)
	if err != nil {
		if chat.KindOf(err) == chat.KindNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}

	messages, err := h.Conversations.ListMessages(c.Request.Context(), conv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}
