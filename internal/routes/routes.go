package routes

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/chatforge/chatforge-golang/internal/handlers"
	"github.com/chatforge/chatforge-golang/internal/middleware"
)

// CORSMiddleware tells the browser that the configured frontend origin
// is allowed to call us with credentials and an Authorization header.
func CORSMiddleware() gin.HandlerFunc {
	allowedOrigin := os.Getenv("FRONTEND_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight requests get an empty 204.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			// --- Chat Route (streams the assistant reply) ---
			auth.POST("/chat", h.ChatStream)

			// --- Conversation Routes ---
			auth.GET("/conversations", h.GetMyConversations)
			auth.POST("/conversations", h.CreateConversation)
			auth.GET("/conversations/:id/messages", h.GetConversationMessages)

			// --- Profile ---
			auth.GET("/profile/me", h.GetMyProfile)
		}
	}

	return router
}
