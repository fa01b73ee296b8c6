package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/chatforge/chatforge-golang/internal/chat"
	"github.com/chatforge/chatforge-golang/internal/database"
	"github.com/chatforge/chatforge-golang/internal/handlers"
	"github.com/chatforge/chatforge-golang/internal/provider"
	"github.com/chatforge/chatforge-golang/internal/routes"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- Provider Registry ---
	// Credentials are collected here, once, and injected explicitly. A
	// missing key degrades the affected models to a disclosed fallback
	// instead of preventing startup.
	cfg := provider.Config{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
	}

	var gemini *provider.GeminiProvider
	if cfg.GeminiKey != "" {
		gemini, err = provider.NewGemini(context.Background(), cfg.GeminiKey)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini provider: %v", err)
		}
		defer gemini.Close()
	} else {
		log.Println("WARNING: GEMINI_API_KEY is not set; gemini-pro requests will be served by the fallback model.")
	}
	if cfg.OpenAIKey == "" {
		log.Println("WARNING: OPENAI_API_KEY is not set; OpenAI-backed requests will fail until it is configured.")
	}

	registry := provider.NewRegistry(cfg, gemini)

	// 3. --- Stores & Coordinator ---
	users := &chat.UserStore{DB: db}
	conversations := &chat.ConversationStore{DB: db}
	guard := &chat.UsageGuard{DB: db}
	coordinator := chat.NewCoordinator(users, conversations, guard, registry)

	// --- Application Setup ---
	app := &handlers.Handlers{
		Coordinator:   coordinator,
		Conversations: conversations,
		Users:         users,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting ChatForge API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
