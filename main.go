package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"hotline/controllers"
	"hotline/services"
	"hotline/store"
	"hotline/utils"
)

// Server owns the HTTP surface of the hotline service.
type Server struct {
	router     *mux.Router
	port       string
	controller *controllers.Controller
}

// NewServer creates a new server instance
func NewServer(port string, controller *controllers.Controller) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		port:       port,
		controller: controller,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all our endpoints
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/chat", s.controller.ChatHandler).Methods("POST")
	s.router.HandleFunc("/rag", s.controller.RAGHandler).Methods("POST")
	s.router.HandleFunc("/clear_history", s.controller.ClearHistoryHandler).Methods("POST")
	s.router.HandleFunc("/feedback", s.controller.FeedbackHandler).Methods("POST")
	s.router.HandleFunc("/trending_questions", s.controller.TrendingHandler).Methods("GET")
	s.router.HandleFunc("/health", s.controller.HealthHandler).Methods("GET")
	s.router.HandleFunc("/status", s.controller.StatusHandler).Methods("GET")
}

// Start runs the HTTP server with CORS enabled until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)

	httpServer := &http.Server{
		Addr:    ":" + s.port,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Hotline server listening on port %s", s.port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	knowledgeBase := flag.String("kb", "./docs", "Default knowledge base directory for the Discord gateway")
	enableDiscord := flag.Bool("discord", true, "Enable the Discord gateway (still requires DISCORD_BOT_TOKEN)")
	flag.Parse()

	if err := utils.LoadEnv(".env"); err != nil {
		log.Printf("Warning: %v", err)
	}

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Persistence is optional: a broken database disables storage, feedback
	// and trending but never the chat pipeline itself
	var db *store.Store
	if db, err = store.New(cfg.Database.Path); err != nil {
		log.Printf("Warning: persistence disabled: %v", err)
		db = nil
	}

	scorer := services.NewScorerClient(cfg.Scorer.URL, time.Duration(cfg.Scorer.TimeoutSecs)*time.Second)
	go func() {
		if err := scorer.Warmup(context.Background()); err != nil {
			log.Printf("Scorer warmup failed: %v", err)
		}
	}()

	kbCache := services.NewKnowledgeBaseCache()
	ranker := services.NewRelevanceRanker(kbCache, scorer)
	sessions := services.NewMemorySessionStore()
	prompts := services.NewPromptAssembler()

	timeout := time.Duration(cfg.Backend.TimeoutSecs) * time.Second
	generator := services.NewCompletionClient(
		services.BackendMode(cfg.Backend.Mode),
		cfg.Backend.LocalURL,
		cfg.Backend.HostedURL,
		cfg.Backend.HostedModel,
		os.Getenv("MISTRAL_API_KEY"),
		timeout,
	)

	// The verifier runs on its own lighter local model
	verifier := services.NewCompletionClient(
		services.ModeLocal,
		cfg.Verifier.URL,
		"", "", "",
		timeout,
	)
	gate := services.NewRelevanceGate(verifier, cfg.Verifier.Model, cfg.Verifier.MaxTokens)

	docs := services.NewDocServerClient(cfg.DocServer.URL, time.Duration(cfg.DocServer.TimeoutSecs)*time.Second)
	citations := services.NewCitationBuilder(docs)

	splitter := services.NewMessageSplitter()
	if cfg.Splitter.ModelAssisted {
		splitter = services.NewModelAssistedSplitter(generator, cfg.Backend.Model)
	}

	var chatStore services.ChatStore
	var feedback controllers.FeedbackStore
	var trending *services.TrendingService
	if db != nil {
		chatStore = db
		feedback = db
		trending = services.NewTrendingService(db, generator, cfg.Backend.Model)
	}

	chatbot := services.NewChatbot(
		ranker, sessions, prompts, generator, gate, citations, splitter,
		chatStore, trending,
		services.ChatbotConfig{
			Model:     cfg.Backend.Model,
			MaxTokens: cfg.Backend.MaxTokens,
			MaxTurns:  cfg.History.MaxTurns,
		},
	)

	discordService := services.NewDiscordService(chatbot, *knowledgeBase)
	controller := controllers.NewController(chatbot, ranker, trending, feedback, discordService)

	if err := controller.StartServices(*enableDiscord); err != nil {
		log.Printf("Warning: background services failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(cfg.Server.Port, controller)
	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	if err := controller.StopServices(); err != nil {
		log.Printf("Error stopping background services: %v", err)
	}
	if db != nil {
		db.Close()
	}
	log.Printf("Shutdown complete")
}
