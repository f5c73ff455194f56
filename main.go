package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	appLogger "github.com/FACorreiaa/go-city-routes/app/logger"
	"github.com/FACorreiaa/go-city-routes/app/observability/metrics"
	"github.com/FACorreiaa/go-city-routes/app/tracer"
	"github.com/FACorreiaa/go-city-routes/config"
	"github.com/FACorreiaa/go-city-routes/internal/api/chat"
	"github.com/FACorreiaa/go-city-routes/internal/api/classifier"
	generativeAI "github.com/FACorreiaa/go-city-routes/internal/api/generative_ai"
	"github.com/FACorreiaa/go-city-routes/internal/api/maps"
	"github.com/FACorreiaa/go-city-routes/internal/api/places"
	"github.com/FACorreiaa/go-city-routes/internal/api/route"
	"github.com/FACorreiaa/go-city-routes/internal/api/routing"
	"github.com/FACorreiaa/go-city-routes/internal/api/suggestions"
	"github.com/FACorreiaa/go-city-routes/internal/router"
	"github.com/FACorreiaa/go-city-routes/internal/types"
)

func main() {
	// --- Initial Loading ---
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// --- Logger Setup ---
	logger := setupLogger()
	slog.SetDefault(logger) // Set globally after initialization

	// --- Application Context & Shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics()
	metrics.InitAppMetrics()

	// --- External API Keys ---
	geminiKey := os.Getenv("GEMINI_API_KEY")
	mapsKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if mapsKey == "" {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, place verification will fail")
	}

	// --- Dependency Injection ---
	aiClient, err := generativeAI.NewAIClient(ctx, geminiKey, cfg.Gemini.Model, cfg.Gemini.Temperature)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		os.Exit(1)
	}

	classifierService := classifier.NewService(aiClient, types.TravelMode(cfg.Pipeline.DefaultTravelMode), logger)
	intentClassifier := routing.NewLLMIntentClassifier(aiClient, logger)
	routingService := routing.NewService(intentClassifier, logger)
	suggestionService := suggestions.NewService(aiClient, logger)
	placesService := places.NewService(mapsKey, cfg.Places.BaseURL, cfg.Places.Timeout, cfg.Places.CacheTTL, logger)
	resolver := places.NewResolver(placesService, suggestionService, cfg.Pipeline.RetryRounds, cfg.Pipeline.LookupConcurrency, logger)
	mapsService := maps.NewService(mapsKey)
	assembler := route.NewAssembler(mapsService)

	chatService := chat.NewService(classifierService, routingService, suggestionService, resolver, assembler, cfg.Pipeline.MaxPlaces, logger)
	chatHandler := chat.NewHandler(chatService, logger)

	// --- Router Setup ---
	routerConfig := &router.Config{
		ChatHandler: chatHandler,
	}
	mainRouter := router.SetupRouter(routerConfig)

	mux := chi.NewMux() // Use NewMux for Chi v5
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger)) // Use your slog middleware
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(60 * time.Second))       // Example timeout
	mux.Use(middleware.Compress(5, "application/json")) // Compress JSON responses
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // Pipeline runs can take a while
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError), // Pipe server errors to slog
	}

	// --- Start Server Goroutine ---
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel() // Trigger shutdown if server fails unexpectedly
		}
	}()

	// --- Wait for Shutdown Signal ---
	<-ctx.Done() // Block until context is cancelled (Ctrl+C, SIGTERM)

	// --- Graceful Shutdown ---
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	// Create a context with timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second) // 10 seconds to shutdown
	defer shutdownCancel()

	// Attempt to gracefully shut down the HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" { // Default to development if not set
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug, // More verbose in dev
			TimeFormat: time.Kitchen,
			AddSource:  true, // Show file:line
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)") // Use standard log before slog default is set
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false, // Don't add source in prod unless needed for specific errors
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
