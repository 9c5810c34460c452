// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/playground-ai/chat-playground/internal/config"
	"github.com/playground-ai/chat-playground/internal/handler"
	"github.com/playground-ai/chat-playground/internal/llm"
	"github.com/playground-ai/chat-playground/internal/middleware"
	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/internal/store"
	"github.com/playground-ai/chat-playground/internal/upload"
	"github.com/playground-ai/chat-playground/pkg/logger"
	"github.com/playground-ai/chat-playground/pkg/tracing"
)

func main() {
	// Credentials and settings may come from a local .env file.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat playground API")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chat-playground", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Conversation store with durable state.
	persister, err := store.NewFilePersister(cfg.StateDir)
	if err != nil {
		log.Error("failed to open state directory", zap.Error(err))
		os.Exit(1)
	}
	st := store.New(persister, log)
	st.Load()
	defer st.Close()

	// Completion dispatcher. Credentials are read per call, so missing keys
	// surface as in-band messages rather than startup failures.
	dispatcher := llm.NewDispatcher(map[model.Provider]llm.Client{
		model.ProviderOpenAI:    llm.NewOpenAIClient(func() string { return cfg.OpenAIAPIKey }),
		model.ProviderAnthropic: llm.NewAnthropicClient(func() string { return cfg.AnthropicAPIKey }),
		model.ProviderAmazon: llm.NewBedrockClient(func() llm.BedrockCredentials {
			return llm.BedrockCredentials{
				AccessKey: cfg.AWSAccessKey,
				SecretKey: cfg.AWSSecretKey,
				Region:    cfg.AWSRegion,
			}
		}),
	}, cfg.CompletionTimeout, log)

	uploads := upload.NewRegistry(cfg.UploadTTL)

	// Handlers mediate between store and dispatcher.
	healthHandler := handler.NewHealthHandler(st)
	chatHandler := handler.NewChatHandler(st, log)
	messageHandler := handler.NewMessageHandler(st, dispatcher, uploads, log)
	fileHandler := handler.NewFileHandler(uploads, cfg.UploadMaxSize, log)
	settingsHandler := handler.NewSettingsHandler(st, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/chats", func(r chi.Router) {
			r.Post("/", chatHandler.Create)
			r.Get("/", chatHandler.List)
			r.Put("/current", chatHandler.Select)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Put("/", chatHandler.Update)
				r.Delete("/", chatHandler.Delete)

				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/", fileHandler.Upload)
			r.Get("/{id}", fileHandler.Get)
			r.Delete("/{id}", fileHandler.Delete)
		})

		r.Get("/models", settingsHandler.Models)
		r.Put("/models/selected", settingsHandler.SelectModel)
		r.Get("/parameters", settingsHandler.Parameters)
		r.Put("/parameters", settingsHandler.UpdateParameters)
		r.Get("/parameters/presets", settingsHandler.Presets)
		r.Post("/parameters/preset", settingsHandler.ApplyPreset)
		r.Post("/state/clear", settingsHandler.ClearState)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
