package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/ai"
	"chat-relay/auth"
	"chat-relay/bot"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so that deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository setup failed: %w", err)
	}
	defer func() { _ = messageRepository.Close() }()
	userRepository := repositories.NewUserRepository(db)

	// 3. Core runtime: registry, pipeline, bot reply workers
	registry := runtime.NewRegistry(log)
	pipeline := runtime.NewPipeline(
		log, messageRepository, userRepository, registry,
		bot.ContainsQuestion, config.ReplyQueueSize,
	)
	llmClient := ai.NewClient(config.LLMAPIBase, config.LLMModel, config.LLMAPIKey, config.LLMTimeout)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	for range config.BotWorkers {
		sup.Add(workers.NewBotReplyWorker(
			log, llmClient, pipeline, pipeline.ReplyQueue(), config.LLMTimeout,
		))
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 5. HTTP & WebSocket surface
	tokens := auth.NewTokenIssuer(config.JWTSecret, config.JWTExpiry)
	authService := services.NewAuthService(userRepository, tokens)
	wsHandler := ws.NewHandler(log, registry, config.ConnectionBufferSize)
	apiHandler := httpapi.NewHandler(log, authService, tokens, pipeline, registry, config.HistoryLimit)

	e := echo.New()
	e.HideBanner = true
	apiHandler.RegisterRoutes(e, wsHandler.HandleConnection)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
