package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/handler"
	"github.com/examgate/examgate-backend/internal/logger"
	"github.com/examgate/examgate-backend/internal/remote"
	"github.com/examgate/examgate-backend/internal/router"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/store"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreBackend).
		Msg("Starting ExamGate Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect Durable Store ─────────────────────────────────────────
	kv, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to connect durable store")
	}
	defer closeStore()

	// ─── Initialize Remote Collaborators ───────────────────────────────
	resultsClient := remote.NewResultsClient(cfg.ResultsAPIURL, cfg.RemoteSyncTimeout, log)
	accountsClient := remote.NewAccountsClient(cfg.AccountsAPIURL, cfg.RemoteSyncTimeout, log)
	questionSource := remote.NewQuestionSource(cfg.QuestionFetchTimeout, log)

	// ─── Initialize Services ──────────────────────────────────────────
	governor := service.NewAttemptGovernor(accountsClient, log)
	loader := service.NewQuestionLoader(questionSource, log)
	submitter := service.NewSubmissionService(kv, resultsClient, cfg.RemoteSyncTimeout, log)
	sessions := service.NewSessionService(governor, loader, submitter, kv, resultsClient, accountsClient, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(sessions, log),
		WS:      handler.NewWSHandler(sessions, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop active session clocks. Deadlines stay persisted, so sessions
	// resume where they left off after a restart.
	sessions.CloseAll()

	log.Info().Msg("Shutdown complete")
}

// buildStore connects the configured store backend. Redis is the default;
// Postgres suits single-node deployments without a Redis instance.
func buildStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.KV, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxDBConns, log)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
