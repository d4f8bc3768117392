// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telkom-ai-demo/internal/config"
	portadapter "telkom-ai-demo/internal/domain/ports/adapter"
	"telkom-ai-demo/internal/domain/ports/repository"
	aiAdapters "telkom-ai-demo/internal/infra/adapters/ai"
	pg "telkom-ai-demo/internal/infra/db/postgres"
	"telkom-ai-demo/internal/infra/logging"
	"telkom-ai-demo/internal/infra/metrics"
	red "telkom-ai-demo/internal/infra/redis"
	"telkom-ai-demo/internal/infra/storage"
	"telkom-ai-demo/internal/infra/web"
	"telkom-ai-demo/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (echo AI, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Session store ----
	var store repository.SessionStore
	switch cfg.Store.Backend {
	case "redis":
		client, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect")
		}
		defer client.Close()
		store = red.NewSessionStore(client, logger)
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connect")
		}
		defer pool.Close()
		pgStore := pg.NewSessionStore(pool, logger)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema")
		}
		store = pgStore
	default:
		store = storage.NewFileStore(cfg.Store.Path, logger)
	}
	logger.Info().Str("backend", cfg.Store.Backend).Msg("session store ready")

	// ---- AI provider (Telkom -> OpenAI -> Gemini) ----
	var completer portadapter.ChatCompleter
	switch {
	case cfg.AI.TelkomKey != "":
		completer, err = aiAdapters.NewTelkomAdapter(cfg.AI.TelkomKey, cfg.AI.TelkomURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("telkom adapter")
		}
	case cfg.AI.OpenAIKey != "":
		completer, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
	case cfg.AI.GeminiKey != "":
		completer, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
	default:
		completer = aiAdapters.NewNoopAdapter()
	}
	logger.Info().Str("provider", completer.Name()).Msg("chat provider ready")

	// ---- Core ----
	exchange := usecase.NewExchange(completer, cfg.AI.DefaultModel, cfg.AI.RequestTimeout, logger)
	ctrl := usecase.NewSessionController(store, exchange, cfg.Chat, logger)
	defer ctrl.Close()
	ctrl.OnSessionChangeRequested(func(id string) {
		logger.Debug().Str("session_id", id).Msg("session selector change requested")
	})

	// ---- Web ----
	auth := web.NewAuthManager(cfg.Web.AuthSecret, cfg.Web.SecureCookie, cfg.Web.SessionTTL)
	srv := web.NewServer(ctrl, auth, cfg.Web, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
