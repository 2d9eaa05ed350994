package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rez77/talabot/internal/config"
	"github.com/rez77/talabot/internal/db"
	"github.com/rez77/talabot/internal/flow"
	"github.com/rez77/talabot/internal/genai"
	"github.com/rez77/talabot/internal/services"
	"github.com/rez77/talabot/internal/speech"
	"github.com/rez77/talabot/internal/transport"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN)
	if err != nil {
		log.Error("database setup failed", "err", err)
		os.Exit(1)
	}
	if *migrateOnly {
		log.Info("migrations applied, exiting")
		return
	}

	ai := genai.New(cfg.OpenRouterAPIKey, cfg.AIModel, cfg.AITimeout, log)

	speechSvc := speech.New(cfg.AudioMaxFileSizeMB, cfg.AudioMaxDurationSeconds,
		func(ctx context.Context) (speech.Engine, error) {
			return speech.NewWhisperEngine(cfg.OpenRouterAPIKey, cfg.WhisperModel), nil
		}, log)

	users := services.NewUserService(conn, cfg.TrialDays)
	subs := services.NewSubscriptionService(conn)
	discounts := services.NewDiscountService(conn)
	content := services.NewContentService(conn, ai, log)

	controller := flow.New(conn, users, subs, discounts, content, speechSvc, flow.Config{
		BotUsername:             cfg.BotUsername,
		AudioMaxFileSizeMB:      cfg.AudioMaxFileSizeMB,
		AudioMaxDurationSeconds: cfg.AudioMaxDurationSeconds,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WebhookHost != "" {
		runWebhook(ctx, cfg, controller, log)
		return
	}
	runPolling(ctx, cfg, controller, log)
}

func runWebhook(ctx context.Context, cfg config.Config, controller *flow.Controller, log *slog.Logger) {
	wh := transport.NewWebhook(":"+cfg.Port, cfg.WebhookPath, controller, log)

	errCh := make(chan error, 1)
	go func() { errCh <- wh.Run() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := wh.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "err", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Error("webhook server failed", "err", err)
			os.Exit(1)
		}
	}
}

func runPolling(ctx context.Context, cfg config.Config, controller *flow.Controller, log *slog.Logger) {
	bot := transport.NewTelegram(cfg.BotToken, controller, log)
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("polling failed", "err", err)
		os.Exit(1)
	}
	log.Info("stopped")
}
