// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"calorie-bot/internal/bot"
	"calorie-bot/internal/config"
	"calorie-bot/internal/entitlement"
	"calorie-bot/internal/gpt"
	"calorie-bot/internal/metrics"
	"calorie-bot/internal/parser"
	"calorie-bot/internal/payment"
	"calorie-bot/internal/pricing"
	"calorie-bot/internal/server"
	"calorie-bot/internal/store"
	"calorie-bot/pkg/logger"
)

func main() {
	l := logger.New()
	l.Info("Starting Calorie Bot...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}
	if cfg.Telegram.Token == "" {
		l.Fatal("Telegram token is not configured")
	}
	if len(cfg.Admin.IDs) == 0 {
		l.Warn("No admin ids configured, admin console is unreachable")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	trial := time.Duration(cfg.Premium.TrialHours) * time.Hour

	// The JSON file backend is the default; a configured DSN selects
	// Postgres, connecting with retry.
	var st store.Store
	if cfg.Store.PostgresDSN != "" {
		var pg *store.PostgresStore
		maxRetries := 5
		for i := 0; i < maxRetries; i++ {
			pg, err = store.NewPostgresStore(cfg.Store.PostgresDSN, trial, l.Named("store"))
			if err == nil {
				break
			}
			l.Error("Failed to connect to database, retrying...", err)
			time.Sleep(time.Duration(i+1) * time.Second)
		}
		if pg == nil {
			l.Fatal("Failed to connect to database after multiple attempts", err)
		}
		st = pg
	} else {
		st = store.NewFileStore(cfg.Store.File, trial, l.Named("store"))
	}
	defer st.Close()

	price := pricing.New(cfg.Premium.StarPrice, cfg.Premium.Days)
	entitlements := entitlement.New(st, cfg.Admin.IDs, l.Named("entitlement"))

	genClient := gpt.NewClient(cfg.OpenAI.APIKey).
		WithModel(cfg.OpenAI.Model).
		WithVisionModel(cfg.OpenAI.VisionModel)

	// The model-assisted parser tier needs a credential; without one the
	// rule tier serves alone with the same contract.
	var itemParser parser.Parser = parser.NewRuleParser()
	if cfg.OpenAI.APIKey != "" {
		itemParser = parser.NewAIParser(genClient.OpenAI(), cfg.OpenAI.Model, parser.NewRuleParser(), l.Named("parser"))
	}

	stripeClient := payment.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.WebhookKey, cfg.Stripe.PriceID)

	telegramBot, err := bot.New(cfg.Telegram.Token, bot.Deps{
		Store:        st,
		Entitlements: entitlements,
		Pricing:      price,
		Generator:    genClient,
		Parser:       itemParser,
		Stripe:       stripeClient,
		Workers:      cfg.Workers,
		Logger:       l.Named("bot"),
	})
	if err != nil {
		l.Fatal("Failed to create Telegram bot", err)
	}

	if err := telegramBot.Start(context.Background()); err != nil {
		l.Fatal("Failed to start Telegram bot", err)
	}
	l.Info("Telegram bot started successfully")

	httpServer := server.NewServer(cfg.Server.Port, telegramBot, l.Named("server"))
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	// Daily self-restart: an operational safety net against leaked
	// connections and stuck long-poll loops, not a correctness mechanism.
	// The supervisor brings the process back up.
	if cfg.RestartInterval > 0 {
		go func() {
			<-time.After(cfg.RestartInterval)
			l.Info("Scheduled restart interval elapsed, exiting")
			os.Exit(0)
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}
	if err := telegramBot.Stop(ctx); err != nil {
		l.Error("Error during bot shutdown", err)
	}

	l.Info("Bot stopped successfully")
}
