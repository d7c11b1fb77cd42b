package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/clients/advisor"
	"github.com/dkoutsos/alphapilot/internal/clients/binance"
	"github.com/dkoutsos/alphapilot/internal/config"
	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/cycle"
	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/notify"
	"github.com/dkoutsos/alphapilot/internal/registry"
	"github.com/dkoutsos/alphapilot/internal/scheduler"
	"github.com/dkoutsos/alphapilot/internal/server"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting AlphaPilot")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	reg := registry.New(registry.Config{
		DB:       db,
		Coins:    cfg.Coins,
		Prices:   binance.NewClient(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceTestnet, log),
		Advisor:  buildAdvisor(cfg, log),
		Exchange: buildExchange(cfg, log),
		Notifier: buildNotifier(cfg, log),
		Log:      log,
	})

	sched := scheduler.New(log)

	if cfg.AdvisorURL != "" {
		loop := scheduler.NewTradingLoopJob(scheduler.TradingLoopConfig{
			Accounts:   reg.Accounts,
			Controller: reg.Controller,
			Incidents:  reg.Incidents,
			Log:        log,
		})
		schedule := fmt.Sprintf("@every %ds", cfg.CycleIntervalSeconds)
		if err := sched.AddJob(schedule, loop); err != nil {
			log.Fatal().Err(err).Msg("Failed to register trading loop")
		}
	} else {
		log.Warn().Msg("No advisor configured, trading loop disabled")
	}

	if err := sched.AddJob("@every 60s", scheduler.NewExpirySweepJob(reg.Queue, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register expiry sweep")
	}

	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
		Log:      log,
		DB:       db,
		Registry: reg,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// buildAdvisor returns nil when no decision provider is configured, which
// disables the trading loop but keeps the rest of the API serving.
func buildAdvisor(cfg *config.Config, log zerolog.Logger) cycle.Advisor {
	if cfg.AdvisorURL == "" {
		return nil
	}
	return advisor.NewClient(cfg.AdvisorURL, cfg.AdvisorAPIKey, log)
}

// buildExchange returns nil when live credentials are missing. Live accounts
// then fall back to simulated execution and the gap is journaled.
func buildExchange(cfg *config.Config, log zerolog.Logger) execution.ExchangeClient {
	if !cfg.ExchangeConfigured() {
		return nil
	}
	return binance.NewClient(cfg.BinanceAPIKey, cfg.BinanceSecretKey, cfg.BinanceTestnet, log)
}

func buildNotifier(cfg *config.Config, log zerolog.Logger) notify.Notifier {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		log.Info().Msg("Telegram not configured, notifications disabled")
		return notify.Nop{}
	}

	telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize Telegram, notifications disabled")
		return notify.Nop{}
	}
	return telegram
}
