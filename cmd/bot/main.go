// Package main is the entry point for the werewolf bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/bot"
	"werewolf-bot/internal/config"
	"werewolf-bot/internal/game"
	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/gateway"
	"werewolf-bot/internal/httpapi"
	"werewolf-bot/internal/oracle"
	"werewolf-bot/internal/pkg/db"
	"werewolf-bot/internal/repository"
	"werewolf-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// A missing .env is fine; the environment may already carry the secrets.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories and services
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	statsService := service.NewStatsService(playerRepo)

	client, err := bot.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	tg := gateway.New(client, cfg.Werewolf.MuteDuration)

	manager := werewolf.NewManager(werewolf.Options{
		Timing:    cfg.Werewolf.Timing(),
		Oracle:    newOracle(cfg),
		Messenger: tg,
		Moderator: tg,
		Recorder:  gameRepo,
	})

	gameRegistry := game.NewRegistry()
	if err := gameRegistry.Register(manager); err != nil {
		log.Fatal().Err(err).Msg("Failed to register werewolf game")
	}
	log.Info().Int("game_count", gameRegistry.Count()).Msg("Games registered")

	telegramBot := bot.New(client, &bot.Dependencies{
		Config:       cfg,
		Manager:      manager,
		StatsService: statsService,
		GameRegistry: gameRegistry,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.SetupRoutes(manager, dbPool.HealthCheck, cfg.HTTP.AdminToken),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP API stopped")
		}
	}()

	go telegramBot.Start()

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")

	telegramBot.Stop()
	manager.Shutdown("服务器维护，游戏中止")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP API shutdown")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// newOracle chains the LLM, when configured, in front of the rule-based
// fallback.
func newOracle(cfg *config.Config) werewolf.Oracle {
	rule := oracle.NewRule(nil)
	if cfg.Oracle.Endpoint == "" {
		log.Info().Msg("No LLM endpoint configured, automated players use rules")
		return rule
	}
	llm := oracle.NewLLM(oracle.LLMConfig{
		Endpoint:    cfg.Oracle.Endpoint,
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		Temperature: cfg.Oracle.Temperature,
		Timeout:     cfg.Oracle.Timeout,
	})
	return oracle.NewFallback(llm, rule)
}
