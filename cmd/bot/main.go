// Package main is the entry point for the room game bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"room-game-bot/internal/config"
	"room-game-bot/internal/engine"
	"room-game-bot/internal/ledger"
	"room-game-bot/internal/pkg/db"
	"room-game-bot/internal/pkg/lock"
	"room-game-bot/internal/repository"
	"room-game-bot/internal/transport"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Str("variant", cfg.Bot.Variant).Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	userLock := lock.NewUserLock()
	coins := ledger.NewPostgres(userRepo, txRepo, userLock, cfg.Bot.StartingBalance)

	var variant engine.Variant = engine.LowCard{}
	if cfg.Bot.Variant == "sicbo" {
		variant = engine.Sicbo{}
	}

	store := engine.NewStore()
	hub := transport.NewHub(nil) // bot wired below; hub is also the broadcaster
	bot := engine.New(variant, store, coins, hub, engine.Config{
		JoinWindow:      cfg.Game.JoinWindow,
		DrawWindow:      cfg.Game.DrawWindow,
		InterRoundDelay: cfg.Game.InterRoundDelay,
		FinishDelay:     cfg.Game.FinishDelay,
		MaxBet:          cfg.Game.MaxBet,
		MaxPlayers:      cfg.Game.MaxPlayers,
		HouseCutPercent: cfg.Game.HouseCutPercent,
	})
	hub.SetBot(bot)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Chat socket server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Refund every in-flight wager before letting the process die.
	bot.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown")
	}
	hub.Close()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations applies the database schema.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
