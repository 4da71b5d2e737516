package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []struct {
	name string
	sql  string
}{
	{"players table", `
		CREATE TABLE IF NOT EXISTS players (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			games_played INT NOT NULL DEFAULT 0,
			wins INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_wins ON players(wins DESC, games_played ASC);
	`},
	{"games table", `
		CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			winner VARCHAR(20) NOT NULL,
			rounds INT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_games_chat_time ON games(chat_id, ended_at DESC);
	`},
	{"game_seats table", `
		CREATE TABLE IF NOT EXISTS game_seats (
			game_id UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
			slot INT NOT NULL,
			user_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL,
			alive BOOLEAN NOT NULL,
			automated BOOLEAN NOT NULL,
			won BOOLEAN NOT NULL,
			PRIMARY KEY (game_id, slot)
		);
		CREATE INDEX IF NOT EXISTS idx_game_seats_user ON game_seats(user_id);
	`},
	{"werewolf_snapshots table", `
		CREATE TABLE IF NOT EXISTS werewolf_snapshots (
			id BIGSERIAL PRIMARY KEY,
			game_id UUID NOT NULL,
			chat_id BIGINT NOT NULL,
			phase VARCHAR(30) NOT NULL,
			round INT NOT NULL,
			state JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_werewolf_snapshots_game ON werewolf_snapshots(game_id, id DESC);
	`},
	{"werewolf_draws table", `
		CREATE TABLE IF NOT EXISTS werewolf_draws (
			id BIGSERIAL PRIMARY KEY,
			game_id UUID NOT NULL,
			round INT NOT NULL,
			phase VARCHAR(30) NOT NULL,
			candidates INT[] NOT NULL,
			chosen INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_werewolf_draws_game ON werewolf_draws(game_id);
	`},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")
	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}
	log.Info().Msg("All migrations completed successfully")
	return nil
}
