// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"werewolf-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrGameNotFound   = errors.New("game not found")
)

const playerColumns = `telegram_id, username, games_played, wins, created_at, updated_at`

// PlayerRepository handles player records.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(&p.TelegramID, &p.Username, &p.GamesPlayed, &p.Wins, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a player by Telegram ID.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, telegramID int64) (*model.Player, error) {
	p, err := scanPlayer(r.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE telegram_id = $1`, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// Upsert creates the player or refreshes their username.
func (r *PlayerRepository) Upsert(ctx context.Context, telegramID int64, username string) (*model.Player, error) {
	const query = `
		INSERT INTO players (telegram_id, username, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username, updated_at = NOW()
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.pool.QueryRow(ctx, query, telegramID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}
	return p, nil
}

// Top returns players ordered by wins, then by fewer games played.
func (r *PlayerRepository) Top(ctx context.Context, limit int) ([]*model.Player, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE games_played > 0
		ORDER BY wins DESC, games_played ASC, telegram_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}
