package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/model"
)

// GameRepository persists werewolf snapshots, draws and results. It
// implements werewolf.Recorder.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

var _ werewolf.Recorder = (*GameRepository)(nil)

// SaveSnapshot stores a full snapshot as JSONB.
func (r *GameRepository) SaveSnapshot(ctx context.Context, snap werewolf.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO werewolf_snapshots (game_id, chat_id, phase, round, state, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, snap.GameID, snap.ChatID, string(snap.Phase), snap.Round, state)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot of a game.
func (r *GameRepository) LatestSnapshot(ctx context.Context, gameID string) (*werewolf.Snapshot, error) {
	var state []byte
	err := r.pool.QueryRow(ctx, `
		SELECT state FROM werewolf_snapshots
		WHERE game_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, gameID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap werewolf.Snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// LogDraw records a random tie-break.
func (r *GameRepository) LogDraw(ctx context.Context, d werewolf.Draw) error {
	candidates := make([]int32, len(d.Candidates))
	for i, c := range d.Candidates {
		candidates[i] = int32(c)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO werewolf_draws (game_id, round, phase, candidates, chosen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.GameID, d.Round, string(d.Phase), candidates, d.Chosen, d.At)
	if err != nil {
		return fmt.Errorf("failed to log draw: %w", err)
	}
	return nil
}

// Draws lists a game's tie-breaks in order.
func (r *GameRepository) Draws(ctx context.Context, gameID string) ([]*model.Draw, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, game_id, round, phase, candidates, chosen, created_at
		FROM werewolf_draws
		WHERE game_id = $1
		ORDER BY id ASC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	var draws []*model.Draw
	for rows.Next() {
		var d model.Draw
		if err := rows.Scan(&d.ID, &d.GameID, &d.Round, &d.Phase, &d.Candidates, &d.Chosen, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan draw: %w", err)
		}
		draws = append(draws, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}
	return draws, nil
}

// RecordResult stores the final result and updates human players' stats in
// one transaction. Recording the same game twice is a no-op.
func (r *GameRepository) RecordResult(ctx context.Context, res werewolf.Result) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO games (id, chat_id, winner, rounds, started_at, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, res.GameID, res.ChatID, string(res.Winner), res.Rounds, res.StartedAt, res.EndedAt)
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, p := range res.Participants {
			won := p.Role.Faction() == res.Winner
			batch.Queue(`
				INSERT INTO game_seats (game_id, slot, user_id, name, role, alive, automated, won)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, res.GameID, p.Slot, p.ID, p.Name, string(p.Role), p.Alive, p.Automated, won)
			if p.Automated {
				continue
			}
			wins := 0
			if won {
				wins = 1
			}
			batch.Queue(`
				INSERT INTO players (telegram_id, username, games_played, wins, created_at, updated_at)
				VALUES ($1, $2, 1, $3, NOW(), NOW())
				ON CONFLICT (telegram_id) DO UPDATE
				SET games_played = players.games_played + 1,
				    wins = players.wins + EXCLUDED.wins,
				    username = EXCLUDED.username,
				    updated_at = NOW()
			`, p.ID, p.Name, wins)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to record seats: %w", err)
		}
		return nil
	})
}

// GetGame returns a finished game with its seats.
func (r *GameRepository) GetGame(ctx context.Context, gameID string) (*model.Game, []*model.GameSeat, error) {
	var g model.Game
	err := r.pool.QueryRow(ctx, `
		SELECT id, chat_id, winner, rounds, started_at, ended_at FROM games WHERE id = $1
	`, gameID).Scan(&g.ID, &g.ChatID, &g.Winner, &g.Rounds, &g.StartedAt, &g.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrGameNotFound
		}
		return nil, nil, fmt.Errorf("failed to get game: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT game_id, slot, user_id, name, role, alive, automated, won
		FROM game_seats WHERE game_id = $1 ORDER BY slot
	`, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	var seats []*model.GameSeat
	for rows.Next() {
		var s model.GameSeat
		if err := rows.Scan(&s.GameID, &s.Slot, &s.UserID, &s.Name, &s.Role, &s.Alive, &s.Automated, &s.Won); err != nil {
			return nil, nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating seats: %w", err)
	}
	return &g, seats, nil
}
