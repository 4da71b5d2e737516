// Package service provides business logic on top of the repositories.
package service

import (
	"context"
	"errors"

	"werewolf-bot/internal/model"
	"werewolf-bot/internal/repository"
)

// Leaderboard size bounds.
const (
	DefaultTopLimit = 10
	MaxTopLimit     = 50
)

// PlayerStore is the player persistence StatsService needs.
type PlayerStore interface {
	GetByID(ctx context.Context, telegramID int64) (*model.Player, error)
	Upsert(ctx context.Context, telegramID int64, username string) (*model.Player, error)
	Top(ctx context.Context, limit int) ([]*model.Player, error)
}

// RankEntry is one leaderboard row. Players with equal wins and games share
// a rank.
type RankEntry struct {
	Rank   int
	Player *model.Player
}

// StatsService handles player registration and the leaderboard.
type StatsService struct {
	players PlayerStore
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(players PlayerStore) *StatsService {
	return &StatsService{players: players}
}

// Register records a player seen in a lobby so their name is current.
func (s *StatsService) Register(ctx context.Context, telegramID int64, username string) error {
	if telegramID <= 0 {
		return nil
	}
	_, err := s.players.Upsert(ctx, telegramID, username)
	return err
}

// Profile returns a player's record. Unknown players get an empty record.
func (s *StatsService) Profile(ctx context.Context, telegramID int64, username string) (*model.Player, error) {
	p, err := s.players.GetByID(ctx, telegramID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return &model.Player{TelegramID: telegramID, Username: username}, nil
	}
	return p, err
}

// Leaderboard returns the top players with competition ranks (1, 2, 2, 4).
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]RankEntry, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	players, err := s.players.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	return rank(players), nil
}

// rank assigns competition ranks to players already ordered by wins desc,
// games asc.
func rank(players []*model.Player) []RankEntry {
	out := make([]RankEntry, len(players))
	for i, p := range players {
		r := i + 1
		if i > 0 {
			prev := players[i-1]
			if prev.Wins == p.Wins && prev.GamesPlayed == p.GamesPlayed {
				r = out[i-1].Rank
			}
		}
		out[i] = RankEntry{Rank: r, Player: p}
	}
	return out
}
