package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"werewolf-bot/internal/model"
	"werewolf-bot/internal/repository"
)

// memPlayers orders Top the same way the SQL does.
type memPlayers struct {
	mu      sync.Mutex
	players map[int64]*model.Player
}

func newMemPlayers() *memPlayers {
	return &memPlayers{players: make(map[int64]*model.Player)}
}

func (m *memPlayers) GetByID(_ context.Context, id int64) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}
	c := *p
	return &c, nil
}

func (m *memPlayers) Upsert(_ context.Context, id int64, username string) (*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		p = &model.Player{TelegramID: id}
		m.players[id] = p
	}
	p.Username = username
	c := *p
	return &c, nil
}

func (m *memPlayers) Top(_ context.Context, limit int) ([]*model.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Player
	for _, p := range m.players {
		if p.GamesPlayed > 0 {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.GamesPlayed != b.GamesPlayed {
			return a.GamesPlayed < b.GamesPlayed
		}
		return a.TelegramID < b.TelegramID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TestLeaderboardRanksProperty checks competition ranking: ranks start at 1,
// tied neighbours share a rank, and otherwise the rank is the position.
func TestLeaderboardRanksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := newMemPlayers()
		n := rapid.IntRange(0, 60).Draw(t, "players")
		for i := 0; i < n; i++ {
			games := rapid.IntRange(1, 20).Draw(t, "games")
			store.players[int64(i+1)] = &model.Player{
				TelegramID:  int64(i + 1),
				GamesPlayed: games,
				Wins:        rapid.IntRange(0, games).Draw(t, "wins"),
			}
		}
		limit := rapid.IntRange(-5, 80).Draw(t, "limit")

		board, err := NewStatsService(store).Leaderboard(context.Background(), limit)
		if err != nil {
			t.Fatal(err)
		}

		want := limit
		if want <= 0 {
			want = DefaultTopLimit
		}
		if want > MaxTopLimit {
			want = MaxTopLimit
		}
		if len(board) != min(want, n) {
			t.Fatalf("got %d rows, want %d", len(board), min(want, n))
		}
		for i, e := range board {
			if i == 0 {
				if e.Rank != 1 {
					t.Fatalf("first rank %d", e.Rank)
				}
				continue
			}
			prev := board[i-1]
			tied := prev.Player.Wins == e.Player.Wins && prev.Player.GamesPlayed == e.Player.GamesPlayed
			if tied && e.Rank != prev.Rank {
				t.Fatalf("tied rows ranked %d and %d", prev.Rank, e.Rank)
			}
			if !tied && e.Rank != i+1 {
				t.Fatalf("row %d ranked %d", i, e.Rank)
			}
		}
	})
}

func TestProfileAndRegister(t *testing.T) {
	store := newMemPlayers()
	svc := NewStatsService(store)
	ctx := context.Background()

	p, err := svc.Profile(ctx, 7, "neo")
	require.NoError(t, err)
	assert.Equal(t, "neo", p.Username)
	assert.Zero(t, p.GamesPlayed)
	assert.Zero(t, p.WinRate())

	require.NoError(t, svc.Register(ctx, 7, "neo"))
	require.NoError(t, svc.Register(ctx, -3, "AI-3"))
	assert.Len(t, store.players, 1, "automated seats are not registered")

	store.players[7].GamesPlayed = 4
	store.players[7].Wins = 1
	p, err = svc.Profile(ctx, 7, "neo")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, p.WinRate(), 1e-9)
}
