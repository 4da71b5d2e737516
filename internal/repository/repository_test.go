// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"werewolf-bot/internal/game/werewolf"
	"werewolf-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a migrated PostgreSQL container and returns a pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})
	return pool
}

func result(winner werewolf.Faction) werewolf.Result {
	start := time.Now().Add(-20 * time.Minute).Truncate(time.Second)
	return werewolf.Result{
		GameID: uuid.NewString(),
		ChatID: -1001,
		Winner: winner,
		Rounds: 3,
		Participants: []werewolf.ParticipantView{
			{ID: 11, Name: "alice", Slot: 1, Role: werewolf.RoleWerewolf, Alive: true},
			{ID: 12, Name: "bob", Slot: 2, Role: werewolf.RoleSeer, Alive: false},
			{ID: -1, Name: "AI-1", Slot: 3, Role: werewolf.RoleVillager, Alive: false, Automated: true},
		},
		StartedAt: start,
		EndedAt:   start.Add(20 * time.Minute),
	}
}

func TestPlayerRepository_Upsert(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	p, err := repo.Upsert(ctx, 11, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Zero(t, p.GamesPlayed)

	p, err = repo.Upsert(ctx, 11, "alice2")
	require.NoError(t, err)
	assert.Equal(t, "alice2", p.Username)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestGameRepository_RecordResult(t *testing.T) {
	pool := setupTestDB(t)
	games := NewGameRepository(pool)
	players := NewPlayerRepository(pool)
	ctx := context.Background()

	res := result(werewolf.FactionWolves)
	require.NoError(t, games.RecordResult(ctx, res))
	require.NoError(t, games.RecordResult(ctx, res), "recording twice is a no-op")

	g, seats, err := games.GetGame(ctx, res.GameID)
	require.NoError(t, err)
	assert.Equal(t, "wolves", g.Winner)
	assert.Equal(t, 3, g.Rounds)
	require.Len(t, seats, 3)
	assert.True(t, seats[0].Won)
	assert.False(t, seats[1].Won)
	assert.True(t, seats[2].Automated)

	alice, err := players.GetByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 1, alice.GamesPlayed)
	assert.Equal(t, 1, alice.Wins)

	bob, err := players.GetByID(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, bob.GamesPlayed)
	assert.Equal(t, 0, bob.Wins)

	_, err = players.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrPlayerNotFound, "automated seats have no stats")

	second := result(werewolf.FactionGood)
	require.NoError(t, games.RecordResult(ctx, second))

	top, err := players.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(11), top[0].TelegramID)
	assert.Equal(t, 1, top[0].Wins)
	assert.Equal(t, int64(12), top[1].TelegramID)
	assert.Equal(t, 2, top[1].GamesPlayed)

	_, _, err = games.GetGame(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameRepository_SnapshotsAndDraws(t *testing.T) {
	pool := setupTestDB(t)
	games := NewGameRepository(pool)
	ctx := context.Background()
	gameID := uuid.NewString()

	_, err := games.LatestSnapshot(ctx, gameID)
	assert.ErrorIs(t, err, ErrGameNotFound)

	for _, phase := range []werewolf.Phase{werewolf.PhaseNightEliminate, werewolf.PhaseNightInspect} {
		require.NoError(t, games.SaveSnapshot(ctx, werewolf.Snapshot{
			GameID: gameID,
			ChatID: -1001,
			Phase:  phase,
			Round:  1,
			Participants: []werewolf.ParticipantView{
				{ID: 11, Name: "alice", Slot: 1, Role: werewolf.RoleWerewolf, Alive: true},
			},
			Votes: map[int]int{1: 2},
		}))
	}

	snap, err := games.LatestSnapshot(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, werewolf.PhaseNightInspect, snap.Phase)
	assert.Equal(t, werewolf.RoleWerewolf, snap.Participants[0].Role)
	assert.Equal(t, map[int]int{1: 2}, snap.Votes)

	require.NoError(t, games.LogDraw(ctx, werewolf.Draw{
		GameID:     gameID,
		Round:      2,
		Phase:      werewolf.PhaseNightEliminate,
		Candidates: []int{4, 7},
		Chosen:     7,
		At:         time.Now(),
	}))
	draws, err := games.Draws(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, []int32{4, 7}, draws[0].Candidates)
	assert.Equal(t, 7, draws[0].Chosen)
	assert.Equal(t, string(werewolf.PhaseNightEliminate), draws[0].Phase)
}
