package werewolf

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *recordingMessenger) {
	t.Helper()
	msg := &recordingMessenger{}
	m := NewManager(Options{
		Timing:    longTiming(),
		Messenger: msg,
		Moderator: &fakeModerator{},
		Recorder:  &memRecorder{},
		NewRand:   func() Rand { return &fixedRand{} },
	})
	msg.settle = func() {
		m.mu.RLock()
		engines := make([]*Engine, 0, len(m.sessions))
		for _, e := range m.sessions {
			engines = append(engines, e)
		}
		m.mu.RUnlock()
		for _, e := range engines {
			e.flush()
		}
	}
	t.Cleanup(func() { m.Shutdown("test done") })
	return m, msg
}

func seat(id int64) Seat {
	return Seat{ID: id, Name: fmt.Sprintf("p%d", id)}
}

func TestLobbySeating(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	const chat = int64(-100)

	l, err := m.OpenLobby(ctx, chat, seat(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.HostID)
	assert.Len(t, l.Seats, 1)

	_, err = m.OpenLobby(ctx, chat, seat(2))
	assert.ErrorIs(t, err, ErrSessionExists)

	_, err = m.Join(ctx, chat, seat(2))
	require.NoError(t, err)
	_, err = m.Join(ctx, chat, seat(2))
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	l, err = m.AddBot(ctx, chat, "")
	require.NoError(t, err)
	l, err = m.AddBot(ctx, chat, "  小白 ")
	require.NoError(t, err)
	require.Len(t, l.Seats, 4)
	assert.Equal(t, Seat{ID: -1, Name: "AI-1", Automated: true}, l.Seats[2])
	assert.Equal(t, Seat{ID: -2, Name: "小白", Automated: true}, l.Seats[3])

	_, err = m.Join(ctx, -200, seat(3))
	assert.ErrorIs(t, err, ErrNoLobby)

	_, err = m.Leave(ctx, chat, 99)
	assert.ErrorIs(t, err, ErrNotParticipant)

	// The returned copy is detached from the manager's lobby.
	l.Seats[0].Name = "changed"
	stored, err := m.GetLobby(chat)
	require.NoError(t, err)
	assert.Equal(t, "p1", stored.Seats[0].Name)
}

func TestLobbyFillsUp(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	const chat = int64(-100)

	_, err := m.OpenLobby(ctx, chat, seat(1))
	require.NoError(t, err)
	for id := int64(2); id <= MaxPlayers; id++ {
		_, err = m.Join(ctx, chat, seat(id))
		require.NoError(t, err)
	}
	_, err = m.Join(ctx, chat, seat(99))
	assert.ErrorIs(t, err, ErrLobbyFull)
	_, err = m.AddBot(ctx, chat, "")
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestLobbyClosesWhenLastHumanLeaves(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	const chat = int64(-100)

	_, err := m.OpenLobby(ctx, chat, seat(1))
	require.NoError(t, err)
	_, err = m.AddBot(ctx, chat, "")
	require.NoError(t, err)

	l, err := m.Leave(ctx, chat, 1)
	require.NoError(t, err)
	assert.Nil(t, l)

	_, err = m.GetLobby(chat)
	assert.ErrorIs(t, err, ErrNoLobby)
}

func TestLobbyHostPassesToNextHuman(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	const chat = int64(-100)

	_, err := m.OpenLobby(ctx, chat, seat(1))
	require.NoError(t, err)
	_, err = m.AddBot(ctx, chat, "")
	require.NoError(t, err)
	_, err = m.Join(ctx, chat, seat(7))
	require.NoError(t, err)

	l, err := m.Leave(ctx, chat, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), l.HostID)
	assert.Len(t, l.Seats, 2)
}

func TestStartFromLobby(t *testing.T) {
	ctx := context.Background()
	m, msg := newTestManager(t)
	const chat = int64(-100)

	_, err := m.OpenLobby(ctx, chat, seat(1))
	require.NoError(t, err)
	for id := int64(2); id <= 5; id++ {
		_, err = m.Join(ctx, chat, seat(id))
		require.NoError(t, err)
	}

	_, err = m.StartFromLobby(ctx, chat)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	assert.False(t, m.IsSessionActive(chat))

	for i := 0; i < 4; i++ {
		_, err = m.AddBot(ctx, chat, "")
		require.NoError(t, err)
	}
	snap, err := m.StartFromLobby(ctx, chat)
	require.NoError(t, err)

	assert.NotEmpty(t, snap.GameID)
	assert.Equal(t, PhaseNightEliminate, snap.Phase)
	assert.Len(t, snap.Participants, 9)
	assert.True(t, m.IsSessionActive(chat))
	assert.Equal(t, []int64{chat}, m.ActiveSessions())

	_, err = m.GetLobby(chat)
	assert.ErrorIs(t, err, ErrNoLobby, "starting consumes the lobby")

	got, ok := m.ChatOf(3)
	assert.True(t, ok)
	assert.Equal(t, chat, got)
	_, ok = m.ChatOf(-1)
	assert.False(t, ok, "automated seats are not addressable")

	_, err = m.OpenLobby(ctx, chat, seat(50))
	assert.ErrorIs(t, err, ErrSessionExists)
	_, err = m.StartSession(ctx, chat, seatsFor(9), dist9())
	assert.ErrorIs(t, err, ErrSessionExists)

	assert.Len(t, msg.ofKind(KindGameStarted), 1)
	// Five humans get a private role card, the four bots do not.
	assert.Len(t, msg.ofKind(KindRoleAssigned), 5)
}

func TestManagerRoutesActions(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	const chat = int64(-100)

	err := m.SubmitAction(ctx, chat, playerID(1), Proposal{Kind: ActionKill, Target: 6})
	assert.ErrorIs(t, err, ErrNoActiveSession)
	assert.ErrorIs(t, m.ForceTimeout(ctx, chat), ErrNoActiveSession)
	_, err = m.GetState(chat)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = m.StartSession(ctx, chat, seatsFor(9), dist9())
	require.NoError(t, err)

	require.NoError(t, m.SubmitAction(ctx, chat, playerID(1), Proposal{Kind: ActionKill, Target: 6}))
	err = m.SubmitAction(ctx, chat, playerID(6), Proposal{Kind: ActionKill, Target: 7})
	assert.ErrorIs(t, err, ErrNotParticipant)

	require.NoError(t, m.ForceTimeout(ctx, chat))
	state, err := m.GetState(chat)
	require.NoError(t, err)
	assert.Equal(t, PhaseNightInspect, state.Phase)
	assert.Equal(t, 6, state.NightKill)
}

func TestManagerAbort(t *testing.T) {
	ctx := context.Background()
	m, msg := newTestManager(t)
	const chat = int64(-100)

	assert.ErrorIs(t, m.Abort(ctx, chat, "nothing here"), ErrNoActiveSession)

	_, err := m.OpenLobby(ctx, chat, seat(1))
	require.NoError(t, err)
	require.NoError(t, m.Abort(ctx, chat, "host left"))
	_, err = m.GetLobby(chat)
	assert.ErrorIs(t, err, ErrNoLobby)

	_, err = m.StartSession(ctx, chat, seatsFor(9), dist9())
	require.NoError(t, err)
	require.NoError(t, m.Abort(ctx, chat, "admin"))

	assert.False(t, m.IsSessionActive(chat))
	assert.Empty(t, m.ActiveSessions())
	_, ok := m.ChatOf(playerID(1))
	assert.False(t, ok)

	state, err := m.GetState(chat)
	require.NoError(t, err, "finished games stay readable")
	assert.Equal(t, PhaseAborted, state.Phase)
	assert.Len(t, msg.ofKind(KindGameAborted), 1)

	// A new game can start in the same chat.
	_, err = m.StartSession(ctx, chat, seatsFor(9), dist9())
	require.NoError(t, err)
	assert.True(t, m.IsSessionActive(chat))
}

func TestChatsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	seatsB := make([]Seat, 9)
	for i := range seatsB {
		seatsB[i] = seat(int64(500 + i))
	}
	_, err := m.StartSession(ctx, -1, seatsFor(9), dist9())
	require.NoError(t, err)
	_, err = m.StartSession(ctx, -2, seatsB, dist9())
	require.NoError(t, err)
	assert.Equal(t, []int64{-2, -1}, m.ActiveSessions())

	require.NoError(t, m.SubmitAction(ctx, -1, playerID(1), Proposal{Kind: ActionKill, Target: 6}))
	require.NoError(t, m.ForceTimeout(ctx, -1))

	a, _ := m.GetState(-1)
	b, _ := m.GetState(-2)
	assert.Equal(t, PhaseNightInspect, a.Phase)
	assert.Equal(t, PhaseNightEliminate, b.Phase)
}
