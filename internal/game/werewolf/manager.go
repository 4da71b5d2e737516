// Package werewolf implements the Werewolf orchestration engine: role
// dealing, the night/day phase state machine, vote tallying, ability
// resolution and win evaluation, plus the per-chat session manager.
package werewolf

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/pkg/lock"
)

// lifecycleLockTimeout bounds how long a lobby or start command waits for
// another one on the same chat.
const lifecycleLockTimeout = 5 * time.Second

// Lobby collects seats before a game starts.
type Lobby struct {
	ChatID    int64
	HostID    int64
	Seats     []Seat
	OpenedAt  time.Time
	nextBotID int64
}

func (l *Lobby) seated(id int64) bool {
	for _, s := range l.Seats {
		if s.ID == id {
			return true
		}
	}
	return false
}

// passHost hands the lobby to the earliest seated human.
func (l *Lobby) passHost() {
	l.HostID = 0
	for _, s := range l.Seats {
		if !s.Automated {
			l.HostID = s.ID
			return
		}
	}
}

// Options configures a Manager.
type Options struct {
	Timing    Timing
	Oracle    Oracle
	Messenger Messenger
	Moderator Moderator
	Recorder  Recorder
	// NewRand returns the randomness source for a new game. Defaults to a
	// clock-seeded source.
	NewRand func() Rand
}

// Manager owns every lobby and game, one per chat.
type Manager struct {
	opts Options

	mu       sync.RWMutex
	lobbies  map[int64]*Lobby  // chatID -> Lobby
	sessions map[int64]*Engine // chatID -> Engine, kept after the game ends
	players  map[int64]int64   // userID -> chatID of a running game

	chats *lock.KeyedLock
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	if opts.NewRand == nil {
		opts.NewRand = func() Rand { return NewRand(0) }
	}
	return &Manager{
		opts:     opts,
		lobbies:  make(map[int64]*Lobby),
		sessions: make(map[int64]*Engine),
		players:  make(map[int64]int64),
		chats:    lock.NewKeyedLock(),
	}
}

// Name returns the game's display name.
func (m *Manager) Name() string {
	return "狼人杀"
}

// Command returns the command prefix of the game.
func (m *Manager) Command() string {
	return "ww"
}

// Description returns a brief description of the game.
func (m *Manager) Description() string {
	return fmt.Sprintf("%d-%d人狼人杀，支持AI玩家补位", MinPlayers, MaxPlayers)
}

// running returns the chat's engine if its game has not ended.
func (m *Manager) running(chatID int64) (*Engine, bool) {
	m.mu.RLock()
	e, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if !ok || e.Terminal() {
		return nil, false
	}
	return e, true
}

// IsSessionActive checks if a game is running in the chat.
func (m *Manager) IsSessionActive(chatID int64) bool {
	_, ok := m.running(chatID)
	return ok
}

// ActiveSessions returns the chats with a running game, ascending.
func (m *Manager) ActiveSessions() []int64 {
	m.mu.RLock()
	engines := make([]*Engine, 0, len(m.sessions))
	for _, e := range m.sessions {
		engines = append(engines, e)
	}
	m.mu.RUnlock()

	var out []int64
	for _, e := range engines {
		if !e.Terminal() {
			out = append(out, e.ChatID())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OpenLobby opens seating in a chat with the host in the first seat.
func (m *Manager) OpenLobby(ctx context.Context, chatID int64, host Seat) (*Lobby, error) {
	var out *Lobby
	err := m.chats.WithLockContext(ctx, chatID, lifecycleLockTimeout, func() error {
		if m.IsSessionActive(chatID) {
			return ErrSessionExists
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.lobbies[chatID]; ok {
			return ErrSessionExists
		}
		l := &Lobby{ChatID: chatID, HostID: host.ID, Seats: []Seat{host}, OpenedAt: time.Now()}
		m.lobbies[chatID] = l
		out = copyLobby(l)
		return nil
	})
	if err == nil {
		log.Info().Int64("chat_id", chatID).Int64("host", host.ID).Msg("werewolf: lobby opened")
	}
	return out, err
}

// Join seats a human player in the chat's lobby.
func (m *Manager) Join(ctx context.Context, chatID int64, seat Seat) (*Lobby, error) {
	return m.updateLobby(ctx, chatID, func(l *Lobby) error {
		if l.seated(seat.ID) {
			return ErrAlreadyJoined
		}
		if len(l.Seats) >= MaxPlayers {
			return ErrLobbyFull
		}
		seat.Automated = false
		l.Seats = append(l.Seats, seat)
		return nil
	})
}

// AddBot seats an automated player. Automated players get negative
// synthetic IDs that never collide with chat users.
func (m *Manager) AddBot(ctx context.Context, chatID int64, name string) (*Lobby, error) {
	return m.updateLobby(ctx, chatID, func(l *Lobby) error {
		if len(l.Seats) >= MaxPlayers {
			return ErrLobbyFull
		}
		l.nextBotID--
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("AI-%d", -l.nextBotID)
		}
		l.Seats = append(l.Seats, Seat{ID: l.nextBotID, Name: name, Automated: true})
		return nil
	})
}

// Leave removes a player from the lobby. The lobby closes when its last
// human leaves.
func (m *Manager) Leave(ctx context.Context, chatID, userID int64) (*Lobby, error) {
	return m.updateLobby(ctx, chatID, func(l *Lobby) error {
		for i, s := range l.Seats {
			if s.ID == userID {
				l.Seats = append(l.Seats[:i], l.Seats[i+1:]...)
				if l.HostID == userID {
					l.passHost()
				}
				return nil
			}
		}
		return ErrNotParticipant
	})
}

func (m *Manager) updateLobby(ctx context.Context, chatID int64, fn func(*Lobby) error) (*Lobby, error) {
	var out *Lobby
	err := m.chats.WithLockContext(ctx, chatID, lifecycleLockTimeout, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		l, ok := m.lobbies[chatID]
		if !ok {
			return ErrNoLobby
		}
		if err := fn(l); err != nil {
			return err
		}
		humans := 0
		for _, s := range l.Seats {
			if !s.Automated {
				humans++
			}
		}
		if humans == 0 {
			delete(m.lobbies, chatID)
			return nil
		}
		out = copyLobby(l)
		return nil
	})
	return out, err
}

// GetLobby returns a copy of the chat's lobby.
func (m *Manager) GetLobby(chatID int64) (*Lobby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lobbies[chatID]
	if !ok {
		return nil, ErrNoLobby
	}
	return copyLobby(l), nil
}

func copyLobby(l *Lobby) *Lobby {
	c := *l
	c.Seats = append([]Seat(nil), l.Seats...)
	return &c
}

// StartFromLobby deals the preset distribution for the lobby's size and
// starts the game.
func (m *Manager) StartFromLobby(ctx context.Context, chatID int64) (Snapshot, error) {
	l, err := m.GetLobby(chatID)
	if err != nil {
		return Snapshot{}, err
	}
	dist, err := PresetDistribution(len(l.Seats))
	if err != nil {
		return Snapshot{}, err
	}
	return m.StartSession(ctx, chatID, l.Seats, dist)
}

// StartSession deals roles to seats in the given order and starts the first
// night. Any open lobby in the chat is closed.
func (m *Manager) StartSession(ctx context.Context, chatID int64, seats []Seat, dist Distribution) (Snapshot, error) {
	var e *Engine
	err := m.chats.WithLockContext(ctx, chatID, lifecycleLockTimeout, func() error {
		if m.IsSessionActive(chatID) {
			return ErrSessionExists
		}
		rng := m.opts.NewRand()
		players, err := dealRoles(seats, dist, rng)
		if err != nil {
			return err
		}

		e = newEngine(uuid.NewString(), chatID, players, dist, Dependencies{
			Oracle:    m.opts.Oracle,
			Messenger: m.opts.Messenger,
			Moderator: m.opts.Moderator,
			Recorder:  m.opts.Recorder,
			Rand:      rng,
			Timing:    m.opts.Timing,
		}, m.finished)

		m.mu.Lock()
		if old, ok := m.sessions[chatID]; ok {
			go old.Close()
		}
		m.sessions[chatID] = e
		delete(m.lobbies, chatID)
		for _, p := range players {
			if !p.Automated {
				m.players[p.ID] = chatID
			}
		}
		m.mu.Unlock()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	e.start()
	return e.Snapshot(), nil
}

// finished forgets the players of an ended game. The engine stays in the
// session map so its final state can still be read.
func (m *Manager) finished(e *Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uid, chatID := range m.players {
		if chatID == e.ChatID() {
			delete(m.players, uid)
		}
	}
}

// SubmitAction applies actorID's proposal in the chat's game.
func (m *Manager) SubmitAction(ctx context.Context, chatID, actorID int64, p Proposal) error {
	e, ok := m.running(chatID)
	if !ok {
		return ErrNoActiveSession
	}
	return e.Submit(actorID, p)
}

// ChatOf returns the chat whose running game userID plays in. Used for
// commands sent in a private chat with the bot.
func (m *Manager) ChatOf(userID int64) (int64, bool) {
	m.mu.RLock()
	chatID, ok := m.players[userID]
	m.mu.RUnlock()
	if !ok {
		return 0, false
	}
	// The player index is cleared once the final batch is delivered; the
	// game may have ended before that.
	if _, running := m.running(chatID); !running {
		return 0, false
	}
	return chatID, true
}

// Hear forwards group chat text to the chat's game for speech context.
func (m *Manager) Hear(chatID, userID int64, text string) bool {
	e, ok := m.running(chatID)
	if !ok {
		return false
	}
	return e.Hear(userID, text)
}

// ForceTimeout resolves the chat's current phase as if its timer fired. In a
// speaking phase that ends the current speaker's turn only.
func (m *Manager) ForceTimeout(ctx context.Context, chatID int64) error {
	e, ok := m.running(chatID)
	if !ok {
		return ErrNoActiveSession
	}
	return e.ForceTimeout()
}

// Abort ends the chat's game, or closes its lobby.
func (m *Manager) Abort(ctx context.Context, chatID int64, reason string) error {
	return m.chats.WithLockContext(ctx, chatID, lifecycleLockTimeout, func() error {
		if e, ok := m.running(chatID); ok {
			return e.Abort(reason)
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.lobbies[chatID]; ok {
			delete(m.lobbies, chatID)
			return nil
		}
		return ErrNoActiveSession
	})
}

// GetState returns a snapshot of the chat's game, including a finished one.
func (m *Manager) GetState(chatID int64) (Snapshot, error) {
	m.mu.RLock()
	e, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrNoActiveSession
	}
	return e.Snapshot(), nil
}

// Shutdown aborts every running game and waits for automated actors.
func (m *Manager) Shutdown(reason string) {
	m.mu.RLock()
	engines := make([]*Engine, 0, len(m.sessions))
	for _, e := range m.sessions {
		engines = append(engines, e)
	}
	m.mu.RUnlock()

	for _, e := range engines {
		_ = e.Abort(reason)
		e.Close()
	}
}
