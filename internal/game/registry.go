package game

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the bot's game catalog, keyed by command prefix.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Game),
	}
}

// Register adds a game to the registry.
// A game with the same command is replaced.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Command() == "" {
		return fmt.Errorf("game command cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Command()] = g
	return nil
}

// Get retrieves a game by its command.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[command]
	return g, ok
}

// List returns all registered games ordered by command.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Command() < games[j].Command() })
	return games
}

// Sessions returns the registered games that run per-chat sessions.
func (r *Registry) Sessions() []SessionGame {
	var out []SessionGame
	for _, g := range r.List() {
		if sg, ok := g.(SessionGame); ok {
			out = append(out, sg)
		}
	}
	return out
}

// ActiveIn reports the session game running in chatID, if any.
func (r *Registry) ActiveIn(chatID int64) (SessionGame, bool) {
	for _, sg := range r.Sessions() {
		if sg.IsSessionActive(chatID) {
			return sg, true
		}
	}
	return nil, false
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Unregister removes a game from the registry by its command.
func (r *Registry) Unregister(command string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[command]; ok {
		delete(r.games, command)
		return true
	}
	return false
}
