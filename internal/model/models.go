// Package model defines the persisted records of the werewolf bot.
package model

import "time"

// Player is a Telegram user's lifetime werewolf record.
type Player struct {
	TelegramID  int64     `db:"telegram_id"`
	Username    string    `db:"username"`
	GamesPlayed int       `db:"games_played"`
	Wins        int       `db:"wins"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// WinRate returns wins per game played, 0 for a new player.
func (p *Player) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.GamesPlayed)
}

// Game is a finished game.
type Game struct {
	ID        string    `db:"id"`
	ChatID    int64     `db:"chat_id"`
	Winner    string    `db:"winner"`
	Rounds    int       `db:"rounds"`
	StartedAt time.Time `db:"started_at"`
	EndedAt   time.Time `db:"ended_at"`
}

// GameSeat is one participant of a finished game.
type GameSeat struct {
	GameID    string `db:"game_id"`
	Slot      int    `db:"slot"`
	UserID    int64  `db:"user_id"`
	Name      string `db:"name"`
	Role      string `db:"role"`
	Alive     bool   `db:"alive"`
	Automated bool   `db:"automated"`
	Won       bool   `db:"won"`
}

// Snapshot is a game state captured at a phase transition. State holds the
// JSON encoded snapshot.
type Snapshot struct {
	ID        int64     `db:"id"`
	GameID    string    `db:"game_id"`
	ChatID    int64     `db:"chat_id"`
	Phase     string    `db:"phase"`
	Round     int       `db:"round"`
	State     []byte    `db:"state"`
	CreatedAt time.Time `db:"created_at"`
}

// Draw is a random tie-break taken by the engine.
type Draw struct {
	ID         int64     `db:"id"`
	GameID     string    `db:"game_id"`
	Round      int       `db:"round"`
	Phase      string    `db:"phase"`
	Candidates []int32   `db:"candidates"`
	Chosen     int       `db:"chosen"`
	CreatedAt  time.Time `db:"created_at"`
}
