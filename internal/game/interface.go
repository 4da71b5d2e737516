// Package game defines the catalog of chat games the bot can host.
package game

// Game describes a game that can be listed in the bot's help.
type Game interface {
	// Name returns the game's display name
	Name() string

	// Command returns the command prefix that drives this game (e.g., "ww")
	Command() string

	// Description returns a brief description of the game
	Description() string
}

// SessionGame is a Game played as one long-running session per chat.
type SessionGame interface {
	Game

	// IsSessionActive checks if a session is running in the chat.
	IsSessionActive(chatID int64) bool

	// ActiveSessions returns the chats with a running session.
	ActiveSessions() []int64
}
