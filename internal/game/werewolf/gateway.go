package werewolf

import (
	"context"
	"time"
)

// OracleRequest is everything an automated actor may know when deciding.
type OracleRequest struct {
	GameID      string
	ChatID      int64
	Actor       ParticipantView
	Phase       Phase
	Round       int
	Kinds       []ActionKind
	Candidates  []int
	Mates       []int
	PendingKill int
	Inspections []Inspection
	Transcript  []SpeechLine
	Public      Snapshot
}

// Allows reports whether kind is an acceptable answer to the request.
func (r OracleRequest) Allows(kind ActionKind) bool {
	for _, k := range r.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Oracle proposes actions for automated participants. Implementations must
// honour ctx; the engine bounds every call and retries failures.
type Oracle interface {
	ProposeAction(ctx context.Context, req OracleRequest) (Proposal, error)
}

// Messenger delivers events to the group chat, or privately when the event
// implements Private.
type Messenger interface {
	Announce(ctx context.Context, chatID int64, ev Event) error
}

// Moderator controls who may post in the group chat. Mute and Unmute restrict
// one user; LockChat sets the chat-wide default. A user may post only while
// neither applies.
type Moderator interface {
	Mute(ctx context.Context, chatID, userID int64) error
	Unmute(ctx context.Context, chatID, userID int64) error
	LockChat(ctx context.Context, chatID int64, locked bool) error
}

// Result is the final record of a finished game.
type Result struct {
	GameID       string
	ChatID       int64
	Winner       Faction
	Rounds       int
	Participants []ParticipantView
	StartedAt    time.Time
	EndedAt      time.Time
}

// Recorder persists snapshots, tie-break draws and final results. Failures
// are logged by the engine and never stop a game.
type Recorder interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LogDraw(ctx context.Context, d Draw) error
	RecordResult(ctx context.Context, r Result) error
}
