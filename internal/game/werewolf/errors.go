package werewolf

import (
	"errors"
	"fmt"
)

// Errors returned by the werewolf engine and its control surface.
var (
	// ErrInvalidTarget is the parent of every target rule violation.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrSelfTarget is returned when an actor names itself.
	ErrSelfTarget = fmt.Errorf("%w: cannot target yourself", ErrInvalidTarget)
	// ErrTargetDead is returned when the target is already eliminated.
	ErrTargetDead = fmt.Errorf("%w: target is eliminated", ErrInvalidTarget)
	// ErrTargetNotFound is returned for a slot nobody holds.
	ErrTargetNotFound = fmt.Errorf("%w: no participant in that slot", ErrInvalidTarget)
	// ErrFactionMate is returned when a wolf names another wolf.
	ErrFactionMate = fmt.Errorf("%w: target is a faction mate", ErrInvalidTarget)
	// ErrNotRunoffCandidate is returned for runoff ballots outside the tied set.
	ErrNotRunoffCandidate = fmt.Errorf("%w: target is not in the runoff", ErrInvalidTarget)

	ErrDuplicateSubmission = errors.New("action already submitted this phase")
	ErrOracleTimeout       = errors.New("decision oracle timed out")
	ErrOracleFailure       = errors.New("decision oracle failed")
	ErrPhaseResolved       = errors.New("phase already resolved")
	ErrInvariantViolation  = errors.New("invariant violation")

	ErrNoActiveSession    = errors.New("no active game in this chat")
	ErrSessionExists      = errors.New("a game already exists in this chat")
	ErrNotParticipant     = errors.New("not an eligible participant for this action")
	ErrNotYourTurn        = errors.New("not your turn to speak")
	ErrChargeUsed         = errors.New("ability charge already used")
	ErrUnsupportedAction  = errors.New("action not accepted in the current phase")
	ErrNotEnoughPlayers   = errors.New("not enough players")

	ErrInvalidDistribution = errors.New("invalid role distribution")
	ErrNoLobby             = errors.New("no open lobby in this chat")
	ErrAlreadyJoined       = errors.New("already joined")
	ErrLobbyFull           = errors.New("lobby is full")
)

// invariantError builds an ErrInvariantViolation with context.
func invariantError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
