package werewolf

import "time"

// EventKind identifies an event variant.
type EventKind string

const (
	KindGameStarted       EventKind = "game_started"
	KindRoleAssigned      EventKind = "role_assigned"
	KindPhaseStarted      EventKind = "phase_started"
	KindPhaseTimeout      EventKind = "phase_timeout"
	KindWolfIntent        EventKind = "wolf_intent"
	KindInspectResult     EventKind = "inspect_result"
	KindWitchPrompt       EventKind = "witch_prompt"
	KindRetaliationPrompt EventKind = "retaliation_prompt"
	KindDawnReport        EventKind = "dawn_report"
	KindSpeakerTurn       EventKind = "speaker_turn"
	KindSpeech            EventKind = "speech"
	KindVoteCast          EventKind = "vote_cast"
	KindVoteResult        EventKind = "vote_result"
	KindRunoff            EventKind = "runoff"
	KindExiled            EventKind = "exiled"
	KindHunterShot        EventKind = "hunter_shot"
	KindHunterPassed      EventKind = "hunter_passed"
	KindGameOver          EventKind = "game_over"
	KindGameAborted       EventKind = "game_aborted"
)

// Event is a narration-worthy engine outcome. The set is closed: only types
// in this package implement it.
type Event interface {
	Kind() EventKind
	isEvent()
}

// Private is implemented by events meant for a single participant.
type Private interface {
	Event
	Recipient() int64
}

type GameStarted struct {
	GameID       string
	Participants []ParticipantView
	Distribution Distribution
}

type RoleAssigned struct {
	To    int64
	Self  ParticipantView
	Mates []ParticipantView
}

type PhaseStarted struct {
	Phase    Phase
	Round    int
	Budget   time.Duration
	Eligible []int
}

type PhaseTimeout struct {
	Phase   Phase
	Round   int
	Missing []int
}

type WolfIntent struct {
	To     int64
	From   int
	Target int
}

type InspectResult struct {
	To     int64
	Target ParticipantView
	IsWolf bool
}

type WitchPrompt struct {
	To          int64
	PendingKill int
	CanSave     bool
	CanPoison   bool
}

type RetaliationPrompt struct {
	To         int64
	Candidates []int
}

type DawnReport struct {
	Round  int
	Deaths []int
}

type SpeakerTurn struct {
	Phase   Phase
	Speaker ParticipantView
	Budget  time.Duration
	Index   int
	Total   int
}

type Speech struct {
	Speaker ParticipantView
	Text    string
}

type VoteCast struct {
	Phase  Phase
	Voter  int
	Target int
}

type VoteResult struct {
	Phase      Phase
	Round      int
	Ballots    map[int]int
	Tally      TallyResult
	Eliminated int
}

type Runoff struct {
	Candidates []int
}

type Exiled struct {
	Player ParticipantView
}

type HunterShot struct {
	Hunter ParticipantView
	Target ParticipantView
}

type HunterPassed struct {
	Hunter ParticipantView
}

type GameOver struct {
	Winner       Faction
	Rounds       int
	Participants []ParticipantView
}

type GameAborted struct {
	Reason string
}

func (GameStarted) Kind() EventKind       { return KindGameStarted }
func (RoleAssigned) Kind() EventKind      { return KindRoleAssigned }
func (PhaseStarted) Kind() EventKind      { return KindPhaseStarted }
func (PhaseTimeout) Kind() EventKind      { return KindPhaseTimeout }
func (WolfIntent) Kind() EventKind        { return KindWolfIntent }
func (InspectResult) Kind() EventKind     { return KindInspectResult }
func (WitchPrompt) Kind() EventKind       { return KindWitchPrompt }
func (RetaliationPrompt) Kind() EventKind { return KindRetaliationPrompt }
func (DawnReport) Kind() EventKind        { return KindDawnReport }
func (SpeakerTurn) Kind() EventKind       { return KindSpeakerTurn }
func (Speech) Kind() EventKind            { return KindSpeech }
func (VoteCast) Kind() EventKind          { return KindVoteCast }
func (VoteResult) Kind() EventKind        { return KindVoteResult }
func (Runoff) Kind() EventKind            { return KindRunoff }
func (Exiled) Kind() EventKind            { return KindExiled }
func (HunterShot) Kind() EventKind        { return KindHunterShot }
func (HunterPassed) Kind() EventKind      { return KindHunterPassed }
func (GameOver) Kind() EventKind          { return KindGameOver }
func (GameAborted) Kind() EventKind       { return KindGameAborted }

func (GameStarted) isEvent()       {}
func (RoleAssigned) isEvent()      {}
func (PhaseStarted) isEvent()      {}
func (PhaseTimeout) isEvent()      {}
func (WolfIntent) isEvent()        {}
func (InspectResult) isEvent()     {}
func (WitchPrompt) isEvent()       {}
func (RetaliationPrompt) isEvent() {}
func (DawnReport) isEvent()        {}
func (SpeakerTurn) isEvent()       {}
func (Speech) isEvent()            {}
func (VoteCast) isEvent()          {}
func (VoteResult) isEvent()        {}
func (Runoff) isEvent()            {}
func (Exiled) isEvent()            {}
func (HunterShot) isEvent()        {}
func (HunterPassed) isEvent()      {}
func (GameOver) isEvent()          {}
func (GameAborted) isEvent()       {}

func (e RoleAssigned) Recipient() int64      { return e.To }
func (e WolfIntent) Recipient() int64        { return e.To }
func (e InspectResult) Recipient() int64     { return e.To }
func (e WitchPrompt) Recipient() int64       { return e.To }
func (e RetaliationPrompt) Recipient() int64 { return e.To }
