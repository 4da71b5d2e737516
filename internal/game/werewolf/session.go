package werewolf

import (
	"sort"
	"time"
)

// Cause records why a participant was eliminated.
type Cause string

const (
	CauseNightKill Cause = "night_kill"
	CausePoison    Cause = "poison"
	CauseVote      Cause = "vote"
	CauseShot      Cause = "shot"
)

// Elimination is one entry of the death log.
type Elimination struct {
	Slot  int   `json:"slot"`
	Cause Cause `json:"cause"`
	Round int   `json:"round"`
}

// WitchState tracks the witch's one-shot potions. A used charge never
// becomes available again.
type WitchState struct {
	SaveUsed   bool `json:"save_used"`
	PoisonUsed bool `json:"poison_used"`
}

// spend consumes a charge. Spending a used charge means a caller skipped the
// ErrChargeUsed check.
func (w *WitchState) spend(kind ActionKind) error {
	switch kind {
	case ActionSave:
		if w.SaveUsed {
			return invariantError("save charge spent twice")
		}
		w.SaveUsed = true
	case ActionPoison:
		if w.PoisonUsed {
			return invariantError("poison charge spent twice")
		}
		w.PoisonUsed = true
	}
	return nil
}

// HunterState tracks the hunter's retaliation shot. Armed is set only when
// the hunter is eliminated by night kill or vote.
type HunterState struct {
	Slot  int   `json:"slot"`
	Armed bool  `json:"armed"`
	Fired bool  `json:"fired"`
	Cause Cause `json:"cause,omitempty"`
}

// ActionKind names what a proposal asks the engine to do.
type ActionKind string

const (
	ActionKill    ActionKind = "kill"
	ActionInspect ActionKind = "inspect"
	ActionSave    ActionKind = "save"
	ActionPoison  ActionKind = "poison"
	ActionPass    ActionKind = "pass"
	ActionShoot   ActionKind = "shoot"
	ActionVote    ActionKind = "vote"
	ActionAbstain ActionKind = "abstain"
	ActionSpeak   ActionKind = "speak"
)

// Proposal is an action submitted by a human command or the decision oracle.
type Proposal struct {
	Kind   ActionKind `json:"kind"`
	Target int        `json:"target,omitempty"`
	Text   string     `json:"text,omitempty"`
}

// Inspection is one entry of the seer's private record.
type Inspection struct {
	Round  int  `json:"round"`
	Target int  `json:"target"`
	IsWolf bool `json:"is_wolf"`
}

// SpeechLine is one public statement kept for automated speakers' context.
type SpeechLine struct {
	Round int    `json:"round"`
	Slot  int    `json:"slot"`
	Text  string `json:"text"`
}

const maxTranscript = 40

// Session is the whole mutable game state. It is owned by an Engine and only
// ever touched under the engine's mutex.
type Session struct {
	GameID       string
	ChatID       int64
	Phase        Phase
	Round        int
	Participants []*Participant
	Distribution Distribution

	// Pending maps ability -> actor slot -> target slot for the current phase.
	Pending   map[ActionKind]map[int]int
	Votes     map[int]int
	RunoffSet []int

	Witch     WitchState
	Hunter    HunterState
	NightKill int
	Protected bool
	Poisoned  int

	Inspections  []Inspection
	Eliminations []Elimination
	Transcript   []SpeechLine
	Winner       Faction
	StartedAt    time.Time
	EndedAt      time.Time
}

func newSession(gameID string, chatID int64, players []*Participant, dist Distribution) *Session {
	s := &Session{
		GameID:       gameID,
		ChatID:       chatID,
		Phase:        PhaseLobby,
		Round:        1,
		Participants: players,
		Distribution: dist,
		Pending:      make(map[ActionKind]map[int]int),
		Votes:        make(map[int]int),
		StartedAt:    time.Now(),
	}
	if h := s.holder(RoleHunter); h != nil {
		s.Hunter.Slot = h.Slot
	}
	return s
}

// bySlot returns the participant in slot, or nil.
func (s *Session) bySlot(slot int) *Participant {
	if slot < 1 || slot > len(s.Participants) {
		return nil
	}
	return s.Participants[slot-1]
}

// byID returns the participant with the chat user id, or nil.
func (s *Session) byID(id int64) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// holder returns the sole holder of a unique role, alive or not.
func (s *Session) holder(r Role) *Participant {
	for _, p := range s.Participants {
		if p.Role == r {
			return p
		}
	}
	return nil
}

// aliveSlots returns living slots ascending, optionally filtered.
func (s *Session) aliveSlots(keep func(*Participant) bool) []int {
	var out []int
	for _, p := range s.Participants {
		if p.Alive && (keep == nil || keep(p)) {
			out = append(out, p.Slot)
		}
	}
	return out
}

func (s *Session) aliveWolves() []int {
	return s.aliveSlots(func(p *Participant) bool { return p.Role == RoleWerewolf })
}

// record stores a pending action for the current phase.
func (s *Session) record(kind ActionKind, actor, target int) {
	m, ok := s.Pending[kind]
	if !ok {
		m = make(map[int]int)
		s.Pending[kind] = m
	}
	m[actor] = target
}

// submitted reports whether actor has any pending action this phase.
func (s *Session) submitted(actor int) bool {
	for _, m := range s.Pending {
		if _, ok := m[actor]; ok {
			return true
		}
	}
	return false
}

// eliminate flags the participant dead and logs the cause.
func (s *Session) eliminate(slot int, cause Cause) *Participant {
	p := s.bySlot(slot)
	if p == nil || !p.Alive {
		return nil
	}
	p.Alive = false
	s.Eliminations = append(s.Eliminations, Elimination{Slot: slot, Cause: cause, Round: s.Round})
	return p
}

func (s *Session) addSpeech(slot int, text string) {
	s.Transcript = append(s.Transcript, SpeechLine{Round: s.Round, Slot: slot, Text: text})
	if len(s.Transcript) > maxTranscript {
		s.Transcript = s.Transcript[len(s.Transcript)-maxTranscript:]
	}
}

// Snapshot is a deep copy of session state handed to callers, the oracle and
// the recorder.
type Snapshot struct {
	GameID       string                     `json:"game_id"`
	ChatID       int64                      `json:"chat_id"`
	Phase        Phase                      `json:"phase"`
	Round        int                        `json:"round"`
	Participants []ParticipantView          `json:"participants"`
	Pending      map[ActionKind]map[int]int `json:"pending,omitempty"`
	Votes        map[int]int                `json:"votes,omitempty"`
	RunoffSet    []int                      `json:"runoff_set,omitempty"`
	Witch        WitchState                 `json:"witch"`
	Hunter       HunterState                `json:"hunter"`
	NightKill    int                        `json:"night_kill,omitempty"`
	Eliminations []Elimination              `json:"eliminations,omitempty"`
	Winner       Faction                    `json:"winner,omitempty"`
	Speaker      int                        `json:"speaker,omitempty"`
	Epoch        uint64                     `json:"epoch"`
	Deadline     time.Time                  `json:"deadline,omitempty"`
	StartedAt    time.Time                  `json:"started_at"`
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		GameID:       s.GameID,
		ChatID:       s.ChatID,
		Phase:        s.Phase,
		Round:        s.Round,
		Participants: make([]ParticipantView, len(s.Participants)),
		Pending:      make(map[ActionKind]map[int]int, len(s.Pending)),
		Votes:        make(map[int]int, len(s.Votes)),
		RunoffSet:    append([]int(nil), s.RunoffSet...),
		Witch:        s.Witch,
		Hunter:       s.Hunter,
		NightKill:    s.NightKill,
		Eliminations: append([]Elimination(nil), s.Eliminations...),
		Winner:       s.Winner,
		StartedAt:    s.StartedAt,
	}
	for i, p := range s.Participants {
		snap.Participants[i] = p.view()
	}
	for k, m := range s.Pending {
		c := make(map[int]int, len(m))
		for a, t := range m {
			c[a] = t
		}
		snap.Pending[k] = c
	}
	for v, t := range s.Votes {
		snap.Votes[v] = t
	}
	return snap
}

// Public strips hidden information: living players' roles, night actions and
// ability state. Roles are revealed once the game is over.
func (s Snapshot) Public() Snapshot {
	out := s
	out.Participants = make([]ParticipantView, len(s.Participants))
	for i, p := range s.Participants {
		if p.Alive && !s.Phase.Terminal() {
			p.Role = ""
		}
		out.Participants[i] = p
	}
	out.Pending = nil
	out.Witch = WitchState{}
	out.Hunter = HunterState{}
	out.NightKill = 0
	if s.Phase.Night() {
		out.Votes = nil
	}
	return out
}

// Participant returns the view for slot.
func (s Snapshot) Participant(slot int) (ParticipantView, bool) {
	if slot < 1 || slot > len(s.Participants) {
		return ParticipantView{}, false
	}
	return s.Participants[slot-1], true
}

// AliveSlots returns the living slots ascending.
func (s Snapshot) AliveSlots() []int {
	var out []int
	for _, p := range s.Participants {
		if p.Alive {
			out = append(out, p.Slot)
		}
	}
	sort.Ints(out)
	return out
}
