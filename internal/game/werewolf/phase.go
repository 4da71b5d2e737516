package werewolf

// Phase is a state of the game state machine.
type Phase string

const (
	PhaseLobby           Phase = "lobby"
	PhaseNightEliminate  Phase = "night_eliminate"
	PhaseNightInspect    Phase = "night_inspect"
	PhaseNightProtect    Phase = "night_protect"
	PhaseDawnResolve     Phase = "dawn_resolve"
	PhaseRetaliate       Phase = "retaliate"
	PhaseDaySpeak        Phase = "day_speak"
	PhaseDayVote         Phase = "day_vote"
	PhaseRunoff          Phase = "runoff"
	PhaseRunoffVote      Phase = "runoff_vote"
	PhasePostVoteResolve Phase = "post_vote_resolve"
	PhaseLastWords       Phase = "last_words"
	PhaseGameWon         Phase = "game_won"
	PhaseAborted         Phase = "aborted"
)

// transitions lists the legal successors of each phase. Every non-terminal
// phase may also move to PhaseAborted.
var transitions = map[Phase][]Phase{
	PhaseLobby:           {PhaseNightEliminate},
	PhaseNightEliminate:  {PhaseNightInspect},
	PhaseNightInspect:    {PhaseNightProtect},
	PhaseNightProtect:    {PhaseDawnResolve},
	PhaseDawnResolve:     {PhaseRetaliate, PhaseLastWords, PhaseDaySpeak, PhaseGameWon},
	PhaseRetaliate:       {PhaseLastWords, PhaseDaySpeak, PhaseNightEliminate, PhaseGameWon},
	PhaseDaySpeak:        {PhaseDayVote},
	PhaseDayVote:         {PhaseRunoff, PhasePostVoteResolve},
	PhaseRunoff:          {PhaseRunoffVote},
	PhaseRunoffVote:      {PhasePostVoteResolve},
	PhasePostVoteResolve: {PhaseRetaliate, PhaseLastWords, PhaseNightEliminate, PhaseGameWon},
	PhaseLastWords:       {PhaseDaySpeak, PhaseNightEliminate},
}

// CanTransitionTo reports whether next is a legal successor of p.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseAborted {
		return true
	}
	for _, n := range transitions[p] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the game is over.
func (p Phase) Terminal() bool {
	return p == PhaseGameWon || p == PhaseAborted
}

// Night reports whether the chat is locked during the phase.
func (p Phase) Night() bool {
	return p == PhaseNightEliminate || p == PhaseNightInspect || p == PhaseNightProtect
}

// Voting reports whether the phase collects ballots.
func (p Phase) Voting() bool {
	return p == PhaseDayVote || p == PhaseRunoffVote
}

// Speaking reports whether the phase runs speaker turns.
func (p Phase) Speaking() bool {
	return p == PhaseDaySpeak || p == PhaseRunoff || p == PhaseLastWords
}

// DisplayName returns the phase's player-facing name.
func (p Phase) DisplayName() string {
	switch p {
	case PhaseNightEliminate:
		return "🌙 狼人行动"
	case PhaseNightInspect:
		return "🔮 预言家验人"
	case PhaseNightProtect:
		return "🧪 女巫用药"
	case PhaseDawnResolve:
		return "🌅 天亮了"
	case PhaseRetaliate:
		return "🏹 猎人开枪"
	case PhaseDaySpeak:
		return "🗣 白天发言"
	case PhaseDayVote:
		return "🗳 放逐投票"
	case PhaseRunoff:
		return "⚖️ PK发言"
	case PhaseRunoffVote:
		return "🗳 PK投票"
	case PhasePostVoteResolve:
		return "📜 投票结果"
	case PhaseLastWords:
		return "🕯 遗言"
	case PhaseGameWon:
		return "🏁 游戏结束"
	case PhaseAborted:
		return "⛔ 游戏中止"
	default:
		return string(p)
	}
}
