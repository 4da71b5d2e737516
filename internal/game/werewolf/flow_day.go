package werewolf

import (
	"strings"
	"time"
)

// enterSpeaking starts a turn-based speaking phase over speakers in order.
// The chat opens but every living player is muted until their turn.
func (e *Engine) enterSpeaking(speakers []int, next Phase) {
	e.speakers = speakers
	e.turn = -1
	e.afterSpeaking = next
	e.lockChat(false)
	for _, slot := range e.s.aliveSlots(nil) {
		e.mute(e.s.bySlot(slot))
	}
	e.announce(PhaseStarted{Phase: e.s.Phase, Round: e.s.Round, Budget: e.turnBudget(), Eligible: append([]int(nil), speakers...)})
	e.nextTurn()
}

func (e *Engine) turnBudget() time.Duration {
	if e.s.Phase == PhaseLastWords {
		return e.timing.LastWords
	}
	return e.timing.Speak
}

// nextTurn hands the floor to the next speaker, or leaves the phase when
// everyone has spoken. Each turn gets its own epoch and timer.
func (e *Engine) nextTurn() {
	e.turn++
	if e.turn >= len(e.speakers) {
		e.resolved = true
		e.enter(e.afterSpeaking)
		return
	}
	if e.turn > 0 {
		e.nextEpoch()
	}

	p := e.s.bySlot(e.speakers[e.turn])
	budget := e.turnBudget()
	e.unmute(p)
	e.announce(SpeakerTurn{Phase: e.s.Phase, Speaker: p.view(), Budget: budget, Index: e.turn + 1, Total: len(e.speakers)})
	e.startTimer(budget)
	if p.Automated {
		e.scheduleActors(0, []int{p.Slot})
	}
}

func (e *Engine) submitSpeech(actor *Participant, p Proposal) error {
	if p.Kind != ActionSpeak {
		return ErrUnsupportedAction
	}
	if e.turn < 0 || e.turn >= len(e.speakers) || e.speakers[e.turn] != actor.Slot {
		return ErrNotYourTurn
	}
	if text := strings.TrimSpace(p.Text); text != "" {
		e.s.addSpeech(actor.Slot, text)
		if actor.Automated {
			e.announce(Speech{Speaker: actor.view(), Text: text})
		}
	}
	e.s.record(ActionSpeak, actor.Slot, 0)
	e.resolve()
	return nil
}

// endTurn closes the current speaker's turn.
func (e *Engine) endTurn() {
	p := e.s.bySlot(e.speakers[e.turn])
	e.mute(p)
	e.nextTurn()
}

// enterVote opens the chat and collects ballots from every living player.
func (e *Engine) enterVote() {
	e.s.Votes = make(map[int]int)
	if e.s.Phase == PhaseDayVote {
		e.s.RunoffSet = nil
	}

	alive := e.s.aliveSlots(nil)
	e.lockChat(false)
	for _, slot := range alive {
		e.unmute(e.s.bySlot(slot))
	}
	eligible := alive
	if e.s.Phase == PhaseRunoffVote {
		eligible = append([]int(nil), e.s.RunoffSet...)
	}
	e.announce(PhaseStarted{Phase: e.s.Phase, Round: e.s.Round, Budget: e.timing.Vote, Eligible: eligible})
	e.startTimer(e.timing.Vote)
	e.scheduleActors(e.timing.actorDelay(e.timing.Vote), e.automated(alive))
}

// submitVote records a ballot. Ballots may be changed until the phase
// resolves; the last one counts.
func (e *Engine) submitVote(actor *Participant, p Proposal) error {
	if !actor.Alive {
		return ErrNotParticipant
	}
	target := Abstain
	switch p.Kind {
	case ActionAbstain:
	case ActionVote:
		if _, err := validateTarget(e.s, actor, p.Target, false); err != nil {
			return err
		}
		if e.s.Phase == PhaseRunoffVote && !containsSlot(e.s.RunoffSet, p.Target) {
			return ErrNotRunoffCandidate
		}
		target = p.Target
	default:
		return ErrUnsupportedAction
	}

	e.s.Votes[actor.Slot] = target
	e.announce(VoteCast{Phase: e.s.Phase, Voter: actor.Slot, Target: target})
	e.afterSubmit()
	return nil
}

func (e *Engine) resolveVote() {
	ballots := make(map[int]int, len(e.s.Votes))
	for v, t := range e.s.Votes {
		ballots[v] = t
	}
	res := Tally(ballots)
	ev := VoteResult{Phase: e.s.Phase, Round: e.s.Round, Ballots: ballots, Tally: res}

	switch {
	case res.Outcome == OutcomeWinner:
		e.s.eliminate(res.Winner, CauseVote)
		e.exiled = res.Winner
		ev.Eliminated = res.Winner
	case res.Outcome == OutcomeTie && e.s.Phase == PhaseDayVote:
		e.s.RunoffSet = res.Tied
		e.announce(ev)
		e.announce(Runoff{Candidates: res.Tied})
		e.log.Info().Ints("tied", res.Tied).Msg("werewolf: vote tied, runoff")
		e.enter(PhaseRunoff)
		return
	}
	e.announce(ev)
	e.log.Info().Str("outcome", string(res.Outcome)).Int("eliminated", ev.Eliminated).Msg("werewolf: vote resolved")
	e.enter(PhasePostVoteResolve)
}

// resolvePostVote narrates the exile, checks for a winner, and routes to the
// hunter and last words, or straight to night.
func (e *Engine) resolvePostVote() {
	e.resolved = true
	if e.exiled == 0 {
		e.enter(PhaseNightEliminate)
		return
	}

	p := e.s.bySlot(e.exiled)
	e.exiled = 0
	e.announce(Exiled{Player: p.view()})
	armed := armHunter(e.s, Elimination{Slot: p.Slot, Cause: CauseVote, Round: e.s.Round})
	if e.checkWin() {
		return
	}

	e.lastWords = []int{p.Slot}
	e.afterLastWords = PhaseNightEliminate
	if armed {
		e.afterRetaliate = PhaseLastWords
		e.enter(PhaseRetaliate)
		return
	}
	e.enter(PhaseLastWords)
}

func containsSlot(slots []int, slot int) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

// Hear records chat text from the current speaker so automated players can
// see what humans said. It reports whether the text was kept.
func (e *Engine) Hear(actorID int64, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	text = strings.TrimSpace(text)
	if text == "" || !e.s.Phase.Speaking() || e.turn < 0 || e.turn >= len(e.speakers) {
		return false
	}
	p := e.s.bySlot(e.speakers[e.turn])
	if p.ID != actorID {
		return false
	}
	e.s.addSpeech(p.Slot, text)
	return true
}
