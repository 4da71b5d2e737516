package werewolf

import (
	"fmt"
	"time"
)

func (e *Engine) enterNightEliminate() {
	e.s.NightKill = 0
	e.s.Protected = false
	e.s.Poisoned = 0
	e.s.RunoffSet = nil

	e.lockChat(true)
	e.announce(PhaseStarted{Phase: PhaseNightEliminate, Round: e.s.Round, Budget: e.timing.Eliminate})
	e.startTimer(e.timing.Eliminate)
	e.scheduleActors(e.timing.actorDelay(e.timing.Eliminate), e.automated(e.s.aliveWolves()))
}

func (e *Engine) submitKill(actor *Participant, p Proposal) error {
	if p.Kind != ActionKill {
		return ErrUnsupportedAction
	}
	if !actor.Alive || actor.Role != RoleWerewolf {
		return ErrNotParticipant
	}
	if e.s.submitted(actor.Slot) {
		return ErrDuplicateSubmission
	}
	if err := validateKill(e.s, actor, p.Target); err != nil {
		return err
	}
	e.s.record(ActionKill, actor.Slot, p.Target)
	e.log.Debug().Int("wolf", actor.Slot).Int("target", p.Target).Msg("werewolf: kill proposed")

	for _, slot := range e.s.aliveWolves() {
		if slot != actor.Slot {
			e.tell(e.s.bySlot(slot), WolfIntent{To: e.s.bySlot(slot).ID, From: actor.Slot, Target: p.Target})
		}
	}
	e.afterSubmit()
	return nil
}

func (e *Engine) resolveEliminate() {
	target, draw := resolveKill(e.s, e.rng)
	if draw != nil {
		e.log.Info().Ints("candidates", draw.Candidates).Int("chosen", draw.Chosen).Msg("werewolf: wolf tie broken at random")
		e.outbox = append(e.outbox, effect{kind: effectDraw, draw: *draw})
	}
	e.s.NightKill = target
	e.enter(PhaseNightInspect)
}

// enterHolderPhase runs a single-holder night phase. It is skipped outright
// when the role was never dealt, and runs a disguise timer when the holder is
// dead so the chat cannot tell.
func (e *Engine) enterHolderPhase(role Role, budget time.Duration, next Phase) {
	if !e.s.Distribution.Has(role) {
		e.resolved = true
		e.enter(next)
		return
	}

	h := e.s.holder(role)
	if h == nil || !h.Alive {
		budget = e.timing.deadHolderBudget(e.rng)
		e.announce(PhaseStarted{Phase: e.s.Phase, Round: e.s.Round, Budget: budget})
		e.startTimer(budget)
		return
	}

	e.announce(PhaseStarted{Phase: e.s.Phase, Round: e.s.Round, Budget: budget})
	if role == RoleWitch {
		e.tell(h, WitchPrompt{
			To:          h.ID,
			PendingKill: e.s.NightKill,
			CanSave:     !e.s.Witch.SaveUsed && e.s.NightKill != 0 && e.s.NightKill != h.Slot,
			CanPoison:   !e.s.Witch.PoisonUsed,
		})
	}
	e.startTimer(budget)
	e.scheduleActors(e.timing.actorDelay(budget), e.automated([]int{h.Slot}))
}

func (e *Engine) submitInspect(actor *Participant, p Proposal) error {
	if p.Kind != ActionInspect {
		return ErrUnsupportedAction
	}
	if !actor.Alive || actor.Role != RoleSeer {
		return ErrNotParticipant
	}
	if e.s.submitted(actor.Slot) {
		return ErrDuplicateSubmission
	}
	res, err := inspect(e.s, actor, p.Target)
	if err != nil {
		return err
	}
	e.s.record(ActionInspect, actor.Slot, p.Target)
	e.s.Inspections = append(e.s.Inspections, res)
	e.tell(actor, InspectResult{To: actor.ID, Target: e.s.bySlot(res.Target).view(), IsWolf: res.IsWolf})
	e.afterSubmit()
	return nil
}

func (e *Engine) submitWitch(actor *Participant, p Proposal) error {
	switch p.Kind {
	case ActionSave, ActionPoison, ActionPass:
	default:
		return ErrUnsupportedAction
	}
	if !actor.Alive || actor.Role != RoleWitch {
		return ErrNotParticipant
	}
	if e.s.submitted(actor.Slot) {
		return ErrDuplicateSubmission
	}
	target, err := applyWitch(e.s, actor, p)
	if err != nil {
		return err
	}
	e.s.record(p.Kind, actor.Slot, target)
	e.log.Debug().Str("choice", string(p.Kind)).Int("target", target).Msg("werewolf: witch acted")
	e.afterSubmit()
	return nil
}

// resolveDawn applies the night's deaths, checks for a winner, then routes
// to the hunter, first-night last words, or the day.
func (e *Engine) resolveDawn() {
	e.resolved = true
	if e.s.Protected && !e.s.Witch.SaveUsed {
		panic(invariantError("night kill protected without a save charge"))
	}

	deaths := resolveNight(e.s)
	slots := make([]int, len(deaths))
	armed := false
	for i, d := range deaths {
		slots[i] = d.Slot
		if armHunter(e.s, d) {
			armed = true
		}
	}
	e.announce(DawnReport{Round: e.s.Round, Deaths: slots})
	e.log.Info().Int("round", e.s.Round).Ints("deaths", slots).Msg("werewolf: dawn")

	if e.checkWin() {
		return
	}

	next := PhaseDaySpeak
	if e.s.Round == 1 && len(slots) > 0 {
		e.lastWords = slots
		e.afterLastWords = PhaseDaySpeak
		next = PhaseLastWords
	} else {
		for _, slot := range slots {
			e.mute(e.s.bySlot(slot))
		}
	}

	if armed {
		e.afterRetaliate = next
		e.enter(PhaseRetaliate)
		return
	}
	e.enter(next)
}

func (e *Engine) enterRetaliate() {
	h := e.s.bySlot(e.s.Hunter.Slot)
	if h == nil || !e.s.Hunter.Armed {
		panic(invariantError("retaliation entered without an armed hunter"))
	}
	e.announce(PhaseStarted{Phase: PhaseRetaliate, Round: e.s.Round, Budget: e.timing.Retaliate, Eligible: []int{h.Slot}})
	e.tell(h, RetaliationPrompt{To: h.ID, Candidates: e.s.aliveSlots(nil)})
	e.startTimer(e.timing.Retaliate)
	e.scheduleActors(e.timing.actorDelay(e.timing.Retaliate), e.automated([]int{h.Slot}))
}

func (e *Engine) submitShot(actor *Participant, p Proposal) error {
	if p.Kind != ActionShoot && p.Kind != ActionPass {
		return ErrUnsupportedAction
	}
	if actor.Slot != e.s.Hunter.Slot || !e.s.Hunter.Armed {
		return ErrNotParticipant
	}
	if e.s.submitted(actor.Slot) {
		return ErrDuplicateSubmission
	}
	target := 0
	if p.Kind == ActionShoot {
		if err := validateShot(e.s, actor, p.Target); err != nil {
			return err
		}
		target = p.Target
	}
	e.s.record(p.Kind, actor.Slot, target)
	e.afterSubmit()
	return nil
}

func (e *Engine) resolveRetaliate() {
	h := e.s.bySlot(e.s.Hunter.Slot)
	e.s.Hunter.Armed = false
	target := e.s.Pending[ActionShoot][h.Slot]
	if target == 0 {
		e.announce(HunterPassed{Hunter: h.view()})
		e.enter(e.afterRetaliate)
		return
	}

	e.s.Hunter.Fired = true
	victim := e.s.eliminate(target, CauseShot)
	if victim == nil {
		panic(fmt.Sprintf("hunter shot invalid slot %d", target))
	}
	e.announce(HunterShot{Hunter: h.view(), Target: victim.view()})
	e.log.Info().Int("hunter", h.Slot).Int("target", target).Msg("werewolf: hunter fired")
	e.mute(victim)
	if e.checkWin() {
		return
	}
	e.enter(e.afterRetaliate)
}

// automated filters slots down to automated participants.
func (e *Engine) automated(slots []int) []int {
	var out []int
	for _, slot := range slots {
		if p := e.s.bySlot(slot); p != nil && p.Automated {
			out = append(out, slot)
		}
	}
	return out
}
