package werewolf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators an engine talks to. Nil gateways are
// skipped; a nil Oracle leaves automated seats idle.
type Dependencies struct {
	Oracle    Oracle
	Messenger Messenger
	Moderator Moderator
	Recorder  Recorder
	Rand      Rand
	Timing    Timing
}

type effectKind int

const (
	effectAnnounce effectKind = iota
	effectMute
	effectUnmute
	effectLockChat
	effectUnlockChat
	effectSnapshot
	effectDraw
	effectResult
)

// effect is an outbound call collected under the session mutex and run after
// it is released.
type effect struct {
	kind     effectKind
	event    Event
	userID   int64
	snapshot Snapshot
	draw     Draw
	result   Result
}

// Engine runs one game. All state changes happen under mu; gateway and
// recorder calls are queued and handed to the session's dispatcher, which
// runs them in order after mu is released.
type Engine struct {
	mu sync.Mutex

	s      *Session
	deps   Dependencies
	timing Timing
	rng    Rand
	log    zerolog.Logger

	// epoch identifies the current phase (or speaker turn). Timer callbacks
	// and automated submissions carrying another epoch are ignored.
	epoch    uint64
	resolved bool
	timer    *time.Timer
	deadline time.Time
	task     *actorTask
	tasks    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	outbox []effect
	out    *dispatcher

	speakers       []int
	turn           int
	afterSpeaking  Phase
	lastWords      []int
	afterLastWords Phase
	afterRetaliate Phase
	exiled         int

	reported bool
	onFinish func(*Engine)
}

func newEngine(gameID string, chatID int64, players []*Participant, dist Distribution, deps Dependencies, onFinish func(*Engine)) *Engine {
	if deps.Rand == nil {
		deps.Rand = NewRand(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		s:        newSession(gameID, chatID, players, dist),
		deps:     deps,
		timing:   deps.Timing.withDefaults(),
		rng:      deps.Rand,
		log:      log.With().Int64("chat_id", chatID).Str("game_id", gameID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		out:      newDispatcher(),
		onFinish: onFinish,
	}
	go e.out.run(e.deliver)
	return e
}

// unlock hands the effects queued under mu to the dispatcher and releases
// mu. Pushing before the release keeps batches in transition order.
func (e *Engine) unlock() {
	b := batch{effects: e.outbox}
	e.outbox = nil
	if e.s.Phase.Terminal() && !e.reported {
		e.reported = true
		b.finished = true
	}
	if (len(b.effects) > 0 || b.finished) && !e.out.push(b) {
		e.log.Debug().Int("effects", len(b.effects)).Msg("werewolf: engine closed, effects dropped")
	}
	e.mu.Unlock()
}

// deliver runs on the dispatcher goroutine.
func (e *Engine) deliver(b batch) {
	e.dispatch(b.effects)
	if b.finished && e.onFinish != nil {
		e.onFinish(e)
	}
}

// flush waits until every effect queued so far has been delivered.
func (e *Engine) flush() {
	e.out.flush()
}

// recoverInvariant turns a panic inside a transition into an abort of this
// session only. It must be deferred after unlock so it runs first.
func (e *Engine) recoverInvariant() {
	if r := recover(); r != nil {
		e.log.Error().Interface("panic", r).Str("phase", string(e.s.Phase)).Msg("werewolf: transition panicked")
		e.abortLocked(fmt.Sprintf("%v", r))
	}
}

func (e *Engine) dispatch(effects []effect) {
	for _, ef := range effects {
		ctx, cancel := context.WithTimeout(context.Background(), e.timing.GatewayTimeout)
		err := e.runEffect(ctx, ef)
		cancel()
		if err != nil {
			e.log.Warn().Err(err).Int("effect", int(ef.kind)).Msg("werewolf: gateway call failed")
		}
	}
}

func (e *Engine) runEffect(ctx context.Context, ef effect) error {
	chatID := e.s.ChatID
	switch ef.kind {
	case effectAnnounce:
		if e.deps.Messenger != nil {
			return e.deps.Messenger.Announce(ctx, chatID, ef.event)
		}
	case effectMute:
		if e.deps.Moderator != nil {
			return e.deps.Moderator.Mute(ctx, chatID, ef.userID)
		}
	case effectUnmute:
		if e.deps.Moderator != nil {
			return e.deps.Moderator.Unmute(ctx, chatID, ef.userID)
		}
	case effectLockChat, effectUnlockChat:
		if e.deps.Moderator != nil {
			return e.deps.Moderator.LockChat(ctx, chatID, ef.kind == effectLockChat)
		}
	case effectSnapshot:
		if e.deps.Recorder != nil {
			return e.deps.Recorder.SaveSnapshot(ctx, ef.snapshot)
		}
	case effectDraw:
		if e.deps.Recorder != nil {
			return e.deps.Recorder.LogDraw(ctx, ef.draw)
		}
	case effectResult:
		if e.deps.Recorder != nil {
			return e.deps.Recorder.RecordResult(ctx, ef.result)
		}
	}
	return nil
}

func (e *Engine) announce(ev Event) {
	e.outbox = append(e.outbox, effect{kind: effectAnnounce, event: ev})
}

// tell queues a private event, skipping automated recipients.
func (e *Engine) tell(p *Participant, ev Private) {
	if p.Automated {
		return
	}
	e.announce(ev)
}

func (e *Engine) mute(p *Participant) {
	if !p.Automated {
		e.outbox = append(e.outbox, effect{kind: effectMute, userID: p.ID})
	}
}

func (e *Engine) unmute(p *Participant) {
	if !p.Automated {
		e.outbox = append(e.outbox, effect{kind: effectUnmute, userID: p.ID})
	}
}

func (e *Engine) lockChat(locked bool) {
	kind := effectUnlockChat
	if locked {
		kind = effectLockChat
	}
	e.outbox = append(e.outbox, effect{kind: kind})
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := e.s.snapshot()
	snap.Epoch = e.epoch
	snap.Deadline = e.deadline
	if e.s.Phase.Speaking() && e.turn >= 0 && e.turn < len(e.speakers) {
		snap.Speaker = e.speakers[e.turn]
	}
	return snap
}

// start deals the opening notices and enters the first night.
func (e *Engine) start() {
	e.mu.Lock()
	defer e.unlock()
	defer e.recoverInvariant()

	snap := e.s.snapshot()
	e.announce(GameStarted{GameID: e.s.GameID, Participants: snap.Public().Participants, Distribution: e.s.Distribution})
	for _, p := range e.s.Participants {
		ev := RoleAssigned{To: p.ID, Self: p.view()}
		if p.Role == RoleWerewolf {
			for _, m := range e.s.Participants {
				if m.Role == RoleWerewolf && m.Slot != p.Slot {
					ev.Mates = append(ev.Mates, m.view())
				}
			}
		}
		e.tell(p, ev)
	}
	e.log.Info().Int("players", len(e.s.Participants)).Msg("werewolf: game started")
	e.enter(PhaseNightEliminate)
}

// release stops the phase timer and cancels the actor task. Every phase exit
// goes through here.
func (e *Engine) release() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.task != nil {
		e.task.cancel()
		e.task = nil
	}
	e.deadline = time.Time{}
}

// nextEpoch retires the current phase or turn.
func (e *Engine) nextEpoch() {
	e.release()
	e.epoch++
	e.resolved = false
}

// enter moves the state machine to next and runs its entry action. Entry
// actions either arm a timer or resolve immediately and enter the successor.
func (e *Engine) enter(next Phase) {
	prev := e.s.Phase
	if !prev.CanTransitionTo(next) {
		err := invariantError("illegal transition %s -> %s", prev, next)
		e.log.Error().Err(err).Msg("werewolf: aborting session")
		e.abortLocked(err.Error())
		return
	}

	e.nextEpoch()
	if next == PhaseNightEliminate && prev != PhaseLobby {
		e.s.Round++
	}
	e.s.Phase = next
	e.s.Pending = make(map[ActionKind]map[int]int)
	e.log.Debug().Str("phase", string(next)).Int("round", e.s.Round).Uint64("epoch", e.epoch).Msg("werewolf: phase entered")
	e.outbox = append(e.outbox, effect{kind: effectSnapshot, snapshot: e.snapshotLocked()})

	switch next {
	case PhaseNightEliminate:
		e.enterNightEliminate()
	case PhaseNightInspect:
		e.enterHolderPhase(RoleSeer, e.timing.Inspect, PhaseNightProtect)
	case PhaseNightProtect:
		e.enterHolderPhase(RoleWitch, e.timing.Protect, PhaseDawnResolve)
	case PhaseDawnResolve:
		e.resolveDawn()
	case PhaseRetaliate:
		e.enterRetaliate()
	case PhaseDaySpeak:
		e.exiled = 0
		e.enterSpeaking(e.s.aliveSlots(nil), PhaseDayVote)
	case PhaseDayVote, PhaseRunoffVote:
		e.enterVote()
	case PhaseRunoff:
		e.enterSpeaking(append([]int(nil), e.s.RunoffSet...), PhaseRunoffVote)
	case PhasePostVoteResolve:
		e.resolvePostVote()
	case PhaseLastWords:
		speakers := e.lastWords
		e.lastWords = nil
		e.enterSpeaking(speakers, e.afterLastWords)
	case PhaseGameWon:
		e.enterGameWon()
	}
}

// startTimer arms the single timer of the current epoch.
func (e *Engine) startTimer(budget time.Duration) {
	epoch := e.epoch
	e.deadline = time.Now().Add(budget)
	e.timer = time.AfterFunc(budget, func() { e.onTimer(epoch) })
}

func (e *Engine) onTimer(epoch uint64) {
	e.mu.Lock()
	defer e.unlock()
	defer e.recoverInvariant()

	e.timeout(epoch)
}

// timeout announces the deadline and resolves the phase identified by epoch
// with whatever was submitted. Any other epoch, or a phase already resolved,
// is left untouched.
func (e *Engine) timeout(epoch uint64) bool {
	if epoch != e.epoch || e.resolved || e.s.Phase.Terminal() {
		e.log.Debug().Uint64("epoch", epoch).Uint64("current", e.epoch).Msg("werewolf: stale timeout ignored")
		return false
	}

	var missing []int
	for _, slot := range e.eligible() {
		if !e.acted(slot) {
			missing = append(missing, slot)
		}
	}
	ev := PhaseTimeout{Phase: e.s.Phase, Round: e.s.Round}
	if !e.s.Phase.Night() {
		ev.Missing = missing
	}
	e.announce(ev)
	e.log.Info().Str("phase", string(e.s.Phase)).Ints("missing", missing).Msg("werewolf: phase timed out")
	e.resolve()
	return true
}

// resolve runs the current phase's resolution once per epoch.
func (e *Engine) resolve() {
	if e.resolved {
		return
	}
	e.resolved = true
	e.release()

	switch e.s.Phase {
	case PhaseNightEliminate:
		e.resolveEliminate()
	case PhaseNightInspect:
		e.enter(PhaseNightProtect)
	case PhaseNightProtect:
		e.enter(PhaseDawnResolve)
	case PhaseRetaliate:
		e.resolveRetaliate()
	case PhaseDaySpeak, PhaseRunoff, PhaseLastWords:
		e.endTurn()
	case PhaseDayVote, PhaseRunoffVote:
		e.resolveVote()
	}
}

// checkWin ends the game if an elimination decided it.
func (e *Engine) checkWin() bool {
	winner, over := evaluateWin(e.s.Participants)
	if !over {
		return false
	}
	e.s.Winner = winner
	e.enter(PhaseGameWon)
	return true
}

func (e *Engine) enterGameWon() {
	e.resolved = true
	e.s.EndedAt = time.Now()
	e.cleanupChat()
	snap := e.s.snapshot()
	e.announce(GameOver{Winner: e.s.Winner, Rounds: e.s.Round, Participants: snap.Participants})
	e.outbox = append(e.outbox, effect{kind: effectResult, result: Result{
		GameID:       e.s.GameID,
		ChatID:       e.s.ChatID,
		Winner:       e.s.Winner,
		Rounds:       e.s.Round,
		Participants: snap.Participants,
		StartedAt:    e.s.StartedAt,
		EndedAt:      e.s.EndedAt,
	}})
	e.log.Info().Str("winner", string(e.s.Winner)).Int("round", e.s.Round).Msg("werewolf: game over")
	e.cancel()
}

// abortLocked ends the game without a winner. It is legal from any
// non-terminal phase and a no-op afterwards.
func (e *Engine) abortLocked(reason string) {
	if e.s.Phase.Terminal() {
		return
	}
	e.nextEpoch()
	e.resolved = true
	e.s.Phase = PhaseAborted
	e.s.EndedAt = time.Now()
	e.cleanupChat()
	e.announce(GameAborted{Reason: reason})
	e.outbox = append(e.outbox, effect{kind: effectSnapshot, snapshot: e.snapshotLocked()})
	e.log.Warn().Str("reason", reason).Msg("werewolf: game aborted")
	e.cancel()
}

// cleanupChat lifts every mute once the game ends.
func (e *Engine) cleanupChat() {
	e.lockChat(false)
	for _, p := range e.s.Participants {
		e.unmute(p)
	}
}

// Submit applies a human participant's action to the current phase.
func (e *Engine) Submit(actorID int64, p Proposal) error {
	e.mu.Lock()
	defer e.unlock()
	defer e.recoverInvariant()

	if e.s.Phase.Terminal() {
		return ErrNoActiveSession
	}
	actor := e.s.byID(actorID)
	if actor == nil {
		return ErrNotParticipant
	}
	return e.apply(actor, p)
}

// submitAutomated applies an oracle proposal if its phase is still current.
func (e *Engine) submitAutomated(epoch uint64, slot int, p Proposal) error {
	e.mu.Lock()
	defer e.unlock()
	defer e.recoverInvariant()

	if epoch != e.epoch || e.resolved || e.s.Phase.Terminal() {
		return ErrPhaseResolved
	}
	actor := e.s.bySlot(slot)
	if actor == nil {
		return ErrNotParticipant
	}
	return e.apply(actor, p)
}

// apply routes a proposal to the current phase. Invariant violations abort
// the session; every other error is returned to the actor.
func (e *Engine) apply(actor *Participant, p Proposal) error {
	if e.resolved {
		return ErrPhaseResolved
	}
	var err error
	switch e.s.Phase {
	case PhaseNightEliminate:
		err = e.submitKill(actor, p)
	case PhaseNightInspect:
		err = e.submitInspect(actor, p)
	case PhaseNightProtect:
		err = e.submitWitch(actor, p)
	case PhaseRetaliate:
		err = e.submitShot(actor, p)
	case PhaseDayVote, PhaseRunoffVote:
		err = e.submitVote(actor, p)
	case PhaseDaySpeak, PhaseRunoff, PhaseLastWords:
		err = e.submitSpeech(actor, p)
	default:
		err = ErrUnsupportedAction
	}
	if errors.Is(err, ErrInvariantViolation) {
		e.log.Error().Err(err).Msg("werewolf: aborting session")
		e.abortLocked(err.Error())
	}
	return err
}

// eligible returns the slots expected to act in the current phase or turn.
func (e *Engine) eligible() []int {
	switch e.s.Phase {
	case PhaseNightEliminate:
		return e.s.aliveWolves()
	case PhaseNightInspect:
		return e.aliveHolder(RoleSeer)
	case PhaseNightProtect:
		return e.aliveHolder(RoleWitch)
	case PhaseRetaliate:
		return []int{e.s.Hunter.Slot}
	case PhaseDayVote, PhaseRunoffVote:
		return e.s.aliveSlots(nil)
	case PhaseDaySpeak, PhaseRunoff, PhaseLastWords:
		if e.turn >= 0 && e.turn < len(e.speakers) {
			return []int{e.speakers[e.turn]}
		}
	}
	return nil
}

func (e *Engine) aliveHolder(r Role) []int {
	if h := e.s.holder(r); h != nil && h.Alive {
		return []int{h.Slot}
	}
	return nil
}

// acted reports whether slot has submitted in the current phase.
func (e *Engine) acted(slot int) bool {
	if e.s.Phase.Voting() {
		_, ok := e.s.Votes[slot]
		return ok
	}
	return e.s.submitted(slot)
}

// complete reports whether every eligible actor has acted.
func (e *Engine) complete() bool {
	for _, slot := range e.eligible() {
		if !e.acted(slot) {
			return false
		}
	}
	return true
}

// afterSubmit resolves a complete phase, or wakes automated actors early once
// every human has acted.
func (e *Engine) afterSubmit() {
	if e.complete() {
		e.resolve()
		return
	}
	if e.task == nil {
		return
	}
	humans := 0
	for _, slot := range e.eligible() {
		p := e.s.bySlot(slot)
		if p.Automated {
			continue
		}
		humans++
		if !e.acted(slot) {
			return
		}
	}
	if humans > 0 {
		e.task.wake()
	}
}

// ForceTimeout resolves the current phase as if its timer fired. In the
// speaking phases (day speech, runoff speech, last words) the timer covers a
// single speaker, so only the current turn ends and the phase moves on to the
// next speaker.
func (e *Engine) ForceTimeout() error {
	e.mu.Lock()
	defer e.unlock()
	defer e.recoverInvariant()

	if e.s.Phase.Terminal() {
		return ErrNoActiveSession
	}
	if e.timer == nil || !e.timeout(e.epoch) {
		return ErrPhaseResolved
	}
	return nil
}

// Abort ends the game without a winner.
func (e *Engine) Abort(reason string) error {
	e.mu.Lock()
	defer e.unlock()

	if e.s.Phase.Terminal() {
		return ErrNoActiveSession
	}
	e.abortLocked(reason)
	return nil
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Terminal reports whether the game has ended.
func (e *Engine) Terminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Phase.Terminal()
}

// ChatID returns the chat the engine runs in.
func (e *Engine) ChatID() int64 {
	return e.s.ChatID
}

// Close cancels outstanding automated actors, waits for them to return and
// delivers the effects still queued. Effects of later transitions are
// dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancel()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	e.tasks.Wait()
	e.out.flush()
	e.out.close()
}
