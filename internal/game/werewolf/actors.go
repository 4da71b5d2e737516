package werewolf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// actorTask is the single supervised goroutine consulting the oracle for one
// phase or turn.
type actorTask struct {
	cancel   context.CancelFunc
	kick     chan struct{}
	kickOnce sync.Once
}

// wake fires the task before its deadline.
func (t *actorTask) wake() {
	t.kickOnce.Do(func() { close(t.kick) })
}

// scheduleActors starts the phase's actor task. It waits for delay (or a
// wake), then asks the oracle for every slot concurrently and submits the
// answers under the epoch it was started with.
// Called with mu held; Close cancels e.ctx under mu, so no task is added
// once Close has started waiting.
func (e *Engine) scheduleActors(delay time.Duration, slots []int) {
	if len(slots) == 0 || e.deps.Oracle == nil || e.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	t := &actorTask{cancel: cancel, kick: make(chan struct{})}
	e.task = t
	epoch := e.epoch

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer cancel()

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.kick:
		case <-timer.C:
		}

		reqs := e.oracleRequests(epoch, slots)
		g, gctx := errgroup.WithContext(ctx)
		for _, req := range reqs {
			req := req
			g.Go(func() error {
				e.act(gctx, epoch, req)
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// act consults the oracle for one actor and submits the proposal. Failures
// mean the actor does nothing this phase.
func (e *Engine) act(ctx context.Context, epoch uint64, req OracleRequest) {
	p, err := e.consult(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Warn().Err(err).Int("slot", req.Actor.Slot).Str("phase", string(req.Phase)).Msg("werewolf: automated actor gave up")
		}
		return
	}
	if err := e.submitAutomated(epoch, req.Actor.Slot, p); err != nil {
		e.log.Debug().Err(err).Int("slot", req.Actor.Slot).Str("kind", string(p.Kind)).Msg("werewolf: automated proposal rejected")
	}
}

// consult calls the oracle with a per-call timeout and exponential backoff
// between attempts.
func (e *Engine) consult(ctx context.Context, req OracleRequest) (Proposal, error) {
	var out Proposal
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.timing.OracleTimeout)
		defer cancel()

		p, err := e.deps.Oracle.ProposeAction(callCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if !req.Allows(p.Kind) {
			return fmt.Errorf("%w: proposal kind %q not allowed", ErrOracleFailure, p.Kind)
		}
		out = p
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.timing.OracleRetryDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.timing.OracleRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Proposal{}, fmt.Errorf("%w: %v", ErrOracleTimeout, err)
		}
		if errors.Is(err, ErrOracleFailure) {
			return Proposal{}, err
		}
		return Proposal{}, fmt.Errorf("%w: %v", ErrOracleFailure, err)
	}
	return out, nil
}

// oracleRequests builds the requests for slots, or nil if the epoch moved on.
func (e *Engine) oracleRequests(epoch uint64, slots []int) []OracleRequest {
	e.mu.Lock()
	defer e.mu.Unlock()

	if epoch != e.epoch || e.resolved {
		return nil
	}
	reqs := make([]OracleRequest, 0, len(slots))
	for _, slot := range slots {
		if e.acted(slot) {
			continue
		}
		reqs = append(reqs, e.requestFor(e.s.bySlot(slot)))
	}
	return reqs
}

// requestFor assembles what p knows and may do in the current phase.
func (e *Engine) requestFor(p *Participant) OracleRequest {
	snap := e.snapshotLocked()
	req := OracleRequest{
		GameID:     e.s.GameID,
		ChatID:     e.s.ChatID,
		Actor:      p.view(),
		Phase:      e.s.Phase,
		Round:      e.s.Round,
		Transcript: append([]SpeechLine(nil), e.s.Transcript...),
		Public:     snap.Public(),
	}
	others := e.s.aliveSlots(func(o *Participant) bool { return o.Slot != p.Slot })

	switch p.Role {
	case RoleWerewolf:
		req.Mates = e.s.aliveSlots(func(o *Participant) bool { return o.Role == RoleWerewolf && o.Slot != p.Slot })
	case RoleSeer:
		req.Inspections = append([]Inspection(nil), e.s.Inspections...)
	}

	switch e.s.Phase {
	case PhaseNightEliminate:
		req.Kinds = []ActionKind{ActionKill}
		req.Candidates = e.s.aliveSlots(func(o *Participant) bool { return o.Role != RoleWerewolf })
	case PhaseNightInspect:
		req.Kinds = []ActionKind{ActionInspect}
		seen := make(map[int]bool)
		for _, in := range e.s.Inspections {
			seen[in.Target] = true
		}
		for _, o := range e.s.Participants {
			if o.Slot != p.Slot && !seen[o.Slot] {
				req.Candidates = append(req.Candidates, o.Slot)
			}
		}
	case PhaseNightProtect:
		req.PendingKill = e.s.NightKill
		req.Kinds = []ActionKind{ActionPass}
		if !e.s.Witch.SaveUsed && e.s.NightKill != 0 && e.s.NightKill != p.Slot {
			req.Kinds = append(req.Kinds, ActionSave)
		}
		if !e.s.Witch.PoisonUsed {
			req.Kinds = append(req.Kinds, ActionPoison)
		}
		req.Candidates = others
	case PhaseRetaliate:
		req.Kinds = []ActionKind{ActionShoot, ActionPass}
		req.Candidates = others
	case PhaseDayVote:
		req.Kinds = []ActionKind{ActionVote, ActionAbstain}
		req.Candidates = others
	case PhaseRunoffVote:
		req.Kinds = []ActionKind{ActionVote, ActionAbstain}
		for _, slot := range e.s.RunoffSet {
			if slot != p.Slot {
				req.Candidates = append(req.Candidates, slot)
			}
		}
	case PhaseDaySpeak, PhaseRunoff, PhaseLastWords:
		req.Kinds = []ActionKind{ActionSpeak}
		req.Candidates = others
	}
	return req
}
