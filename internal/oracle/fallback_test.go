package oracle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werewolf-bot/internal/game/werewolf"
)

// hungOracle never answers before its context ends.
type hungOracle struct {
	calls atomic.Int32
}

func (o *hungOracle) ProposeAction(ctx context.Context, _ werewolf.OracleRequest) (werewolf.Proposal, error) {
	o.calls.Add(1)
	<-ctx.Done()
	return werewolf.Proposal{}, ctx.Err()
}

func TestFallbackLeavesTimeForLaterOracles(t *testing.T) {
	hung := &hungOracle{}
	f := NewFallback(hung, NewRule(werewolf.NewRand(5))).WithReserve(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	p, err := f.ProposeAction(ctx, wolfRequest())
	require.NoError(t, err)
	assert.Equal(t, werewolf.ActionKill, p.Kind)
	assert.EqualValues(t, 1, hung.calls.Load())
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.NoError(t, ctx.Err(), "the rule answered before the caller's deadline")
}

func TestFallbackReserveNeverStarvesFirstOracle(t *testing.T) {
	var got time.Duration
	first := oracleFunc(func(ctx context.Context) (werewolf.Proposal, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		got = time.Until(deadline)
		return werewolf.Proposal{Kind: werewolf.ActionPass}, nil
	})
	f := NewFallback(first, NewRule(nil)).WithReserve(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.ProposeAction(ctx, wolfRequest())
	require.NoError(t, err)
	assert.InDelta(t, float64(500*time.Millisecond), float64(got), float64(100*time.Millisecond))
}

type oracleFunc func(ctx context.Context) (werewolf.Proposal, error)

func (f oracleFunc) ProposeAction(ctx context.Context, _ werewolf.OracleRequest) (werewolf.Proposal, error) {
	return f(ctx)
}

type eventLog struct {
	mu     sync.Mutex
	events []werewolf.Event
}

func (l *eventLog) Announce(_ context.Context, _ int64, ev werewolf.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) timeouts() []werewolf.PhaseTimeout {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []werewolf.PhaseTimeout
	for _, ev := range l.events {
		if pt, ok := ev.(werewolf.PhaseTimeout); ok {
			out = append(out, pt)
		}
	}
	return out
}

// A model that never answers must not cost the automated wolves their kill:
// the rule oracle answers inside the lead time.
func TestHungModelFallsBackToRulesBeforeDeadline(t *testing.T) {
	hung := &hungOracle{}
	events := &eventLog{}
	m := werewolf.NewManager(werewolf.Options{
		Timing: werewolf.Timing{
			Eliminate:     2 * time.Second,
			Inspect:       time.Hour,
			Protect:       time.Hour,
			Retaliate:     time.Hour,
			Speak:         time.Hour,
			LastWords:     time.Hour,
			Vote:          time.Hour,
			AutomatedLead: 1500 * time.Millisecond,
			OracleTimeout: time.Minute,
		},
		Oracle:    NewFallback(hung, NewRule(werewolf.NewRand(9))),
		Messenger: events,
	})
	t.Cleanup(func() { m.Shutdown("test done") })

	seats := make([]werewolf.Seat, 9)
	for i := range seats {
		seats[i] = werewolf.Seat{ID: -int64(i + 1), Name: fmt.Sprintf("AI-%d", i+1), Automated: true}
	}
	dist, err := werewolf.PresetDistribution(len(seats))
	require.NoError(t, err)

	const chat = int64(-300)
	_, err = m.StartSession(context.Background(), chat, seats, dist)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		state, err := m.GetState(chat)
		return err == nil && state.Phase != werewolf.PhaseNightEliminate
	}, 5*time.Second, 10*time.Millisecond)

	state, err := m.GetState(chat)
	require.NoError(t, err)
	assert.Equal(t, werewolf.PhaseNightInspect, state.Phase)
	assert.NotZero(t, state.NightKill)
	assert.Positive(t, hung.calls.Load())
	assert.Empty(t, events.timeouts(), "wolves acted before the deadline")
}
