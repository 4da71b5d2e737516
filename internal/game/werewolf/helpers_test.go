package werewolf

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fixedRand deals roles in deck order and answers Intn from a script.
type fixedRand struct {
	mu    sync.Mutex
	picks []int
}

func (r *fixedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.picks) == 0 {
		return 0
	}
	p := r.picks[0]
	r.picks = r.picks[1:]
	return p % n
}

func (r *fixedRand) Shuffle(int, func(i, j int)) {}

// settleFunc waits for effects the engine has queued but not yet delivered.
// Fakes call it before they are read.
type settleFunc func()

func (f settleFunc) wait() {
	if f != nil {
		f()
	}
}

type recordingMessenger struct {
	mu     sync.Mutex
	events []Event
	settle settleFunc
}

func (m *recordingMessenger) Announce(_ context.Context, _ int64, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *recordingMessenger) ofKind(k EventKind) []Event {
	m.settle.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if ev.Kind() == k {
			out = append(out, ev)
		}
	}
	return out
}

func (m *recordingMessenger) count() int {
	m.settle.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

type fakeModerator struct {
	mu     sync.Mutex
	muted  map[int64]bool
	locked bool
	fail   bool
	settle settleFunc
}

func (f *fakeModerator) set(userID int64, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("moderation unavailable")
	}
	if f.muted == nil {
		f.muted = make(map[int64]bool)
	}
	f.muted[userID] = muted
	return nil
}

func (f *fakeModerator) Mute(_ context.Context, _ int64, userID int64) error {
	return f.set(userID, true)
}

func (f *fakeModerator) Unmute(_ context.Context, _ int64, userID int64) error {
	return f.set(userID, false)
}

func (f *fakeModerator) LockChat(_ context.Context, _ int64, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("moderation unavailable")
	}
	f.locked = locked
	return nil
}

func (f *fakeModerator) isMuted(userID int64) bool {
	f.settle.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted[userID]
}

func (f *fakeModerator) isLocked() bool {
	f.settle.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

func (f *fakeModerator) setFailing(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type memRecorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	draws     []Draw
	results   []Result
	fail      bool
	settle    settleFunc
}

func (r *memRecorder) setFailing(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *memRecorder) savedSnapshots() []Snapshot {
	r.settle.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snapshots...)
}

func (r *memRecorder) loggedDraws() []Draw {
	r.settle.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Draw(nil), r.draws...)
}

func (r *memRecorder) recordedResults() []Result {
	r.settle.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func (r *memRecorder) SaveSnapshot(_ context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("db down")
	}
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *memRecorder) LogDraw(_ context.Context, d Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("db down")
	}
	r.draws = append(r.draws, d)
	return nil
}

func (r *memRecorder) RecordResult(_ context.Context, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("db down")
	}
	r.results = append(r.results, res)
	return nil
}

// oracleFunc adapts a function to Oracle and counts calls.
type oracleFunc struct {
	calls atomic.Int32
	fn    func(ctx context.Context, req OracleRequest) (Proposal, error)
}

func (o *oracleFunc) ProposeAction(ctx context.Context, req OracleRequest) (Proposal, error) {
	o.calls.Add(1)
	return o.fn(ctx, req)
}

// longTiming never fires on its own within a test; phases advance by
// submissions or ForceTimeout.
func longTiming() Timing {
	return Timing{
		Eliminate:        time.Hour,
		Inspect:          time.Hour,
		Protect:          time.Hour,
		Retaliate:        time.Hour,
		Speak:            time.Hour,
		LastWords:        time.Hour,
		Vote:             time.Hour,
		AutomatedLead:    0,
		DeadHolderMin:    time.Hour,
		DeadHolderMax:    time.Hour,
		OracleTimeout:    time.Second,
		OracleRetries:    0,
		OracleRetryDelay: time.Millisecond,
		GatewayTimeout:   time.Second,
	}
}

type harness struct {
	e   *Engine
	msg *recordingMessenger
	mod *fakeModerator
	rec *memRecorder
	rng *fixedRand
}

// dist9 is the classic nine-seat table. With deck-order dealing the slots are
// 1-2 wolves, 3 seer, 4 witch, 5 hunter, 6-9 villagers.
func dist9() Distribution {
	return Distribution{RoleWerewolf: 2, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 4}
}

// playerID maps a slot to its chat user id in tests.
func playerID(slot int) int64 {
	return int64(100 + slot)
}

func seatsFor(n int, automated ...int) []Seat {
	auto := make(map[int]bool)
	for _, s := range automated {
		auto[s] = true
	}
	seats := make([]Seat, n)
	for i := range seats {
		slot := i + 1
		id := playerID(slot)
		if auto[slot] {
			id = -int64(slot)
		}
		seats[i] = Seat{ID: id, Name: "p", Automated: auto[slot]}
	}
	return seats
}

func newHarness(t *testing.T, dist Distribution, timing Timing, oracle Oracle, automated ...int) *harness {
	t.Helper()
	h := &harness{
		msg: &recordingMessenger{},
		mod: &fakeModerator{},
		rec: &memRecorder{},
		rng: &fixedRand{},
	}
	players, err := dealRoles(seatsFor(dist.Total(), automated...), dist, h.rng)
	require.NoError(t, err)

	h.e = newEngine("game-1", -1001, players, dist, Dependencies{
		Oracle:    oracle,
		Messenger: h.msg,
		Moderator: h.mod,
		Recorder:  h.rec,
		Rand:      h.rng,
		Timing:    timing,
	}, nil)
	h.msg.settle = h.e.flush
	h.mod.settle = h.e.flush
	h.rec.settle = h.e.flush
	t.Cleanup(h.e.Close)
	h.e.start()
	return h
}

func (h *harness) submit(slot int, p Proposal) error {
	return h.e.Submit(playerID(slot), p)
}

func (h *harness) must(t *testing.T, slot int, p Proposal) {
	t.Helper()
	require.NoError(t, h.submit(slot, p), "slot %d %s %d", slot, p.Kind, p.Target)
}

func (h *harness) phase() Phase {
	return h.e.Snapshot().Phase
}

// speakAll ends every speaker turn of the current speaking phase.
func (h *harness) speakAll(t *testing.T) {
	t.Helper()
	for h.phase().Speaking() {
		snap := h.e.Snapshot()
		require.NotZero(t, snap.Speaker)
		h.must(t, snap.Speaker, Proposal{Kind: ActionSpeak})
	}
}

// night plays one night: wolves kill target (0 = nobody), the seer checks
// inspect, the witch applies witch. Absent or dead holders are timed out.
func (h *harness) night(t *testing.T, target, inspectSlot int, witch Proposal) {
	t.Helper()
	snap := h.e.Snapshot()
	require.Equal(t, PhaseNightEliminate, snap.Phase)
	for _, slot := range snap.AliveSlots() {
		if snap.Participants[slot-1].Role == RoleWerewolf && target != 0 {
			h.must(t, slot, Proposal{Kind: ActionKill, Target: target})
		}
	}
	if h.phase() == PhaseNightEliminate {
		require.NoError(t, h.e.ForceTimeout())
	}
	if h.phase() == PhaseNightInspect {
		if inspectSlot != 0 {
			h.must(t, 3, Proposal{Kind: ActionInspect, Target: inspectSlot})
		} else {
			require.NoError(t, h.e.ForceTimeout())
		}
	}
	if h.phase() == PhaseNightProtect {
		if witch.Kind != "" {
			h.must(t, 4, witch)
		} else {
			require.NoError(t, h.e.ForceTimeout())
		}
	}
}
