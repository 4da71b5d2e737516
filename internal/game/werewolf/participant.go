package werewolf

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Abstain is the vote-record sentinel for an abstention. Slots start at 1.
const Abstain = 0

// Seat is a lobby entry waiting to be dealt a role.
type Seat struct {
	ID        int64
	Name      string
	Automated bool
}

// Participant is a seated player. Slot and Role never change after dealing;
// elimination only clears Alive.
type Participant struct {
	ID        int64
	Name      string
	Slot      int
	Role      Role
	Alive     bool
	Automated bool
}

// Label returns "slot号 name" for narration.
func (p *Participant) Label() string {
	return fmt.Sprintf("%d号 %s", p.Slot, p.Name)
}

// ParticipantView is a read-only copy of a participant.
type ParticipantView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slot      int    `json:"slot"`
	Role      Role   `json:"role,omitempty"`
	Alive     bool   `json:"alive"`
	Automated bool   `json:"automated"`
}

// Label returns "slot号 name" for narration.
func (v ParticipantView) Label() string {
	return fmt.Sprintf("%d号 %s", v.Slot, v.Name)
}

func (p *Participant) view() ParticipantView {
	return ParticipantView{
		ID:        p.ID,
		Name:      p.Name,
		Slot:      p.Slot,
		Role:      p.Role,
		Alive:     p.Alive,
		Automated: p.Automated,
	}
}

// Rand is the randomness source for dealing, tie-breaks and disguise timers.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand makes a math/rand source safe to share between sessions.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe Rand seeded with seed, or with the clock
// when seed is 0.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// dealRoles seats players in the given order (slot 1..N) and deals the
// distribution's roles in random order.
func dealRoles(seats []Seat, dist Distribution, rng Rand) ([]*Participant, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}
	if dist.Total() != len(seats) {
		return nil, fmt.Errorf("%w: %d roles for %d seats", ErrInvalidDistribution, dist.Total(), len(seats))
	}

	seen := make(map[int64]bool, len(seats))
	for _, s := range seats {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: participant %d seated twice", ErrInvalidDistribution, s.ID)
		}
		seen[s.ID] = true
	}

	deck := dist.Deck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	players := make([]*Participant, len(seats))
	for i, s := range seats {
		players[i] = &Participant{
			ID:        s.ID,
			Name:      s.Name,
			Slot:      i + 1,
			Role:      deck[i],
			Alive:     true,
			Automated: s.Automated,
		}
	}
	return players, nil
}
