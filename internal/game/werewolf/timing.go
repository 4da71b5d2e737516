package werewolf

import "time"

// Timing holds per-phase budgets and collaborator bounds.
type Timing struct {
	Eliminate time.Duration
	Inspect   time.Duration
	Protect   time.Duration
	Retaliate time.Duration
	Speak     time.Duration
	LastWords time.Duration
	Vote      time.Duration

	// AutomatedLead is how long before a phase deadline automated actors are
	// consulted.
	AutomatedLead time.Duration
	// DeadHolderMin and DeadHolderMax bound the disguise timer run for a role
	// phase whose holder is already dead.
	DeadHolderMin time.Duration
	DeadHolderMax time.Duration

	OracleTimeout    time.Duration
	OracleRetries    int
	OracleRetryDelay time.Duration
	GatewayTimeout   time.Duration
}

// DefaultTiming returns the budgets used when configuration leaves them unset.
func DefaultTiming() Timing {
	return Timing{
		Eliminate:        60 * time.Second,
		Inspect:          30 * time.Second,
		Protect:          30 * time.Second,
		Retaliate:        30 * time.Second,
		Speak:            60 * time.Second,
		LastWords:        45 * time.Second,
		Vote:             45 * time.Second,
		AutomatedLead:    25 * time.Second,
		DeadHolderMin:    8 * time.Second,
		DeadHolderMax:    20 * time.Second,
		OracleTimeout:    10 * time.Second,
		OracleRetries:    1,
		OracleRetryDelay: time.Second,
		GatewayTimeout:   10 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultTiming.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.Eliminate, d.Eliminate)
	fill(&t.Inspect, d.Inspect)
	fill(&t.Protect, d.Protect)
	fill(&t.Retaliate, d.Retaliate)
	fill(&t.Speak, d.Speak)
	fill(&t.LastWords, d.LastWords)
	fill(&t.Vote, d.Vote)
	fill(&t.OracleTimeout, d.OracleTimeout)
	fill(&t.OracleRetryDelay, d.OracleRetryDelay)
	fill(&t.GatewayTimeout, d.GatewayTimeout)
	if t.AutomatedLead < 0 {
		t.AutomatedLead = 0
	}
	if t.OracleRetries < 0 {
		t.OracleRetries = 0
	}
	if t.DeadHolderMin <= 0 && t.DeadHolderMax <= 0 {
		t.DeadHolderMin, t.DeadHolderMax = d.DeadHolderMin, d.DeadHolderMax
	}
	if t.DeadHolderMax < t.DeadHolderMin {
		t.DeadHolderMax = t.DeadHolderMin
	}
	t.fitOracleToLead()
	return t
}

// fitOracleToLead shrinks the oracle budget so every attempt and the waits
// between them finish inside AutomatedLead. With no lead the actors fire at
// the deadline and nothing is clamped.
func (t *Timing) fitOracleToLead() {
	if t.AutomatedLead <= 0 {
		return
	}
	perAttempt := (t.AutomatedLead - t.retryWait()) / time.Duration(t.OracleRetries+1)
	if perAttempt <= 0 {
		t.OracleRetries = 0
		perAttempt = t.AutomatedLead
	}
	if t.OracleTimeout > perAttempt {
		t.OracleTimeout = perAttempt
	}
}

// retryWait is the longest total backoff between oracle attempts: the
// exponential policy grows by 1.5 per retry and jitters by up to half.
func (t Timing) retryWait() time.Duration {
	var total, step float64
	step = float64(t.OracleRetryDelay)
	for i := 0; i < t.OracleRetries; i++ {
		total += step * 1.5
		step *= 1.5
	}
	return time.Duration(total)
}

// actorDelay is when automated actors fire: budget minus lead, never negative.
func (t Timing) actorDelay(budget time.Duration) time.Duration {
	if d := budget - t.AutomatedLead; d > 0 {
		return d
	}
	return 0
}

// deadHolderBudget draws the disguise duration in [DeadHolderMin, DeadHolderMax].
func (t Timing) deadHolderBudget(rng Rand) time.Duration {
	span := t.DeadHolderMax - t.DeadHolderMin
	if span <= 0 {
		return t.DeadHolderMin
	}
	return t.DeadHolderMin + time.Duration(rng.Intn(int(span)+1))
}
