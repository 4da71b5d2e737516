package werewolf

import (
	"fmt"
	"sort"
	"time"
)

// Draw records a random tie-break between wolf targets.
type Draw struct {
	GameID     string    `json:"game_id"`
	Round      int       `json:"round"`
	Phase      Phase     `json:"phase"`
	Candidates []int     `json:"candidates"`
	Chosen     int       `json:"chosen"`
	At         time.Time `json:"at"`
}

// validateKill checks a wolf's proposal: generic rules plus no faction mates.
func validateKill(s *Session, actor *Participant, target int) error {
	t, err := validateTarget(s, actor, target, false)
	if err != nil {
		return err
	}
	if t.Role.Faction() == actor.Role.Faction() {
		return ErrFactionMate
	}
	return nil
}

// resolveKill picks the night kill from the wolves' proposals by plurality.
// A tie is broken uniformly at random and returned as a Draw. Zero means no
// wolf proposed anything.
func resolveKill(s *Session, rng Rand) (int, *Draw) {
	counts := make(map[int]int)
	for _, target := range s.Pending[ActionKill] {
		counts[target]++
	}
	leaders, top := leadersOf(counts)
	switch {
	case top == 0:
		return 0, nil
	case len(leaders) == 1:
		return leaders[0], nil
	}
	chosen := leaders[rng.Intn(len(leaders))]
	return chosen, &Draw{
		GameID:     s.GameID,
		Round:      s.Round,
		Phase:      PhaseNightEliminate,
		Candidates: leaders,
		Chosen:     chosen,
		At:         time.Now(),
	}
}

// inspect validates a seer check and returns whether the target is a wolf.
// Dead targets may be inspected.
func inspect(s *Session, seer *Participant, target int) (Inspection, error) {
	t, err := validateTarget(s, seer, target, true)
	if err != nil {
		return Inspection{}, err
	}
	return Inspection{Round: s.Round, Target: t.Slot, IsWolf: t.Role == RoleWerewolf}, nil
}

// applyWitch validates and applies the witch's single choice for the night.
// A protect with no target means the pending night kill.
func applyWitch(s *Session, witch *Participant, p Proposal) (int, error) {
	switch p.Kind {
	case ActionSave:
		if s.Witch.SaveUsed {
			return 0, ErrChargeUsed
		}
		if s.NightKill == 0 {
			return 0, fmt.Errorf("%w: nobody to protect tonight", ErrInvalidTarget)
		}
		target := p.Target
		if target == 0 {
			target = s.NightKill
		}
		if target == witch.Slot {
			return 0, ErrSelfTarget
		}
		if target != s.NightKill {
			return 0, fmt.Errorf("%w: only tonight's victim can be protected", ErrInvalidTarget)
		}
		if err := s.Witch.spend(ActionSave); err != nil {
			return 0, err
		}
		s.Protected = true
		return target, nil

	case ActionPoison:
		if s.Witch.PoisonUsed {
			return 0, ErrChargeUsed
		}
		if _, err := validateTarget(s, witch, p.Target, false); err != nil {
			return 0, err
		}
		if err := s.Witch.spend(ActionPoison); err != nil {
			return 0, err
		}
		s.Poisoned = p.Target
		return p.Target, nil

	case ActionPass:
		return 0, nil
	}
	return 0, ErrUnsupportedAction
}

// resolveNight applies the night triad in order: the wolves' kill unless
// protected, then the poison, then the union. A participant both killed and
// poisoned dies once, by poison.
func resolveNight(s *Session) []Elimination {
	var deaths []Elimination
	killed := s.NightKill
	if s.Protected {
		killed = 0
	}
	if s.Poisoned != 0 {
		if killed == s.Poisoned {
			killed = 0
		}
		if p := s.eliminate(s.Poisoned, CausePoison); p != nil {
			deaths = append(deaths, s.Eliminations[len(s.Eliminations)-1])
		}
	}
	if killed != 0 {
		if p := s.eliminate(killed, CauseNightKill); p != nil {
			deaths = append(deaths, s.Eliminations[len(s.Eliminations)-1])
		}
	}
	sort.Slice(deaths, func(i, j int) bool { return deaths[i].Slot < deaths[j].Slot })
	return deaths
}

// armHunter arms the hunter when it was just eliminated by kill or vote.
func armHunter(s *Session, e Elimination) bool {
	if s.Hunter.Slot == 0 || e.Slot != s.Hunter.Slot || s.Hunter.Fired {
		return false
	}
	if e.Cause != CauseNightKill && e.Cause != CauseVote {
		return false
	}
	s.Hunter.Armed = true
	s.Hunter.Cause = e.Cause
	return true
}

// validateShot checks the hunter's retaliation target.
func validateShot(s *Session, hunter *Participant, target int) error {
	_, err := validateTarget(s, hunter, target, false)
	return err
}
