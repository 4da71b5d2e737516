package werewolf

import "sort"

// TallyOutcome classifies a counted ballot set.
type TallyOutcome string

const (
	// OutcomeNoWinner means no ballot named a candidate.
	OutcomeNoWinner TallyOutcome = "no_winner"
	// OutcomeWinner means a single candidate has the strict maximum.
	OutcomeWinner TallyOutcome = "winner"
	// OutcomeTie means two or more candidates share a maximum of at least 1.
	OutcomeTie TallyOutcome = "tie"
)

// TallyResult is the counted vote record.
type TallyResult struct {
	Outcome     TallyOutcome `json:"outcome"`
	Winner      int          `json:"winner,omitempty"`
	Tied        []int        `json:"tied,omitempty"`
	Counts      map[int]int  `json:"counts"`
	Abstentions int          `json:"abstentions"`
}

// Tally counts a voter -> target record. Abstain ballots are counted
// separately and never elect anyone. Tied candidates are returned ascending.
func Tally(votes map[int]int) TallyResult {
	res := TallyResult{Counts: make(map[int]int)}
	for _, target := range votes {
		if target == Abstain {
			res.Abstentions++
			continue
		}
		res.Counts[target]++
	}

	leaders, top := leadersOf(res.Counts)
	switch {
	case top == 0:
		res.Outcome = OutcomeNoWinner
	case len(leaders) == 1:
		res.Outcome = OutcomeWinner
		res.Winner = leaders[0]
	default:
		res.Outcome = OutcomeTie
		res.Tied = leaders
	}
	return res
}

// leadersOf returns every candidate holding the maximum count, ascending.
func leadersOf(counts map[int]int) ([]int, int) {
	top := 0
	var leaders []int
	for c, n := range counts {
		switch {
		case n > top:
			top = n
			leaders = []int{c}
		case n == top && n > 0:
			leaders = append(leaders, c)
		}
	}
	sort.Ints(leaders)
	return leaders, top
}
