package oracle

import (
	"context"
	"fmt"

	"werewolf-bot/internal/game/werewolf"
)

// Rule picks a random legal action. It never fails while the request offers
// a usable choice, which makes it the last link of a fallback chain.
type Rule struct {
	rng werewolf.Rand
}

// NewRule creates a rule-based oracle. A nil rng uses a clock-seeded source.
func NewRule(rng werewolf.Rand) *Rule {
	if rng == nil {
		rng = werewolf.NewRand(0)
	}
	return &Rule{rng: rng}
}

var speechLines = []string{
	"我是好人，昨晚没有什么信息，先听听后面的发言。",
	"这一轮我没有太多想法，大家注意一下发言前后矛盾的人。",
	"我觉得有人在带节奏，先过，投票的时候再看。",
	"信息太少了，我跟着预言家的方向走。",
	"我的底牌很干净，请大家不要把票挂在我身上。",
}

// ProposeAction implements werewolf.Oracle.
func (r *Rule) ProposeAction(ctx context.Context, req werewolf.OracleRequest) (werewolf.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return werewolf.Proposal{}, err
	}

	switch {
	case req.Allows(werewolf.ActionSpeak):
		return werewolf.Proposal{
			Kind: werewolf.ActionSpeak,
			Text: speechLines[r.rng.Intn(len(speechLines))],
		}, nil

	case req.Allows(werewolf.ActionSave) && req.PendingKill != 0:
		return werewolf.Proposal{Kind: werewolf.ActionSave, Target: req.PendingKill}, nil

	case req.Allows(werewolf.ActionKill):
		return r.pick(werewolf.ActionKill, req.Candidates)
	case req.Allows(werewolf.ActionInspect):
		return r.pick(werewolf.ActionInspect, req.Candidates)
	case req.Allows(werewolf.ActionShoot):
		return r.pick(werewolf.ActionShoot, req.Candidates)
	case req.Allows(werewolf.ActionVote):
		if len(req.Candidates) == 0 && req.Allows(werewolf.ActionAbstain) {
			return werewolf.Proposal{Kind: werewolf.ActionAbstain}, nil
		}
		return r.pick(werewolf.ActionVote, avoid(req.Candidates, req.Mates))

	case req.Allows(werewolf.ActionPass):
		return werewolf.Proposal{Kind: werewolf.ActionPass}, nil
	}
	return werewolf.Proposal{}, fmt.Errorf("%w: nothing the rule oracle can answer", werewolf.ErrOracleFailure)
}

func (r *Rule) pick(kind werewolf.ActionKind, candidates []int) (werewolf.Proposal, error) {
	if len(candidates) == 0 {
		return werewolf.Proposal{}, fmt.Errorf("%w: no candidates for %s", werewolf.ErrOracleFailure, kind)
	}
	return werewolf.Proposal{Kind: kind, Target: candidates[r.rng.Intn(len(candidates))]}, nil
}

// avoid drops mates from the candidates unless that leaves nobody.
func avoid(candidates, mates []int) []int {
	if len(mates) == 0 {
		return candidates
	}
	var out []int
	for _, c := range candidates {
		if !contains(mates, c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}
