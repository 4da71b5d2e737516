package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"werewolf-bot/internal/game/werewolf"
)

var allKinds = []werewolf.ActionKind{
	werewolf.ActionKill, werewolf.ActionInspect, werewolf.ActionSave, werewolf.ActionPoison,
	werewolf.ActionPass, werewolf.ActionShoot, werewolf.ActionVote, werewolf.ActionAbstain,
	werewolf.ActionSpeak,
}

// Property: whatever is offered, the rule oracle answers with an offered
// kind and, when a target is needed, one of the candidates.
func TestRuleAnswersWithinRequestProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kinds := rapid.SliceOfNDistinct(rapid.SampledFrom(allKinds), 1, 4, func(k werewolf.ActionKind) werewolf.ActionKind { return k }).Draw(t, "kinds")
		candidates := rapid.SliceOfDistinct(rapid.IntRange(1, 12), func(n int) int { return n }).Draw(t, "candidates")
		req := werewolf.OracleRequest{
			Kinds:       kinds,
			Candidates:  candidates,
			PendingKill: rapid.IntRange(0, 12).Draw(t, "pending"),
		}

		p, err := NewRule(werewolf.NewRand(rapid.Int64Range(1, 1<<40).Draw(t, "seed"))).
			ProposeAction(context.Background(), req)
		if err != nil {
			if !errors.Is(err, werewolf.ErrOracleFailure) {
				t.Fatalf("unexpected error %v", err)
			}
			return
		}
		if !req.Allows(p.Kind) {
			t.Fatalf("answered %s, offered %v", p.Kind, kinds)
		}
		switch p.Kind {
		case werewolf.ActionKill, werewolf.ActionInspect, werewolf.ActionShoot, werewolf.ActionVote:
			if !contains(candidates, p.Target) {
				t.Fatalf("target %d not among %v", p.Target, candidates)
			}
		case werewolf.ActionSpeak:
			if p.Text == "" {
				t.Fatal("empty speech")
			}
		}
	})
}

func TestRuleWolfVoteAvoidsMates(t *testing.T) {
	o := NewRule(werewolf.NewRand(7))
	req := werewolf.OracleRequest{
		Kinds:      []werewolf.ActionKind{werewolf.ActionVote, werewolf.ActionAbstain},
		Candidates: []int{1, 3},
		Mates:      []int{1},
	}
	for i := 0; i < 20; i++ {
		p, err := o.ProposeAction(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 3, p.Target)
	}
}

func TestRuleWitchSavesWhenSheCan(t *testing.T) {
	o := NewRule(werewolf.NewRand(7))
	p, err := o.ProposeAction(context.Background(), werewolf.OracleRequest{
		Kinds:       []werewolf.ActionKind{werewolf.ActionPass, werewolf.ActionSave, werewolf.ActionPoison},
		PendingKill: 6,
		Candidates:  []int{1, 2, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, werewolf.Proposal{Kind: werewolf.ActionSave, Target: 6}, p)

	p, err = o.ProposeAction(context.Background(), werewolf.OracleRequest{
		Kinds:      []werewolf.ActionKind{werewolf.ActionPass, werewolf.ActionPoison},
		Candidates: []int{1, 2, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, werewolf.ActionPass, p.Kind)
}

func TestFallbackChain(t *testing.T) {
	failing := NewLLM(LLMConfig{})
	f := NewFallback(failing, nil, NewRule(werewolf.NewRand(3)))

	p, err := f.ProposeAction(context.Background(), wolfRequest())
	require.NoError(t, err)
	assert.Equal(t, werewolf.ActionKill, p.Kind)
	assert.Contains(t, []int{3, 4, 5}, p.Target)

	_, err = NewFallback(failing).ProposeAction(context.Background(), wolfRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewFallback().ProposeAction(context.Background(), wolfRequest())
	assert.ErrorIs(t, err, werewolf.ErrOracleFailure)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.ProposeAction(ctx, wolfRequest())
	assert.ErrorIs(t, err, context.Canceled)
}
