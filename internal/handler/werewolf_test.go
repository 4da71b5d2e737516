package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werewolf-bot/internal/game/werewolf"
)

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name    string
		kind    werewolf.ActionKind
		args    []string
		want    werewolf.Proposal
		wantErr bool
	}{
		{"kill", werewolf.ActionKill, []string{"3"}, werewolf.Proposal{Kind: werewolf.ActionKill, Target: 3}, false},
		{"vote with suffix", werewolf.ActionVote, []string{"5号"}, werewolf.Proposal{Kind: werewolf.ActionVote, Target: 5}, false},
		{"save takes no target", werewolf.ActionSave, nil, werewolf.Proposal{Kind: werewolf.ActionSave}, false},
		{"abstain", werewolf.ActionAbstain, []string{"9"}, werewolf.Proposal{Kind: werewolf.ActionAbstain}, false},
		{"done with words", werewolf.ActionSpeak, []string{"我是", "好人"}, werewolf.Proposal{Kind: werewolf.ActionSpeak, Text: "我是 好人"}, false},
		{"missing target", werewolf.ActionShoot, nil, werewolf.Proposal{}, true},
		{"zero", werewolf.ActionInspect, []string{"0"}, werewolf.Proposal{}, true},
		{"garbage", werewolf.ActionPoison, []string{"abc"}, werewolf.Proposal{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProposal(tt.kind, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorReplyUnwrapsEngineErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", werewolf.ErrFactionMate)
	assert.Equal(t, "❌ 不能选择狼队友", errorReply(wrapped))
	assert.Equal(t, "❌ 目标无效", errorReply(werewolf.ErrInvalidTarget))
	assert.Equal(t, "❌ 还没轮到你发言", errorReply(werewolf.ErrNotYourTurn))
	assert.Equal(t, "❌ 操作失败，请稍后重试", errorReply(errors.New("boom")))
}

func TestSecretActions(t *testing.T) {
	assert.True(t, secretAction(werewolf.ActionKill))
	assert.True(t, secretAction(werewolf.ActionPoison))
	assert.False(t, secretAction(werewolf.ActionVote))
	assert.False(t, secretAction(werewolf.ActionShoot))
}

func TestRenderLobby(t *testing.T) {
	l := &werewolf.Lobby{
		HostID: 1,
		Seats: []werewolf.Seat{
			{ID: 1, Name: "host"},
			{ID: -1, Name: "AI-1", Automated: true},
		},
	}
	out := renderLobby(l, "header")
	assert.Contains(t, out, "1. host 👑")
	assert.Contains(t, out, "2. AI-1 🤖")
	assert.Contains(t, out, fmt.Sprintf("还需 %d 人", werewolf.MinPlayers-2))
}

func TestTimeoutReplyNamesWhatEnded(t *testing.T) {
	assert.Equal(t, "✅ 已强制结束当前阶段", timeoutReply(werewolf.PhaseNightEliminate))
	assert.Equal(t, "✅ 已强制结束当前阶段", timeoutReply(werewolf.PhaseDayVote))
	for _, p := range []werewolf.Phase{werewolf.PhaseDaySpeak, werewolf.PhaseRunoff, werewolf.PhaseLastWords} {
		assert.Contains(t, timeoutReply(p), "当前发言人", p)
	}
}
