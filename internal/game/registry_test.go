package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGame struct {
	cmd    string
	active map[int64]bool
}

func (g *stubGame) Name() string        { return "stub " + g.cmd }
func (g *stubGame) Command() string     { return g.cmd }
func (g *stubGame) Description() string { return "a stub" }

type stubSession struct {
	stubGame
}

func (g *stubSession) IsSessionActive(chatID int64) bool { return g.active[chatID] }

func (g *stubSession) ActiveSessions() []int64 {
	var out []int64
	for id, ok := range g.active {
		if ok {
			out = append(out, id)
		}
	}
	return out
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&stubGame{}))

	require.NoError(t, r.Register(&stubGame{cmd: "zz"}))
	require.NoError(t, r.Register(&stubGame{cmd: "aa"}))
	assert.Equal(t, 2, r.Count())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "aa", list[0].Command())
	assert.Equal(t, "zz", list[1].Command())

	g, ok := r.Get("zz")
	require.True(t, ok)
	assert.Equal(t, "stub zz", g.Name())

	// Same command replaces.
	require.NoError(t, r.Register(&stubGame{cmd: "zz"}))
	assert.Equal(t, 2, r.Count())

	assert.True(t, r.Unregister("zz"))
	assert.False(t, r.Unregister("zz"))
	_, ok = r.Get("zz")
	assert.False(t, ok)
}

func TestRegistrySessions(t *testing.T) {
	r := NewRegistry()
	ww := &stubSession{stubGame{cmd: "ww", active: map[int64]bool{-7: true}}}
	require.NoError(t, r.Register(&stubGame{cmd: "help"}))
	require.NoError(t, r.Register(ww))

	sessions := r.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "ww", sessions[0].Command())

	sg, ok := r.ActiveIn(-7)
	require.True(t, ok)
	assert.Equal(t, "ww", sg.Command())

	_, ok = r.ActiveIn(-8)
	assert.False(t, ok)
}
