package werewolf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func table(roles ...Role) []*Participant {
	out := make([]*Participant, len(roles))
	for i, r := range roles {
		out[i] = &Participant{Slot: i + 1, Role: r, Alive: true}
	}
	return out
}

func TestEvaluateWin(t *testing.T) {
	tests := []struct {
		name   string
		roles  []Role
		dead   []int
		winner Faction
		over   bool
	}{
		{"game on", []Role{RoleWerewolf, RoleSeer, RoleVillager}, nil, FactionNone, false},
		{"no wolves left", []Role{RoleWerewolf, RoleSeer, RoleVillager}, []int{1}, FactionGood, true},
		{"parity", []Role{RoleWerewolf, RoleWerewolf, RoleHunter, RoleVillager, RoleVillager}, []int{3, 4}, FactionWolves, true},
		{"wolves outnumber", []Role{RoleWerewolf, RoleWerewolf, RoleVillager}, []int{3}, FactionWolves, true},
		{"one short of parity", []Role{RoleWerewolf, RoleWerewolf, RoleWitch, RoleVillager, RoleVillager}, []int{4}, FactionNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players := table(tt.roles...)
			for _, slot := range tt.dead {
				players[slot-1].Alive = false
			}
			winner, over := evaluateWin(players)
			assert.Equal(t, tt.over, over)
			assert.Equal(t, tt.winner, winner)
		})
	}
}

// Property: once a faction has won, eliminating more of the losing side never
// undoes the win or hands it over.
func TestWinMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		wolves := rapid.IntRange(1, 4).Draw(t, "wolves")
		good := rapid.IntRange(wolves+1, 8).Draw(t, "good")
		var roles []Role
		for i := 0; i < wolves; i++ {
			roles = append(roles, RoleWerewolf)
		}
		for i := 0; i < good; i++ {
			roles = append(roles, RoleVillager)
		}
		players := table(roles...)

		order := rapid.Permutation(players).Draw(t, "order")
		var decided Faction
		for _, p := range order {
			if decided != FactionNone && p.Role.Faction() == decided {
				continue
			}
			p.Alive = false
			winner, over := evaluateWin(players)
			if decided == FactionNone {
				if over {
					decided = winner
				}
				continue
			}
			if !over || winner != decided {
				t.Fatalf("win flipped from %s to %s (over=%v)", decided, winner, over)
			}
		}
	})
}
