package werewolf

import (
	"fmt"
	"sort"
)

// Faction is the team a role plays for.
type Faction string

const (
	FactionNone   Faction = ""
	FactionWolves Faction = "wolves"
	FactionGood   Faction = "good"
)

// DisplayName returns the faction's player-facing name.
func (f Faction) DisplayName() string {
	switch f {
	case FactionWolves:
		return "狼人阵营"
	case FactionGood:
		return "好人阵营"
	default:
		return "无"
	}
}

// Role is a hidden role dealt at game start.
type Role string

const (
	RoleWerewolf Role = "werewolf"
	RoleSeer     Role = "seer"
	RoleWitch    Role = "witch"
	RoleHunter   Role = "hunter"
	RoleVillager Role = "villager"
)

// AllRoles lists every role in dealing order.
var AllRoles = []Role{RoleWerewolf, RoleSeer, RoleWitch, RoleHunter, RoleVillager}

// Faction maps a role to its faction. Every role has exactly one.
func (r Role) Faction() Faction {
	switch r {
	case RoleWerewolf:
		return FactionWolves
	case RoleSeer, RoleWitch, RoleHunter, RoleVillager:
		return FactionGood
	default:
		return FactionNone
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Faction() != FactionNone
}

// Unique reports whether at most one participant may hold the role.
func (r Role) Unique() bool {
	return r == RoleSeer || r == RoleWitch || r == RoleHunter
}

// DisplayName returns the role's player-facing name.
func (r Role) DisplayName() string {
	switch r {
	case RoleWerewolf:
		return "🐺 狼人"
	case RoleSeer:
		return "🔮 预言家"
	case RoleWitch:
		return "🧪 女巫"
	case RoleHunter:
		return "🏹 猎人"
	case RoleVillager:
		return "👨‍🌾 村民"
	default:
		return string(r)
	}
}

// Distribution is the number of seats dealt per role.
type Distribution map[Role]int

// Total returns the number of seats the distribution fills.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Validate checks the distribution can start a game: known roles, at least
// one wolf, at least one good seat, unique roles dealt at most once.
func (d Distribution) Validate() error {
	for r, c := range d {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidDistribution, r)
		}
		if c < 0 {
			return fmt.Errorf("%w: negative count for %s", ErrInvalidDistribution, r)
		}
		if r.Unique() && c > 1 {
			return fmt.Errorf("%w: %s dealt %d times", ErrInvalidDistribution, r, c)
		}
	}
	if d[RoleWerewolf] == 0 {
		return fmt.Errorf("%w: no werewolves", ErrInvalidDistribution)
	}
	if d.Total()-d[RoleWerewolf] <= d[RoleWerewolf] {
		return fmt.Errorf("%w: wolves start with parity", ErrInvalidDistribution)
	}
	return nil
}

// Deck expands the distribution into a role list in a stable order.
func (d Distribution) Deck() []Role {
	deck := make([]Role, 0, d.Total())
	for _, r := range AllRoles {
		for i := 0; i < d[r]; i++ {
			deck = append(deck, r)
		}
	}
	return deck
}

// Has reports whether the role is dealt at all.
func (d Distribution) Has(r Role) bool {
	return d[r] > 0
}

// Player count bounds for preset distributions.
const (
	MinPlayers = 6
	MaxPlayers = 12
)

var presets = map[int]Distribution{
	6:  {RoleWerewolf: 2, RoleSeer: 1, RoleWitch: 1, RoleVillager: 2},
	7:  {RoleWerewolf: 2, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 2},
	8:  {RoleWerewolf: 2, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 3},
	9:  {RoleWerewolf: 3, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 3},
	10: {RoleWerewolf: 3, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 4},
	11: {RoleWerewolf: 4, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 4},
	12: {RoleWerewolf: 4, RoleSeer: 1, RoleWitch: 1, RoleHunter: 1, RoleVillager: 5},
}

// PresetDistribution returns the standard distribution for n players.
func PresetDistribution(n int) (Distribution, error) {
	p, ok := presets[n]
	if !ok {
		return nil, fmt.Errorf("%w: need %d-%d players, have %d", ErrNotEnoughPlayers, MinPlayers, MaxPlayers, n)
	}
	out := make(Distribution, len(p))
	for r, c := range p {
		out[r] = c
	}
	return out, nil
}

// PresetSizes returns the player counts that have a preset, ascending.
func PresetSizes() []int {
	sizes := make([]int, 0, len(presets))
	for n := range presets {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)
	return sizes
}
