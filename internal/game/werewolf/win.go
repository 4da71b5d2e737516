package werewolf

// evaluateWin checks the win conditions after an elimination: no wolves left
// means the good faction wins; wolves at parity or better means they win.
func evaluateWin(players []*Participant) (Faction, bool) {
	wolves, good := 0, 0
	for _, p := range players {
		if !p.Alive {
			continue
		}
		if p.Role.Faction() == FactionWolves {
			wolves++
		} else {
			good++
		}
	}
	switch {
	case wolves == 0:
		return FactionGood, true
	case wolves >= good:
		return FactionWolves, true
	}
	return FactionNone, false
}
