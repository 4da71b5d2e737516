package werewolf

// validateTarget is the single authority for the generic target rules: the
// slot exists, the target is alive unless allowDead, and the actor does not
// name itself. Ability-specific rules are layered on top by the resolvers.
func validateTarget(s *Session, actor *Participant, target int, allowDead bool) (*Participant, error) {
	t := s.bySlot(target)
	if t == nil {
		return nil, ErrTargetNotFound
	}
	if t.Slot == actor.Slot {
		return nil, ErrSelfTarget
	}
	if !t.Alive && !allowDead {
		return nil, ErrTargetDead
	}
	return t, nil
}
