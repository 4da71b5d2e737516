package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"werewolf-bot/internal/game/werewolf"
)

// DefaultReserve is the time kept back for each later oracle of a chain.
const DefaultReserve = time.Second

// Fallback asks each oracle in turn and returns the first proposal. When the
// caller's context carries a deadline, every oracle but the last runs on a
// shorter one so a hung oracle still leaves time for the rest.
type Fallback struct {
	oracles []werewolf.Oracle
	reserve time.Duration
}

// NewFallback chains oracles. Nil entries are skipped.
func NewFallback(oracles ...werewolf.Oracle) *Fallback {
	f := &Fallback{reserve: DefaultReserve}
	for _, o := range oracles {
		if o != nil {
			f.oracles = append(f.oracles, o)
		}
	}
	return f
}

// WithReserve sets how much of the deadline is kept for each later oracle.
func (f *Fallback) WithReserve(d time.Duration) *Fallback {
	if d > 0 {
		f.reserve = d
	}
	return f
}

// ProposeAction implements werewolf.Oracle.
func (f *Fallback) ProposeAction(ctx context.Context, req werewolf.OracleRequest) (werewolf.Proposal, error) {
	errs := make([]error, 0, len(f.oracles))
	for i, o := range f.oracles {
		p, err := f.propose(ctx, o, len(f.oracles)-1-i, req)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return werewolf.Proposal{}, ctx.Err()
		}
		log.Debug().Err(err).Int("oracle", i).Str("game_id", req.GameID).Msg("oracle: falling back")
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return werewolf.Proposal{}, werewolf.ErrOracleFailure
	}
	return werewolf.Proposal{}, errors.Join(errs...)
}

// propose runs o with the later oracles' reserve cut from ctx's deadline.
// The cut never takes more than half of what is left.
func (f *Fallback) propose(ctx context.Context, o werewolf.Oracle, later int, req werewolf.OracleRequest) (werewolf.Proposal, error) {
	deadline, ok := ctx.Deadline()
	if !ok || later == 0 {
		return o.ProposeAction(ctx, req)
	}
	left := time.Until(deadline)
	reserve := min(f.reserve*time.Duration(later), left/2)
	octx, cancel := context.WithTimeout(ctx, left-reserve)
	defer cancel()
	return o.ProposeAction(octx, req)
}
