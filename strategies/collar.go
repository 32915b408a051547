package strategies

import (
	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// Collar holds spot and keeps it fenced by a long put and a short call of
// the same tenor and size. Both legs are opened together in one
// instruction, so the account never holds one without the other.
type Collar struct {
	cfg Config
}

func NewCollar(cfg Config) *Collar {
	return &Collar{cfg: cfg}
}

func (s *Collar) Name() string { return NameCollar }

func (s *Collar) Reset() {}

func (s *Collar) Settlement() sim.SettlementMode {
	return settlement(s.cfg, sim.SettleCash)
}

func (s *Collar) Policy() risk.Policy { return policy(s.cfg) }

func (s *Collar) NextSignal(ctx Context) (*Instruction, error) {
	if ctx.Account.HasOptions() {
		return nil, nil
	}
	return s.cfg.collar(ctx, "collar")
}
