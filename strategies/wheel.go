package strategies

import (
	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// Wheel sells cash-secured puts until assigned, then covered calls on the
// assigned spot until it is called away. The phase is read off the
// holdings, so the strategy itself keeps no state.
type Wheel struct {
	cfg Config
}

func NewWheel(cfg Config) *Wheel {
	return &Wheel{cfg: cfg}
}

func (s *Wheel) Name() string { return NameWheel }

func (s *Wheel) Reset() {}

func (s *Wheel) Settlement() sim.SettlementMode {
	return settlement(s.cfg, sim.SettlePhysical)
}

func (s *Wheel) Policy() risk.Policy { return policy(s.cfg) }

// Phase reports which leg the wheel would sell for this account.
func (s *Wheel) Phase(v sim.AccountView) string {
	if v.SpotQty > s.cfg.MinQuantity {
		return "call"
	}
	return "put"
}

func (s *Wheel) NextSignal(ctx Context) (*Instruction, error) {
	if ctx.Account.HasOptions() {
		return nil, nil
	}
	if s.Phase(ctx.Account) == "call" {
		return s.cfg.coveredCall(ctx, ctx.Account.SpotQty, "wheel: covered call"), nil
	}
	return s.cfg.cashSecuredPut(ctx, ctx.Account.Cash, "wheel: sell put"), nil
}
