package strategies

import (
	"math"

	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// CoveredCall buys spot once and keeps calls written against all of it.
type CoveredCall struct {
	cfg Config
}

func NewCoveredCall(cfg Config) *CoveredCall {
	return &CoveredCall{cfg: cfg}
}

func (s *CoveredCall) Name() string { return NameCoveredCall }

func (s *CoveredCall) Reset() {}

func (s *CoveredCall) Settlement() sim.SettlementMode {
	return settlement(s.cfg, sim.SettleCash)
}

func (s *CoveredCall) Policy() risk.Policy { return policy(s.cfg) }

func (s *CoveredCall) NextSignal(ctx Context) (*Instruction, error) {
	if ctx.Account.HasOptions() || ctx.Obs.Spot <= 0 {
		return nil, nil
	}
	spot := ctx.Obs.Spot
	cash := ctx.Account.Cash
	held := ctx.Account.SpotQty

	var trade float64
	switch {
	case held <= 0:
		if s.cfg.BuyInFraction <= 0 || cash <= 0 {
			return nil, nil
		}
		trade = cash * s.cfg.BuyInFraction / spot
	case cash < 0:
		// a cash-settled call finished in the money; cover it from spot
		trade = -math.Min(-cash/spot, held)
	}

	in := s.cfg.coveredCall(ctx, held+trade, "covered call")
	if in == nil {
		if trade == 0 {
			return nil, nil
		}
		in = &Instruction{Reason: "covered call"}
	}
	in.Spot = trade
	return in, nil
}
