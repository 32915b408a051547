package strategies

import (
	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// BuyAndHold is the baseline: spend all cash on spot once and hold it.
type BuyAndHold struct {
	cfg Config
}

func NewBuyAndHold(cfg Config) *BuyAndHold {
	return &BuyAndHold{cfg: cfg}
}

func (s *BuyAndHold) Name() string { return NameBuyAndHold }

func (s *BuyAndHold) Reset() {}

func (s *BuyAndHold) Settlement() sim.SettlementMode { return sim.SettleCash }

func (s *BuyAndHold) Policy() risk.Policy { return risk.Strict() }

func (s *BuyAndHold) NextSignal(ctx Context) (*Instruction, error) {
	if ctx.Account.HasSpot() || ctx.Account.Cash <= 0 || ctx.Obs.Spot <= 0 {
		return nil, nil
	}
	return &Instruction{Spot: ctx.Account.Cash / ctx.Obs.Spot, Reason: "buy and hold"}, nil
}
