package strategies

import (
	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// CashSecuredPut sells a put against all cash whenever it holds no options.
type CashSecuredPut struct {
	cfg Config
}

func NewCashSecuredPut(cfg Config) *CashSecuredPut {
	return &CashSecuredPut{cfg: cfg}
}

func (s *CashSecuredPut) Name() string { return NameCSP }

func (s *CashSecuredPut) Reset() {}

func (s *CashSecuredPut) Settlement() sim.SettlementMode {
	return settlement(s.cfg, sim.SettleCash)
}

func (s *CashSecuredPut) Policy() risk.Policy { return policy(s.cfg) }

func (s *CashSecuredPut) NextSignal(ctx Context) (*Instruction, error) {
	if ctx.Account.HasOptions() {
		return nil, nil
	}
	return s.cfg.cashSecuredPut(ctx, ctx.Account.Cash, "sell put"), nil
}

func settlement(cfg Config, def sim.SettlementMode) sim.SettlementMode {
	if cfg.Settlement != "" {
		return cfg.Settlement
	}
	return def
}

func policy(cfg Config) risk.Policy {
	p := risk.Strict()
	if cfg.AllowLeverage {
		p.NoLeverage = false
	}
	return p
}
