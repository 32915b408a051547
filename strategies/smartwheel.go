package strategies

import (
	"slices"

	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// Behaviour is what SmartWheel does on a given day.
type Behaviour string

const (
	BehaviourHold   Behaviour = "hold"
	BehaviourCollar Behaviour = "collar"
	BehaviourPut    Behaviour = "put"
)

// SmartWheel switches between collar protection when volatility is cheap
// and put selling when it is rich. Which signal decides, and which regimes
// map to which behaviour, comes from Config.Smart.
type SmartWheel struct {
	cfg Config
}

func NewSmartWheel(cfg Config) *SmartWheel {
	return &SmartWheel{cfg: cfg}
}

func (s *SmartWheel) Name() string { return NameSmartWheel }

func (s *SmartWheel) Reset() {}

func (s *SmartWheel) Settlement() sim.SettlementMode {
	def := sim.SettleCash
	if s.cfg.Smart.CoverSpot {
		def = sim.SettlePhysical
	}
	return settlement(s.cfg, def)
}

func (s *SmartWheel) Policy() risk.Policy { return policy(s.cfg) }

// Behaviour maps the day's signal to a behaviour.
func (s *SmartWheel) Behaviour(ctx Context) Behaviour {
	switch s.cfg.Smart.Switch {
	case SwitchVolGap:
		if !ctx.VolGapReady {
			return BehaviourHold
		}
		if ctx.VolGap < 0 {
			return BehaviourCollar
		}
		return BehaviourPut
	default:
		if !ctx.RegimeReady {
			return BehaviourHold
		}
		if slices.Contains(s.cfg.Smart.CollarRegimes, ctx.Regime) {
			return BehaviourCollar
		}
		if slices.Contains(s.cfg.Smart.PutRegimes, ctx.Regime) {
			return BehaviourPut
		}
		return BehaviourHold
	}
}

func (s *SmartWheel) NextSignal(ctx Context) (*Instruction, error) {
	if ctx.Account.HasOptions() {
		return nil, nil
	}
	b := s.Behaviour(ctx)
	reason := "smartwheel: " + string(b)

	switch b {
	case BehaviourCollar:
		return s.cfg.collar(ctx, reason)
	case BehaviourPut:
		return s.put(ctx, reason), nil
	}
	return nil, nil
}

func (s *SmartWheel) put(ctx Context, reason string) *Instruction {
	held := ctx.Account.SpotQty
	if held > 0 && s.cfg.Smart.CoverSpot {
		return s.cfg.coveredCall(ctx, held, reason)
	}
	if held <= 0 {
		return s.cfg.cashSecuredPut(ctx, ctx.Account.Cash, reason)
	}

	// liquidate, then secure puts with the proceeds
	cash := ctx.Account.Cash + held*ctx.Obs.Spot
	in := s.cfg.cashSecuredPut(ctx, cash, reason)
	if in == nil {
		in = &Instruction{Reason: reason}
	}
	in.Spot = -held
	return in
}
