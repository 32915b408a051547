package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/regime"
	"github.com/rustyeddy/optsim/sim"
)

// StrikeRule picks a strike from spot. A non-zero Delta selects by delta,
// otherwise the strike is OTM away from spot (puts below, calls above).
type StrikeRule struct {
	OTM   float64 `json:"otm" yaml:"otm"`
	Delta float64 `json:"delta,omitempty" yaml:"delta,omitempty"`
}

// Strike returns the strike for kind at the observation.
func (r StrikeRule) Strike(kind pricing.Kind, o market.Observation, days int) float64 {
	if r.Delta != 0 {
		d := math.Abs(r.Delta)
		if kind == pricing.Put {
			d = -d
		}
		return pricing.StrikeFromDelta(kind, o.Spot, pricing.Years(float64(days)), o.Rate, o.Sigma(), d)
	}
	if kind == pricing.Put {
		return o.Spot * (1 - r.OTM)
	}
	return o.Spot * (1 + r.OTM)
}

func (r StrikeRule) validate(field string) error {
	if r.OTM < 0 || r.OTM >= 1 {
		return fmt.Errorf("%s.otm must be in [0, 1)", field)
	}
	if math.Abs(r.Delta) >= 1 {
		return fmt.Errorf("%s.delta must be in (-1, 1)", field)
	}
	return nil
}

// SwitchMode selects the signal SmartWheel dispatches on.
type SwitchMode string

const (
	SwitchRegime SwitchMode = "regime"
	SwitchVolGap SwitchMode = "vol_gap"
)

// SmartConfig maps regimes to SmartWheel behaviours. Regimes in neither
// set open nothing.
type SmartConfig struct {
	Switch        SwitchMode      `json:"switch" yaml:"switch"`
	CollarRegimes []regime.Regime `json:"collar_regimes" yaml:"collar_regimes"`
	PutRegimes    []regime.Regime `json:"put_regimes" yaml:"put_regimes"`

	// CoverSpot sells covered calls against spot held in put mode instead
	// of liquidating it first.
	CoverSpot bool `json:"cover_spot" yaml:"cover_spot"`

	VolGapWindow    int `json:"vol_gap_window" yaml:"vol_gap_window"`
	VolGapSmoothing int `json:"vol_gap_smoothing" yaml:"vol_gap_smoothing"`
}

// Config is shared by every strategy; each reads the fields it needs.
type Config struct {
	Days int        `json:"days" yaml:"days"`
	Put  StrikeRule `json:"put" yaml:"put"`
	Call StrikeRule `json:"call" yaml:"call"`

	// Collar legs.
	Protect StrikeRule `json:"protect" yaml:"protect"`
	Cap     StrikeRule `json:"cap" yaml:"cap"`

	// BuyInFraction of cash is spent on spot when a spot-holding strategy
	// starts flat.
	BuyInFraction float64 `json:"buy_in_fraction" yaml:"buy_in_fraction"`
	// CashReserve is the fraction of equity kept in cash by selling spot
	// before a collar is placed.
	CashReserve float64 `json:"cash_reserve" yaml:"cash_reserve"`

	MinQuantity    float64 `json:"min_quantity" yaml:"min_quantity"`
	WholeContracts bool    `json:"whole_contracts" yaml:"whole_contracts"`

	// Settlement overrides the strategy's default settlement mode.
	Settlement    sim.SettlementMode `json:"settlement,omitempty" yaml:"settlement,omitempty"`
	AllowLeverage bool               `json:"allow_leverage" yaml:"allow_leverage"`

	Smart SmartConfig `json:"smart" yaml:"smart"`
}

// DefaultConfig mirrors the parameters of the reference backtests:
// 30-day tenor, 10% OTM puts and calls, a 95/110 collar.
func DefaultConfig() Config {
	return Config{
		Days:          30,
		Put:           StrikeRule{OTM: 0.10},
		Call:          StrikeRule{OTM: 0.10},
		Protect:       StrikeRule{OTM: 0.05},
		Cap:           StrikeRule{OTM: 0.10},
		BuyInFraction: 0.95,
		CashReserve:   0.05,
		MinQuantity:   0.001,
		Smart: SmartConfig{
			Switch:          SwitchRegime,
			CollarRegimes:   []regime.Regime{regime.Low},
			PutRegimes:      []regime.Regime{regime.Mid, regime.High},
			VolGapWindow:    30,
			VolGapSmoothing: 0,
		},
	}
}

func (c Config) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("strategy.days must be positive")
	}
	for _, r := range []struct {
		name string
		rule StrikeRule
	}{
		{"strategy.put", c.Put},
		{"strategy.call", c.Call},
		{"strategy.protect", c.Protect},
		{"strategy.cap", c.Cap},
	} {
		if err := r.rule.validate(r.name); err != nil {
			return err
		}
	}
	if c.BuyInFraction < 0 || c.BuyInFraction > 1 {
		return fmt.Errorf("strategy.buy_in_fraction must be in [0, 1]")
	}
	if c.CashReserve < 0 || c.CashReserve >= 1 {
		return fmt.Errorf("strategy.cash_reserve must be in [0, 1)")
	}
	if c.MinQuantity < 0 {
		return fmt.Errorf("strategy.min_quantity must be non-negative")
	}
	switch c.Settlement {
	case "", sim.SettleCash, sim.SettlePhysical:
	default:
		return fmt.Errorf("strategy.settlement must be cash or physical")
	}
	switch c.Smart.Switch {
	case SwitchRegime, SwitchVolGap:
	case "":
		return fmt.Errorf("strategy.smart.switch is required")
	default:
		return fmt.Errorf("strategy.smart.switch must be regime or vol_gap")
	}
	seen := map[regime.Regime]string{}
	for _, r := range c.Smart.CollarRegimes {
		if !r.Valid() {
			return fmt.Errorf("strategy.smart.collar_regimes: invalid regime %d", r)
		}
		seen[r] = "collar_regimes"
	}
	for _, r := range c.Smart.PutRegimes {
		if !r.Valid() {
			return fmt.Errorf("strategy.smart.put_regimes: invalid regime %d", r)
		}
		if prev, ok := seen[r]; ok {
			return fmt.Errorf("strategy.smart.put_regimes: %s is already in %s", r, prev)
		}
	}
	if c.Smart.Switch == SwitchVolGap && c.Smart.VolGapWindow < 2 {
		return fmt.Errorf("strategy.smart.vol_gap_window must be at least 2")
	}
	return nil
}
