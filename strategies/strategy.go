// Package strategies holds the option-selling policies. A strategy reads
// the day's observation, regime and a copy of the account and returns an
// Instruction; only the ledger mutates state.
package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/regime"
	"github.com/rustyeddy/optsim/risk"
	"github.com/rustyeddy/optsim/sim"
)

// Quoter prices a prospective leg at today's market. The driver binds it to
// the day's observation, regime and calibration.
type Quoter interface {
	Quote(kind pricing.Kind, strike float64, days int, side pricing.Side) (pricing.Result, error)
}

// Context is everything a strategy may look at on one day.
type Context struct {
	Obs         market.Observation
	Regime      regime.Regime
	RegimeReady bool
	Account     sim.AccountView
	Quoter      Quoter

	// VolGap is implied minus realized vol; only meaningful when VolGapReady.
	VolGap      float64
	VolGapReady bool
}

// Leg is one option to open. Days is the target tenor; the driver resolves
// it to a trading day.
type Leg struct {
	Kind     pricing.Kind
	Strike   float64
	Days     int
	Quantity float64 // negative = sell
}

// Instruction is a strategy's decision for the day. Spot is traded first
// (positive buys), then every leg is opened at today's execution price.
type Instruction struct {
	Spot   float64
	Legs   []Leg
	Reason string
}

func (i *Instruction) Empty() bool {
	return i == nil || (i.Spot == 0 && len(i.Legs) == 0)
}

// Strategy is the common contract of every policy variant.
type Strategy interface {
	Name() string

	// Reset clears any per-run state before a new run.
	Reset()

	// Settlement is how this strategy's expirations settle.
	Settlement() sim.SettlementMode

	// Policy is the account constraint the driver enforces before applying
	// an instruction.
	Policy() risk.Policy

	// NextSignal is called once per day after marking and settlement.
	// A nil instruction means do nothing.
	NextSignal(ctx Context) (*Instruction, error)
}

const (
	NameCSP         = "csp"
	NameWheel       = "wheel"
	NameCollar      = "collar"
	NameCoveredCall = "coveredcall"
	NameSmartWheel  = "smartwheel"
	NameBuyAndHold  = "buyhold"
)

var aliases = map[string]string{
	"cash-secured-put": NameCSP,
	"cashsecuredput":   NameCSP,
	"covered-call":     NameCoveredCall,
	"cc":               NameCoveredCall,
	"smart-wheel":      NameSmartWheel,
	"chameleon":        NameSmartWheel,
	"buy-and-hold":     NameBuyAndHold,
	"hold":             NameBuyAndHold,
}

// Canonical maps a strategy name or alias to its registry name.
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// ByName builds a strategy from its name and configuration.
func ByName(name string, cfg Config) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch Canonical(name) {
	case NameCSP:
		return NewCashSecuredPut(cfg), nil
	case NameWheel:
		return NewWheel(cfg), nil
	case NameCollar:
		return NewCollar(cfg), nil
	case NameCoveredCall:
		return NewCoveredCall(cfg), nil
	case NameSmartWheel:
		return NewSmartWheel(cfg), nil
	case NameBuyAndHold:
		return NewBuyAndHold(cfg), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
}

// Names lists the registered strategies.
func Names() []string {
	n := []string{NameCSP, NameWheel, NameCollar, NameCoveredCall, NameSmartWheel, NameBuyAndHold}
	sort.Strings(n)
	return n
}
