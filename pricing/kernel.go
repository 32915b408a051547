package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/optsim/regime"
)

var ErrInvalidRequest = errors.New("invalid pricing request")

// Mode selects the kernel's capability level.
type Mode string

const (
	// ModeFormula prices from the closed form plus regime-level skew/spread.
	ModeFormula Mode = "formula"
	// ModeHybrid consults the quote table first and falls back to ModeFormula.
	ModeHybrid Mode = "hybrid"
)

// Source says where the skew and spread of a Result came from.
type Source string

const (
	SourceLookup   Source = "lookup"
	SourceFallback Source = "fallback"
	SourceExpired  Source = "expired"
)

// Request is one pricing question.
type Request struct {
	Spot   float64
	Strike float64
	Days   float64 // calendar days to expiration
	Vol    float64 // decimal
	Rate   float64
	Kind   Kind
	Side   Side
	Regime regime.Regime
}

// Result is a priced request. Prices are per unit of underlying.
type Result struct {
	Theoretical    float64 // flat-vol closed form
	Mid            float64 // after skew
	Execution      float64 // after half the spread against the trader
	Skew           float64 // vol points applied
	SkewAdjustment float64 // Mid - Theoretical
	Spread         float64 // full spread fraction applied
	SpreadCost     float64 // |Execution - Mid|
	Moneyness      float64
	Source         Source
}

// Kernel turns a Request into a realistic execution price. It only holds
// configuration, so one Kernel may be shared between runs.
type Kernel struct {
	Mode Mode

	// Lookup tolerances: a quote matches when both distances are within them.
	MoneynessTolerance float64
	TenorTolerance     float64 // days

	// Strikes with ATMLow <= K/S <= ATMHigh use the ATM spread.
	ATMLow  float64
	ATMHigh float64
}

func DefaultKernel() *Kernel {
	return &Kernel{
		Mode:               ModeHybrid,
		MoneynessTolerance: 0.025,
		TenorTolerance:     7,
		ATMLow:             0.98,
		ATMHigh:            1.02,
	}
}

func (k *Kernel) Validate() error {
	switch k.Mode {
	case ModeFormula, ModeHybrid:
	default:
		return fmt.Errorf("pricing.mode must be 'formula' or 'hybrid'")
	}
	if k.MoneynessTolerance < 0 || k.TenorTolerance < 0 {
		return fmt.Errorf("pricing tolerances must be non-negative")
	}
	if k.ATMLow <= 0 || k.ATMHigh < k.ATMLow {
		return fmt.Errorf("pricing.atm_low must be positive and <= pricing.atm_high")
	}
	return nil
}

// Price quotes req under cal. A request with zero days left returns the
// zero Result: expiring positions are settled at intrinsic by the ledger.
func (k *Kernel) Price(req Request, cal *Calibration) (Result, error) {
	if req.Spot <= 0 || req.Strike <= 0 || req.Days < 0 {
		return Result{}, fmt.Errorf("%w: spot=%g strike=%g days=%g", ErrInvalidRequest, req.Spot, req.Strike, req.Days)
	}
	if req.Vol < 0 || math.IsNaN(req.Vol) {
		return Result{}, fmt.Errorf("%w: vol=%g", ErrInvalidRequest, req.Vol)
	}
	if req.Days == 0 {
		return Result{Source: SourceExpired}, nil
	}
	if cal == nil {
		return Result{}, fmt.Errorf("%w: calibration is required", ErrInvalidRequest)
	}

	m := req.Strike / req.Spot
	res := Result{Moneyness: m}

	q, hit := k.lookup(req, m, cal)
	if hit {
		res.Source = SourceLookup
		res.Skew = q.Skew
		res.Spread = q.Spread
	} else {
		p, ok := cal.Params(req.Regime)
		if !ok {
			return Result{}, fmt.Errorf("%w: no calibration for regime %s", ErrInvalidRequest, req.Regime)
		}
		res.Source = SourceFallback
		res.Skew = k.regimeSkew(req, m, p, cal.DynamicSkew)
		res.Spread = k.regimeSpread(m, p)
	}

	T := Years(req.Days)
	res.Theoretical = BlackScholes(req.Kind, req.Spot, req.Strike, T, req.Rate, req.Vol)
	res.Mid = res.Theoretical
	if res.Skew != 0 {
		res.Mid = BlackScholes(req.Kind, req.Spot, req.Strike, T, req.Rate, math.Max(req.Vol+res.Skew, 0))
	}
	res.SkewAdjustment = res.Mid - res.Theoretical

	half := res.Spread / 2
	if req.Side == Sell {
		res.Execution = math.Max(res.Mid*(1-half), 0)
	} else {
		res.Execution = res.Mid * (1 + half)
	}
	res.SpreadCost = math.Abs(res.Execution - res.Mid)

	return res, nil
}

// lookup finds the nearest table quote within tolerance, measured as the
// larger of the two tolerance-normalized distances.
func (k *Kernel) lookup(req Request, m float64, cal *Calibration) (Quote, bool) {
	if k.Mode != ModeHybrid || len(cal.Quotes) == 0 {
		return Quote{}, false
	}

	best := math.Inf(1)
	var found Quote
	for _, q := range cal.Quotes {
		if q.Regime != req.Regime || q.Kind != req.Kind {
			continue
		}
		dm, ok := within(math.Abs(q.Moneyness-m), k.MoneynessTolerance)
		if !ok {
			continue
		}
		dt, ok := within(math.Abs(q.Days-req.Days), k.TenorTolerance)
		if !ok {
			continue
		}
		if d := math.Max(dm, dt); d < best {
			best = d
			found = q
		}
	}
	return found, !math.IsInf(best, 1)
}

func within(dist, tol float64) (float64, bool) {
	if tol == 0 {
		return 0, dist == 0
	}
	if dist > tol {
		return 0, false
	}
	return dist / tol, true
}

// regimeSkew richens out-of-the-money puts only.
func (k *Kernel) regimeSkew(req Request, m float64, p RegimeParameters, dynamic bool) float64 {
	if req.Kind != Put || m >= k.ATMLow {
		return 0
	}
	if dynamic {
		return DynamicSkew(req.Vol)
	}
	return p.SkewPut
}

func (k *Kernel) regimeSpread(m float64, p RegimeParameters) float64 {
	if m >= k.ATMLow && m <= k.ATMHigh {
		return p.SpreadATM
	}
	return p.SpreadOTM
}
