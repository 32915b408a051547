package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pricing"
)

// DefaultRealizedWindow is the look-back, in daily returns, of RealizedVol.
const DefaultRealizedWindow = 30

// RealizedVol is the annualized sample standard deviation of daily log
// returns of spot over a rolling window. Crypto trades every day, so
// annualization uses 365 days.
type RealizedVol struct {
	period  int
	returns []float64
	last    float64
}

func NewRealizedVol(period int) *RealizedVol {
	if period < 2 {
		period = DefaultRealizedWindow
	}
	return &RealizedVol{
		period:  period,
		returns: make([]float64, 0, period),
	}
}

func (r *RealizedVol) Name() string {
	return fmt.Sprintf("RV(%d)", r.period)
}

// Warmup counts observations: period returns need period+1 prices.
func (r *RealizedVol) Warmup() int {
	return r.period + 1
}

func (r *RealizedVol) Reset() {
	r.returns = r.returns[:0]
	r.last = 0
}

func (r *RealizedVol) Update(o market.Observation) {
	if o.Spot <= 0 {
		return
	}
	if r.last > 0 {
		r.returns = append(r.returns, math.Log(o.Spot/r.last))
		if len(r.returns) > r.period {
			r.returns = r.returns[1:]
		}
	}
	r.last = o.Spot
}

func (r *RealizedVol) Ready() bool {
	return len(r.returns) >= r.period
}

func (r *RealizedVol) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return stat.StdDev(r.returns, nil) * math.Sqrt(pricing.DaysPerYear)
}
