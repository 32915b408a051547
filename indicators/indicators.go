// Package indicators provides streaming volatility indicators over daily
// observations.
package indicators

import "github.com/rustyeddy/optsim/market"

// Indicator computes a single streaming value from daily observations.
// It is deterministic and never looks past the last observation it was fed.
type Indicator interface {
	// Name returns a stable identifier like "RV(30)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next observation.
	Update(o market.Observation)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// Field selects which observation column an indicator reads.
type Field int

const (
	Spot Field = iota
	IV
)

func (f Field) of(o market.Observation) float64 {
	if f == IV {
		return o.Sigma()
	}
	return o.Spot
}
