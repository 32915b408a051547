package indicators

import (
	"fmt"

	"github.com/rustyeddy/optsim/market"
)

// ExponentialMA is a streaming exponential moving average of one field.
type ExponentialMA struct {
	period     int
	field      Field
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates an EMA of field with the given period. It is seeded with
// the simple average of the first period values.
func NewEMA(period int, field Field) *ExponentialMA {
	if period < 1 {
		period = 1
	}
	return &ExponentialMA{
		period:     period,
		field:      field,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(o market.Observation) {
	e.Add(e.field.of(o))
}

// Add feeds a raw value.
func (e *ExponentialMA) Add(v float64) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}
