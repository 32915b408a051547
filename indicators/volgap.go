package indicators

import (
	"fmt"

	"github.com/rustyeddy/optsim/market"
)

// VolGap is implied minus realized volatility, both as decimals. A negative
// gap means options are cheap relative to how the underlying has moved.
//
// With smoothing > 1 the gap is passed through an EMA of that period.
type VolGap struct {
	rv     *RealizedVol
	smooth *ExponentialMA
	gap    float64
	ready  bool
}

func NewVolGap(window, smoothing int) *VolGap {
	g := &VolGap{rv: NewRealizedVol(window)}
	if smoothing > 1 {
		g.smooth = NewEMA(smoothing, IV)
	}
	return g
}

func (g *VolGap) Name() string {
	if g.smooth != nil {
		return fmt.Sprintf("VolGap(%d,%d)", g.rv.period, g.smooth.period)
	}
	return fmt.Sprintf("VolGap(%d)", g.rv.period)
}

func (g *VolGap) Warmup() int {
	w := g.rv.Warmup()
	if g.smooth != nil {
		w += g.smooth.Warmup() - 1
	}
	return w
}

func (g *VolGap) Reset() {
	g.rv.Reset()
	if g.smooth != nil {
		g.smooth.Reset()
	}
	g.gap = 0
	g.ready = false
}

func (g *VolGap) Update(o market.Observation) {
	g.rv.Update(o)
	if !g.rv.Ready() {
		return
	}
	gap := o.Sigma() - g.rv.Value()
	if g.smooth == nil {
		g.gap, g.ready = gap, true
		return
	}
	g.smooth.Add(gap)
	g.gap, g.ready = g.smooth.Value(), g.smooth.Ready()
}

func (g *VolGap) Ready() bool { return g.ready }

func (g *VolGap) Value() float64 {
	if !g.ready {
		return 0
	}
	return g.gap
}

// Realized exposes the underlying realized-vol reading.
func (g *VolGap) Realized() *RealizedVol { return g.rv }
