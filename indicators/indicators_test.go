package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/optsim/market"
)

func series(spots []float64, iv float64) []market.Observation {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Observation, len(spots))
	for i, s := range spots {
		out[i] = market.Observation{Date: base.AddDate(0, 0, i), Spot: s, IV: iv}
	}
	return out
}

func TestRealizedVolStreaming(t *testing.T) {
	t.Parallel()

	t.Run("warmup", func(t *testing.T) {
		t.Parallel()

		rv := NewRealizedVol(4)
		assert.Equal(t, "RV(4)", rv.Name())
		assert.Equal(t, 5, rv.Warmup())

		for i, o := range series([]float64{100, 110, 100, 110, 100}, 0.5) {
			assert.False(t, rv.Ready(), "ready after %d updates", i)
			assert.Equal(t, 0.0, rv.Value())
			rv.Update(o)
		}
		assert.True(t, rv.Ready())
	})

	t.Run("alternating_returns", func(t *testing.T) {
		t.Parallel()

		rv := NewRealizedVol(4)
		for _, o := range series([]float64{100, 110, 100, 110, 100}, 0.5) {
			rv.Update(o)
		}
		a := math.Log(1.1)
		// returns a,-a,a,-a: sample variance 4a²/3
		want := 2 * a / math.Sqrt(3) * math.Sqrt(365)
		assert.InDelta(t, want, rv.Value(), 1e-12)
	})

	t.Run("constant_growth_has_no_vol", func(t *testing.T) {
		t.Parallel()

		rv := NewRealizedVol(5)
		s := 100.0
		for i := 0; i < 20; i++ {
			rv.Update(market.Observation{Spot: s})
			s *= 1.01
		}
		assert.True(t, rv.Ready())
		assert.InDelta(t, 0, rv.Value(), 1e-9)
	})

	t.Run("window_rolls", func(t *testing.T) {
		t.Parallel()

		rv := NewRealizedVol(3)
		spots := []float64{100, 150, 60, 100, 101, 102.01, 103.0301}
		for _, o := range series(spots, 0.5) {
			rv.Update(o)
		}
		// only the last three 1% returns remain
		assert.InDelta(t, 0, rv.Value(), 1e-9)
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()

		rv := NewRealizedVol(2)
		for _, o := range series([]float64{100, 101, 99}, 0.5) {
			rv.Update(o)
		}
		assert.True(t, rv.Ready())
		rv.Reset()
		assert.False(t, rv.Ready())
		assert.Equal(t, 0.0, rv.Value())
	})

	t.Run("default_window", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, DefaultRealizedWindow+1, NewRealizedVol(0).Warmup())
	})
}

func TestEMAStreaming(t *testing.T) {
	t.Parallel()

	e := NewEMA(3, Spot)
	assert.Equal(t, "EMA(3)", e.Name())
	obs := series([]float64{102, 105, 106, 108, 110}, 0.5)

	e.Update(obs[0])
	e.Update(obs[1])
	assert.False(t, e.Ready())
	assert.Equal(t, 0.0, e.Value())

	e.Update(obs[2])
	assert.True(t, e.Ready())
	sma := (102.0 + 105.0 + 106.0) / 3.0
	assert.InDelta(t, sma, e.Value(), 1e-9)

	e.Update(obs[3])
	want := (108-sma)*0.5 + sma
	assert.InDelta(t, want, e.Value(), 1e-9)

	e.Reset()
	assert.False(t, e.Ready())
}

func TestEMAReadsIV(t *testing.T) {
	t.Parallel()

	e := NewEMA(1, IV)
	e.Update(market.Observation{Spot: 1, IV: 0.55})
	assert.InDelta(t, 0.55, e.Value(), 1e-12)
}

func TestVolGap(t *testing.T) {
	t.Parallel()

	t.Run("implied_above_realized", func(t *testing.T) {
		t.Parallel()

		g := NewVolGap(3, 0)
		assert.Equal(t, "VolGap(3)", g.Name())
		s := 100.0
		for i := 0; i < 3; i++ {
			g.Update(market.Observation{Spot: s, IV: 0.6})
			assert.False(t, g.Ready())
			s *= 1.02
		}
		g.Update(market.Observation{Spot: s, IV: 0.6})
		assert.True(t, g.Ready())
		assert.InDelta(t, 0.6, g.Value(), 1e-9)
		assert.InDelta(t, 0, g.Realized().Value(), 1e-9)
	})

	t.Run("implied_below_realized", func(t *testing.T) {
		t.Parallel()

		g := NewVolGap(4, 0)
		for _, o := range series([]float64{100, 110, 100, 110, 100}, 0.2) {
			g.Update(o)
		}
		assert.True(t, g.Ready())
		assert.Less(t, g.Value(), 0.0)
		assert.InDelta(t, 0.2-g.Realized().Value(), g.Value(), 1e-12)
	})

	t.Run("smoothed", func(t *testing.T) {
		t.Parallel()

		g := NewVolGap(2, 3)
		assert.Equal(t, "VolGap(2,3)", g.Name())
		assert.Equal(t, 5, g.Warmup())

		spots := []float64{100, 101, 102.01, 103.0301, 104.060401}
		for i, o := range series(spots, 0.4) {
			g.Update(o)
			assert.Equal(t, i >= 4, g.Ready(), "update %d", i)
		}
		assert.InDelta(t, 0.4, g.Value(), 1e-9)

		g.Reset()
		assert.False(t, g.Ready())
		assert.Equal(t, 0.0, g.Value())
	})
}

func TestIndicatorInterface(t *testing.T) {
	t.Parallel()

	for _, ind := range []Indicator{NewRealizedVol(10), NewEMA(5, IV), NewVolGap(10, 0)} {
		assert.NotEmpty(t, ind.Name())
		assert.Greater(t, ind.Warmup(), 0)
		assert.False(t, ind.Ready())
	}
}
