package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerWarmupSkip(t *testing.T) {
	t.Parallel()

	cfg := DefaultPercentile()
	cfg.MinHistory = 3
	cfg.Window = 10
	tr := NewTracker(newClassifier(t, cfg))

	for i := 0; i < 3; i++ {
		r, err := tr.Observe(0.5)
		require.NoError(t, err)
		assert.False(t, r.Ready, "day %d should still be warming up", i)
	}

	r, err := tr.Observe(0.9)
	require.NoError(t, err)
	assert.True(t, r.Ready)
	assert.False(t, r.Warmup)
	assert.Equal(t, High, r.Regime)
}

func TestTrackerWarmupNeutral(t *testing.T) {
	t.Parallel()

	cfg := DefaultPercentile()
	cfg.MinHistory = 2
	cfg.Window = 10
	cfg.Warmup = WarmupNeutral
	cfg.Neutral = Mid
	tr := NewTracker(newClassifier(t, cfg))

	r, err := tr.Observe(0.1)
	require.NoError(t, err)
	assert.True(t, r.Ready)
	assert.True(t, r.Warmup)
	assert.Equal(t, Mid, r.Regime)
}

func TestTrackerIsCausal(t *testing.T) {
	t.Parallel()

	cfg := DefaultPercentile()
	cfg.MinHistory = 1
	cfg.Window = 5
	tr := NewTracker(newClassifier(t, cfg))

	_, err := tr.Observe(0.5)
	require.NoError(t, err)

	// today's value must not be in the window it is ranked against
	r, err := tr.Observe(0.4)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r.Input, 1e-12)
	assert.Equal(t, Low, r.Regime)
}

func TestTrackerWindowCap(t *testing.T) {
	t.Parallel()

	cfg := DefaultPercentile()
	cfg.MinHistory = 1
	cfg.Window = 4
	tr := NewTracker(newClassifier(t, cfg))

	for i := 0; i < 20; i++ {
		_, err := tr.Observe(float64(i) / 20)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, tr.Len())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerHysteresis(t *testing.T) {
	t.Parallel()

	cfg := DefaultAbsolute()
	cfg.Boundaries = []float64{0.5, 0.7}
	cfg.Hysteresis = 0.05
	tr := NewTracker(newClassifier(t, cfg))

	var sw SwitchCounter
	tr.OnSwitch = sw.Record

	steps := []struct {
		iv   float64
		want Regime
	}{
		{0.60, Mid},
		{0.72, High}, // away from neutral: the boundary is enough
		{0.68, High}, // back toward neutral needs < 0.65
		{0.67, High},
		{0.64, Mid},
		{0.48, Low}, // away from neutral again
		{0.53, Low}, // needs >= 0.55
		{0.56, Mid},
		{0.69, Mid},
	}

	for i, s := range steps {
		r, err := tr.Observe(s.iv)
		require.NoError(t, err)
		assert.Equal(t, s.want, r.Regime, "step %d iv=%v", i, s.iv)
	}

	assert.Equal(t, 1, sw.Count(Mid, High))
	assert.Equal(t, 1, sw.Count(High, Mid))
	assert.Equal(t, 1, sw.Count(Mid, Low))
	assert.Equal(t, 1, sw.Count(Low, Mid))
	assert.Equal(t, 4, sw.Total())
}

func TestTrackerHysteresisEntersAtBoundary(t *testing.T) {
	t.Parallel()

	cfg := DefaultAbsolute()
	cfg.Boundaries = []float64{0.5, 0.7}
	cfg.Hysteresis = 0.05
	tr := NewTracker(newClassifier(t, cfg))

	// from low the first step up is toward neutral and is held
	want := []Regime{Low, Low, Mid, High, High, Mid}
	for i, iv := range []float64{0.40, 0.52, 0.60, 0.72, 0.68, 0.64} {
		r, err := tr.Observe(iv)
		require.NoError(t, err)
		assert.Equal(t, want[i], r.Regime, "step %d iv=%v", i, iv)
	}
}

func TestTrackerHysteresisAboveHigh(t *testing.T) {
	t.Parallel()

	cfg := DefaultAbsolute() // 0.50/0.70/0.90, neutral Mid
	cfg.Hysteresis = 0.05
	tr := NewTracker(newClassifier(t, cfg))

	want := []Regime{High, Extreme, Extreme, High, High, Mid}
	for i, iv := range []float64{0.75, 0.91, 0.86, 0.84, 0.66, 0.64} {
		r, err := tr.Observe(iv)
		require.NoError(t, err)
		assert.Equal(t, want[i], r.Regime, "step %d iv=%v", i, iv)
	}
}

func TestTrackerWithoutHysteresisFollowsLevel(t *testing.T) {
	t.Parallel()

	tr := NewTracker(newClassifier(t, DefaultAbsolute()))
	for _, iv := range []float64{0.45, 0.72, 0.49, 0.95} {
		r, err := tr.Observe(iv)
		require.NoError(t, err)
		want, _ := tr.c.Classify(nil, iv)
		assert.Equal(t, want, r.Regime)
	}
}
