package backtest

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/strategies"
)

func TestWindows(t *testing.T) {
	t.Parallel()

	series := makeSeries(t, 100, flatSpot(100, 0.5))

	tests := []struct {
		name      string
		window    int
		step      int
		minPoints int
		want      int
		rows      int
	}{
		{"rolling", 30, 10, 0, 7, 30},
		{"non overlapping", 25, 25, 0, 3, 25},
		{"too few points", 30, 10, 31, 0, 0},
		{"window longer than series", 120, 10, 0, 0, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ws, err := Windows(series, tt.window, tt.step, tt.minPoints)
			require.NoError(t, err)
			require.Len(t, ws, tt.want)
			for i, w := range ws {
				assert.Equal(t, i, w.Index)
				assert.Equal(t, tt.rows, w.Series.Len())
				assert.True(t, w.Series.First().Date.Equal(w.Start))
				assert.True(t, w.Series.Last().Date.Before(w.End))
				assert.Equal(t, tt.window, market.DaysBetween(w.Start, w.End))
			}
		})
	}

	_, err := Windows(series, 0, 10, 0)
	assert.Error(t, err)
	ws, err := Windows(nil, 30, 10, 0)
	assert.NoError(t, err)
	assert.Empty(t, ws)
}

func sweepSpec(t *testing.T, workers int) SweepSpec {
	t.Helper()
	return SweepSpec{
		Series:     makeSeries(t, 200, wavy),
		WindowDays: 90,
		StepDays:   30,
		Strategies: []string{"csp", "collar", "chameleon"},
		Config:     strategies.DefaultConfig(),
		Setup:      testSetup(),
		Workers:    workers,
	}
}

func TestSweepIsDeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	var done atomic.Int32
	serial := sweepSpec(t, 1)
	parallel := sweepSpec(t, 4)
	parallel.OnDone = func(SweepResult) { done.Add(1) }

	n, err := parallel.Runs()
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	a, err := Sweep(context.Background(), serial)
	require.NoError(t, err)
	b, err := Sweep(context.Background(), parallel)
	require.NoError(t, err)

	require.Len(t, a, n)
	require.Len(t, b, n)
	assert.Equal(t, int32(n), done.Load())

	for i := range a {
		require.NoError(t, a[i].Err)
		require.NoError(t, b[i].Err)
		assert.Equal(t, a[i].Strategy, b[i].Strategy)
		assert.Equal(t, a[i].Window.Index, b[i].Window.Index)
		assert.Equal(t, a[i].Result.FinalEquity, b[i].Result.FinalEquity, "slot %d", i)
		assert.Equal(t, a[i].Result.Trades, b[i].Result.Trades, "slot %d", i)
	}

	// ordered by window, then by the requested strategy order
	assert.Equal(t, "csp", a[0].Strategy)
	assert.Equal(t, "collar", a[1].Strategy)
	assert.Equal(t, "smartwheel", a[2].Strategy)
	assert.Equal(t, 1, a[3].Window.Index)
}

func TestSweepRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	spec := sweepSpec(t, 2)
	spec.Strategies = []string{"csp", "straddle"}
	_, err := Sweep(context.Background(), spec)
	assert.Error(t, err)

	spec.Strategies = nil
	_, err = Sweep(context.Background(), spec)
	assert.Error(t, err)
}

func TestSweepKeepsFailedRuns(t *testing.T) {
	t.Parallel()

	spec := sweepSpec(t, 2)
	spec.Setup.Kernel = nil

	results, err := Sweep(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, results, 12)
	for _, r := range results {
		assert.ErrorContains(t, r.Err, "Kernel is required")
	}

	sums := SummarizeSweep(results)
	require.Len(t, sums, 3)
	for _, s := range sums {
		assert.Equal(t, 0, s.Runs)
		assert.Equal(t, 4, s.Failed)
		assert.Zero(t, s.WorstReturn)
	}
}

func TestSweepHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sweep(ctx, sweepSpec(t, 2))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestSummarizeSweep(t *testing.T) {
	t.Parallel()

	res := func(name string, ret, sharpe, dd float64) SweepResult {
		r := Result{}
		r.TotalReturn, r.Sharpe, r.MaxDrawdown = ret, sharpe, dd
		return SweepResult{Strategy: name, Result: r}
	}
	results := []SweepResult{
		res("wheel", 0.10, 1.0, 0.05),
		res("csp", -0.02, -0.5, 0.10),
		res("wheel", -0.04, 0.2, 0.15),
		res("csp", 0.06, 1.5, 0.02),
		{Strategy: "csp", Err: errors.New("boom")},
	}

	sums := SummarizeSweep(results)
	require.Len(t, sums, 2)

	csp, wheel := sums[0], sums[1]
	assert.Equal(t, "csp", csp.Strategy)
	assert.Equal(t, 2, csp.Runs)
	assert.Equal(t, 1, csp.Failed)
	assert.InDelta(t, 0.02, csp.MeanReturn, 1e-12)
	assert.InDelta(t, -0.02, csp.WorstReturn, 1e-12)
	assert.InDelta(t, 0.5, csp.WinRate, 1e-12)
	assert.InDelta(t, 0.5, csp.MeanSharpe, 1e-12)
	assert.InDelta(t, -0.5, csp.MinSharpe, 1e-12)
	assert.InDelta(t, 0.06, csp.MeanDrawdown, 1e-12)
	assert.InDelta(t, 0.10, csp.WorstDrawdown, 1e-12)

	assert.Equal(t, "wheel", wheel.Strategy)
	assert.InDelta(t, 0.03, wheel.MeanReturn, 1e-12)
	assert.InDelta(t, 0.15, wheel.WorstDrawdown, 1e-12)

	var buf bytes.Buffer
	PrintSummary(&buf, 2, sums)
	out := buf.String()
	assert.Contains(t, out, "Rolling window stability (2 windows)")
	assert.Contains(t, out, "2 (1 failed)")
	assert.Contains(t, out, "wheel")
}
