package backtest

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/strategies"
)

// Window is one slice of a rolling-window sweep.
type Window struct {
	Index  int
	Start  time.Time
	End    time.Time // exclusive
	Series *market.Series
}

// Windows cuts series into windows of windowDays calendar days, starting
// every stepDays, covering [start, start+windowDays). Windows that would
// run past the last observation are not produced, and windows with fewer
// than minPoints rows are skipped.
func Windows(s *market.Series, windowDays, stepDays, minPoints int) ([]Window, error) {
	if windowDays <= 0 || stepDays <= 0 {
		return nil, fmt.Errorf("sweep: window and step must be positive")
	}
	if s == nil || s.Len() == 0 {
		return nil, nil
	}

	first, last := s.First().Date, s.Last().Date
	var out []Window
	for start := first; ; start = market.AddDays(start, stepDays) {
		end := market.AddDays(start, windowDays)
		if end.After(last) {
			break
		}
		w := s.Slice(start, market.AddDays(end, -1))
		if w.Len() < minPoints || w.Len() == 0 {
			continue
		}
		out = append(out, Window{Index: len(out), Start: start, End: end, Series: w})
	}
	return out, nil
}

// SweepSpec describes a rolling robustness sweep.
type SweepSpec struct {
	Series     *market.Series
	WindowDays int
	StepDays   int
	MinPoints  int

	// Strategies are built fresh for every run.
	Strategies []string
	Config     strategies.Config

	Setup   Setup
	Workers int

	// OnDone is called after each run, from the worker goroutine.
	OnDone func(SweepResult)
}

// SweepResult is one (window, strategy) run.
type SweepResult struct {
	Window   Window
	Strategy string
	Result   Result
	Err      error
}

// Runs returns how many runs spec will execute.
func (spec SweepSpec) Runs() (int, error) {
	ws, err := Windows(spec.Series, spec.WindowDays, spec.StepDays, spec.MinPoints)
	return len(ws) * len(spec.Strategies), err
}

// Sweep runs every strategy over every window in parallel. Results are
// ordered by window, then by the order of spec.Strategies, whatever the
// worker count. A failing run is reported in its SweepResult and does not
// stop the others; only cancellation aborts the sweep.
func Sweep(ctx context.Context, spec SweepSpec) ([]SweepResult, error) {
	if len(spec.Strategies) == 0 {
		return nil, fmt.Errorf("sweep: at least one strategy is required")
	}
	for _, name := range spec.Strategies {
		if _, err := strategies.ByName(name, spec.Config); err != nil {
			return nil, err
		}
	}
	ws, err := Windows(spec.Series, spec.WindowDays, spec.StepDays, spec.MinPoints)
	if err != nil {
		return nil, err
	}

	workers := spec.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]SweepResult, len(ws)*len(spec.Strategies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for wi, w := range ws {
		for si, name := range spec.Strategies {
			slot := wi*len(spec.Strategies) + si
			w, name := w, name
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				sr := SweepResult{Window: w, Strategy: strategies.Canonical(name)}
				sr.Result, sr.Err = runOne(gctx, spec, w, name)
				if sr.Err != nil && gctx.Err() != nil {
					return gctx.Err()
				}
				out[slot] = sr
				if spec.OnDone != nil {
					spec.OnDone(sr)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func runOne(ctx context.Context, spec SweepSpec, w Window, name string) (Result, error) {
	strat, err := strategies.ByName(name, spec.Config)
	if err != nil {
		return Result{}, err
	}
	r, err := spec.Setup.NewRunner(w.Series, strat)
	if err != nil {
		return Result{}, err
	}
	return r.Run(ctx)
}

// StrategySummary aggregates a strategy's runs across windows.
type StrategySummary struct {
	Strategy      string
	Runs          int
	Failed        int
	MeanReturn    float64
	WorstReturn   float64
	WinRate       float64
	MeanSharpe    float64
	MinSharpe     float64
	MeanDrawdown  float64
	WorstDrawdown float64
}

// SummarizeSweep groups results per strategy, sorted by name.
func SummarizeSweep(results []SweepResult) []StrategySummary {
	by := map[string]*StrategySummary{}
	var names []string
	for _, sr := range results {
		s, ok := by[sr.Strategy]
		if !ok {
			s = &StrategySummary{
				Strategy:    sr.Strategy,
				WorstReturn: math.Inf(1),
				MinSharpe:   math.Inf(1),
			}
			by[sr.Strategy] = s
			names = append(names, sr.Strategy)
		}
		if sr.Err != nil {
			s.Failed++
			continue
		}
		r := sr.Result
		s.Runs++
		s.MeanReturn += r.TotalReturn
		s.MeanSharpe += r.Sharpe
		s.MeanDrawdown += r.MaxDrawdown
		s.WorstReturn = math.Min(s.WorstReturn, r.TotalReturn)
		s.MinSharpe = math.Min(s.MinSharpe, r.Sharpe)
		s.WorstDrawdown = math.Max(s.WorstDrawdown, r.MaxDrawdown)
		if r.TotalReturn > 0 {
			s.WinRate++
		}
	}

	sort.Strings(names)
	out := make([]StrategySummary, 0, len(names))
	for _, n := range names {
		s := by[n]
		if s.Runs > 0 {
			k := float64(s.Runs)
			s.MeanReturn /= k
			s.MeanSharpe /= k
			s.MeanDrawdown /= k
			s.WinRate /= k
		} else {
			s.WorstReturn, s.MinSharpe = 0, 0
		}
		out = append(out, *s)
	}
	return out
}

// PrintSummary writes the sweep stability table.
func PrintSummary(w io.Writer, windows int, sums []StrategySummary) {
	fmt.Fprintf(w, "\nRolling window stability (%d windows)\n\n", windows)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Strategy\tRuns\tMean Return\tWorst Return\tWin Rate\tMean Sharpe\tMin Sharpe\tMean MaxDD\tWorst MaxDD")
	fmt.Fprintln(tw, "--------\t----\t-----------\t------------\t--------\t-----------\t----------\t----------\t-----------")
	for _, s := range sums {
		runs := fmt.Sprintf("%d", s.Runs)
		if s.Failed > 0 {
			runs = fmt.Sprintf("%d (%d failed)", s.Runs, s.Failed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\t%.2f%%\t%.1f%%\t%.2f\t%.2f\t%.2f%%\t%.2f%%\n",
			s.Strategy, runs,
			100*s.MeanReturn, 100*s.WorstReturn, 100*s.WinRate,
			s.MeanSharpe, s.MinSharpe,
			100*s.MeanDrawdown, 100*s.WorstDrawdown)
	}
	tw.Flush()
}
