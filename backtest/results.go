package backtest

import (
	"fmt"
	"io"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/sim"
)

// Performance summarizes an equity curve. Ratios are annualized over 365
// trading days; drawdown is a positive fraction.
type Performance struct {
	TotalReturn float64
	CAGR        float64
	MaxDrawdown float64
	Sharpe      float64
	Sortino     float64
	Calmar      float64
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Strategy string
	Start    time.Time
	End      time.Time

	StartEquity float64
	FinalEquity float64
	Performance

	Trades         int
	Assignments    int
	RegimeSwitches int
	Skipped        int

	History []sim.Snapshot
	Events  []sim.Event
}

func (r *Runner) result(st runState) Result {
	h := r.Ledger.History()
	res := Result{
		RunID:          r.Ledger.RunID(),
		Strategy:       r.Strategy.Name(),
		Trades:         st.trades,
		Assignments:    st.assignments,
		RegimeSwitches: st.switches,
		Skipped:        st.skipped,
		History:        h,
		Events:         r.Ledger.Events(),
	}
	if len(h) > 0 {
		res.Start = h[0].Date
		res.End = h[len(h)-1].Date
		res.StartEquity = h[0].Equity
		res.FinalEquity = h[len(h)-1].Equity
	}
	res.Performance = ComputePerformance(h, r.Options.RiskFree)
	return res
}

func (r Result) record(dataset string) journal.RunRecord {
	return journal.RunRecord{
		RunID:       r.RunID,
		Created:     time.Now().UTC(),
		Strategy:    r.Strategy,
		Dataset:     dataset,
		Start:       r.Start,
		End:         r.End,
		StartEquity: r.StartEquity,
		FinalEquity: r.FinalEquity,
		TotalReturn: r.TotalReturn,
		MaxDrawdown: r.MaxDrawdown,
		Sharpe:      r.Sharpe,
		Trades:      r.Trades,
		Assignments: r.Assignments,
	}
}

// Equity extracts the equity curve from a history.
func Equity(h []sim.Snapshot) []float64 {
	out := make([]float64, len(h))
	for i, s := range h {
		out[i] = s.Equity
	}
	return out
}

// Returns is the simple daily return series. Days following a non-positive
// equity are dropped.
func Returns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] <= 0 {
			continue
		}
		out = append(out, equity[i]/equity[i-1]-1)
	}
	return out
}

// MaxDrawdown is the largest peak-to-trough fall, as a positive fraction.
func MaxDrawdown(equity []float64) float64 {
	var peak, mdd float64
	for i, e := range equity {
		if i == 0 || e > peak {
			peak = e
		}
		if peak > 0 {
			mdd = math.Max(mdd, (peak-e)/peak)
		}
	}
	return mdd
}

// ComputePerformance derives the summary statistics of a run's history.
func ComputePerformance(h []sim.Snapshot, riskFree float64) Performance {
	var p Performance
	if len(h) < 2 {
		return p
	}
	eq := Equity(h)
	first, last := eq[0], eq[len(eq)-1]
	if first > 0 {
		p.TotalReturn = last/first - 1
		years := float64(market.DaysBetween(h[0].Date, h[len(h)-1].Date)) / 365.25
		if years > 0 && last > 0 {
			p.CAGR = math.Pow(last/first, 1/years) - 1
		}
	}
	p.MaxDrawdown = MaxDrawdown(eq)

	rets := Returns(eq)
	if len(rets) >= 2 {
		ann := math.Sqrt(pricing.DaysPerYear)
		mean, sd := stat.MeanStdDev(rets, nil)
		excess := mean - riskFree/pricing.DaysPerYear
		if sd > 0 {
			p.Sharpe = excess / sd * ann
		}

		var down []float64
		for _, r := range rets {
			if r < 0 {
				down = append(down, r)
			}
		}
		if len(down) >= 2 {
			if dsd := stat.StdDev(down, nil); dsd > 0 {
				p.Sortino = excess / dsd * ann
			}
		}
	}
	if p.MaxDrawdown > 0 {
		p.Calmar = p.CAGR / p.MaxDrawdown
	}
	return p
}

// PrintResult writes a human-readable run report.
func PrintResult(w io.Writer, r Result) {
	fmt.Fprintf(w, "\nBacktest Complete!\n")
	fmt.Fprintf(w, "  Run:          %s\n", r.RunID)
	fmt.Fprintf(w, "  Strategy:     %s\n", r.Strategy)
	fmt.Fprintf(w, "  Period:       %s to %s (%d days)\n",
		market.FormatDay(r.Start), market.FormatDay(r.End), market.DaysBetween(r.Start, r.End))
	fmt.Fprintf(w, "  Start Equity: $%.2f\n", r.StartEquity)
	fmt.Fprintf(w, "  Final Equity: $%.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "  Return:       %.2f%% (CAGR %.2f%%)\n", 100*r.TotalReturn, 100*r.CAGR)
	fmt.Fprintf(w, "  Max Drawdown: %.2f%%\n", 100*r.MaxDrawdown)
	fmt.Fprintf(w, "  Sharpe:       %.2f\n", r.Sharpe)
	fmt.Fprintf(w, "  Sortino:      %.2f\n", r.Sortino)
	fmt.Fprintf(w, "  Calmar:       %.2f\n", r.Calmar)
	fmt.Fprintf(w, "  Trades:       %d (assigned %d, skipped %d)\n", r.Trades, r.Assignments, r.Skipped)
	fmt.Fprintf(w, "  Regime Flips: %d\n", r.RegimeSwitches)
}
