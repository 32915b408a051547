package journal

import (
	"fmt"
	"io"
	"time"
)

// RunRecord mirrors the runs table: one row per finished backtest.
type RunRecord struct {
	RunID    string
	Created  time.Time
	Strategy string
	Dataset  string

	Start time.Time
	End   time.Time

	StartEquity float64
	FinalEquity float64
	TotalReturn float64
	MaxDrawdown float64
	Sharpe      float64

	Trades      int
	Assignments int
}

// FormatRunOrg renders a run as an Org-mode heading with a PROPERTIES drawer.
func FormatRunOrg(r RunRecord) string {
	return fmt.Sprintf(`** Backtest: %s (%s)
:PROPERTIES:
:RUN_ID: %s
:CREATED: %s
:DATASET: %s
:START: %s
:END: %s
:START_EQUITY: %.2f
:FINAL_EQUITY: %.2f
:RETURN: %.2f%%
:MAX_DRAWDOWN: %.2f%%
:SHARPE: %.2f
:TRADES: %d
:ASSIGNMENTS: %d
:END:
`,
		r.Strategy, shortID(r.RunID),
		r.RunID,
		r.Created.UTC().Format(time.RFC3339),
		r.Dataset,
		day(r.Start), day(r.End),
		r.StartEquity, r.FinalEquity,
		r.TotalReturn*100, r.MaxDrawdown*100, r.Sharpe,
		r.Trades, r.Assignments,
	)
}

// PrintRuns writes a one-line-per-run table.
func PrintRuns(w io.Writer, runs []RunRecord) {
	fmt.Fprintf(w, "%-30s %-12s %-10s %-10s %10s %8s %7s\n", "RUN", "STRATEGY", "START", "END", "RETURN", "MAXDD", "SHARPE")
	for _, r := range runs {
		fmt.Fprintf(w, "%-30s %-12s %-10s %-10s %9.2f%% %7.2f%% %7.2f\n",
			r.RunID, r.Strategy, day(r.Start), day(r.End), r.TotalReturn*100, r.MaxDrawdown*100, r.Sharpe)
	}
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
