package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/rustyeddy/optsim/backtest"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/metrics"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a rolling-window robustness sweep",
	Long: `Sweep runs every strategy over every rolling window of the series, in
parallel, and prints how stable each strategy's results are.

Each window is an independent backtest starting from the configured
account. Runs only share the journal, when --db is set.

Example:
  optsim sweep --data data/btc.csv --strategies csp,wheel,collar,smartwheel --window 365 --step 30`,
	RunE: runSweep,
}

var (
	swStrategies []string
	swWindow     int
	swStep       int
	swMinPoints  int
	swWorkers    int
	swMetrics    string
	swQuiet      bool
	swVerbose    bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringSliceVar(&swStrategies, "strategies", nil, "strategies to compare (overrides sweep.strategies)")
	sweepCmd.Flags().IntVar(&swWindow, "window", 0, "window length in calendar days (overrides sweep.window_days)")
	sweepCmd.Flags().IntVar(&swStep, "step", 0, "days between window starts (overrides sweep.step_days)")
	sweepCmd.Flags().IntVar(&swMinPoints, "min-points", -1, "skip windows with fewer observations (overrides sweep.min_points)")
	sweepCmd.Flags().IntVarP(&swWorkers, "workers", "w", 0, "parallel runs (default sweep.workers, then GOMAXPROCS)")
	sweepCmd.Flags().StringVar(&swMetrics, "metrics", "", "write Prometheus metrics to this textfile")
	sweepCmd.Flags().BoolVarP(&swQuiet, "quiet", "q", false, "no progress bar")
	sweepCmd.Flags().BoolVarP(&swVerbose, "verbose", "v", false, "print every window's result")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc := cfg.Sweep
	if len(swStrategies) > 0 {
		sc.Strategies = swStrategies
	}
	if swWindow > 0 {
		sc.WindowDays = swWindow
	}
	if swStep > 0 {
		sc.StepDays = swStep
	}
	if swMinPoints >= 0 {
		sc.MinPoints = swMinPoints
	}
	if swWorkers > 0 {
		sc.Workers = swWorkers
	}
	if swMetrics == "" {
		swMetrics = cfg.Metrics.Textfile
	}
	if len(sc.Strategies) == 0 {
		return fmt.Errorf("sweep: --strategies (or sweep.strategies) is required")
	}

	series, err := loadSeries(cfg)
	if err != nil {
		return err
	}

	var j journal.Journal
	if dbPath != "" {
		sq, err := journal.NewSQLite(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sq.Close()
		j = sq
	}

	m := metrics.New()
	s, err := newSetup(cfg, j, m)
	if err != nil {
		return err
	}
	// per-run start/complete lines would drown the progress bar
	quiet := log.Logger.Level(zerolog.WarnLevel)
	s.Options.Logger = &quiet

	spec := backtest.SweepSpec{
		Series:     series,
		WindowDays: sc.WindowDays,
		StepDays:   sc.StepDays,
		MinPoints:  sc.MinPoints,
		Strategies: sc.Strategies,
		Config:     cfg.Strategy.Config,
		Setup:      s,
		Workers:    sc.Workers,
	}
	total, err := spec.Runs()
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("sweep: no %d-day window fits %s..%s", sc.WindowDays,
			market.FormatDay(series.First().Date), market.FormatDay(series.Last().Date))
	}
	windows := total / len(sc.Strategies)
	log.Info().
		Int("windows", windows).
		Strs("strategies", sc.Strategies).
		Int("runs", total).
		Msg("sweep start")

	var (
		p   *mpb.Progress
		bar *mpb.Bar
	)
	if !swQuiet {
		p = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar = p.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name("Sweep"),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
			),
		)
	}
	spec.OnDone = func(sr backtest.SweepResult) {
		if bar != nil {
			bar.Increment()
		}
		if sr.Err != nil {
			log.Warn().
				Err(sr.Err).
				Str("strategy", sr.Strategy).
				Str("window", market.FormatDay(sr.Window.Start)).
				Msg("run failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := backtest.Sweep(ctx, spec)
	if p != nil {
		if err != nil {
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	if swVerbose {
		printWindows(results)
	}
	backtest.PrintSummary(os.Stdout, windows, backtest.SummarizeSweep(results))

	return writeMetrics(m, swMetrics)
}

func printWindows(results []backtest.SweepResult) {
	fmt.Println()
	for _, sr := range results {
		if sr.Err != nil {
			fmt.Printf("%s  %-12s  error: %v\n", market.FormatDay(sr.Window.Start), sr.Strategy, sr.Err)
			continue
		}
		fmt.Printf("%s  %-12s  return %7.2f%%  maxdd %6.2f%%  sharpe %5.2f\n",
			market.FormatDay(sr.Window.Start), sr.Strategy,
			100*sr.Result.TotalReturn, 100*sr.Result.MaxDrawdown, sr.Result.Sharpe)
	}
}
