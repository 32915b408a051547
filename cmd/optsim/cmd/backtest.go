package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/optsim/backtest"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/metrics"
	"github.com/rustyeddy/optsim/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one strategy over an observation series",
	Long: `Backtest replays daily spot and implied-vol observations through a strategy.

Supported strategies:
  - csp: sell cash-secured puts
  - wheel: puts until assigned, then covered calls until called away
  - collar: hold spot with a protective put and a short call
  - coveredcall: buy spot once and keep calls written against it
  - smartwheel (chameleon): collar or puts depending on the vol regime
  - buyhold: buy spot once and hold

Example:
  optsim backtest --data data/btc.csv --strategy wheel --db runs.sqlite`,
	RunE: runBacktest,
}

var (
	btStrategy string
	btCSVDir   string
	btMetrics  string
	btEvents   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name (overrides strategy.name)")
	backtestCmd.Flags().StringVar(&btCSVDir, "csv-dir", "", "write events.csv and equity.csv to this directory instead of SQLite")
	backtestCmd.Flags().StringVar(&btMetrics, "metrics", "", "write Prometheus metrics to this textfile")
	backtestCmd.Flags().BoolVar(&btEvents, "events", false, "print the trade log after the report")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if btStrategy != "" {
		cfg.Strategy.Name = btStrategy
	}
	if btMetrics == "" {
		btMetrics = cfg.Metrics.Textfile
	}

	series, err := loadSeries(cfg)
	if err != nil {
		return err
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Config)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	j, err := openJournal(cfg.Journal, btCSVDir)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	m := metrics.New()
	s, err := newSetup(cfg, j, m)
	if err != nil {
		return err
	}
	r, err := s.NewRunner(series, strat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	backtest.PrintResult(os.Stdout, res)
	if btEvents {
		printEvents(os.Stdout, res)
	}

	if err := writeMetrics(m, btMetrics); err != nil {
		return err
	}
	log.Debug().Str("run_id", res.RunID).Msg("done")
	return nil
}

func printEvents(w io.Writer, res backtest.Result) {
	fmt.Fprintf(w, "\nTrade log (%d events)\n\n", len(res.Events))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tType\tInstrument\tStrike\tExpiration\tQty\tPrice\tCash\tReason")
	for _, ev := range res.Events {
		exp := "-"
		if !ev.Expiration.IsZero() {
			exp = market.FormatDay(ev.Expiration)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%.4f\t%.2f\t%.2f\t%s\n",
			market.FormatDay(ev.Date), ev.Type, ev.Instrument, ev.Strike, exp,
			ev.Quantity, ev.Price, ev.CashEffect, ev.Reason)
	}
	tw.Flush()
}
