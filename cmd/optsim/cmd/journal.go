package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the backtest journal",
	Long: `Query and display run, event and equity records from the SQLite journal.

Subcommands:
  runs   - List recorded runs
  run    - Show one run
  events - List the trade log of a run
  event  - Show one event
  equity - Print the equity history of a run

Examples:
  optsim journal runs --db runs.sqlite
  optsim journal events <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalEventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "List the trade log of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEvents,
}

var journalEventCmd = &cobra.Command{
	Use:   "event <event-id>",
	Short: "Show one event",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEvent,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <run-id>",
	Short: "Print the equity history of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEquity,
}

var journalOrg bool

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalEventsCmd)
	journalCmd.AddCommand(journalEventCmd)
	journalCmd.AddCommand(journalEquityCmd)

	journalRunsCmd.Flags().BoolVar(&journalOrg, "org", false, "render runs as Org-mode headings")
}

func openSQLite() (*journal.SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("--db (or $%s) is required", envDB)
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	j, err := journal.NewSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	if journalOrg {
		for _, r := range runs {
			fmt.Println(journal.FormatRunOrg(r))
		}
		return nil
	}
	journal.PrintRuns(os.Stdout, runs)
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	r, err := j.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fmt.Println(journal.FormatRunOrg(r))
	return nil
}

func runJournalEvents(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListEventsByRun(args[0])
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	fmt.Println(journal.FormatEventsOrg(recs))
	return nil
}

func runJournalEvent(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetEvent(args[0])
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	fmt.Println(journal.FormatEventOrg(rec))
	return nil
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	j, err := openSQLite()
	if err != nil {
		return err
	}
	defer j.Close()

	rows, err := j.ListEquityByRun(args[0])
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tRegime\tSpot\tCash\tSpot Qty\tOptions\tEquity\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.4f\t%.2f\t%.2f\t\n",
			market.FormatDay(r.Date), r.Regime, r.Spot, r.Cash, r.SpotQty, r.PositionValue, r.Equity)
	}
	return tw.Flush()
}
