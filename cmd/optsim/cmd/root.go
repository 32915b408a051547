package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Environment variables that supply defaults for the matching flags.
const (
	envConfig = "OPTSIM_CONFIG"
	envData   = "OPTSIM_DATA"
	envDB     = "OPTSIM_DB"
)

var (
	cfgFile  string
	dataPath string
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "optsim",
	Short: "A regime-aware options-selling backtester",
	Long: `Optsim backtests premium-selling strategies on a crypto underlying.

It provides tools for:
  - Classifying volatility regimes from an implied-vol index
  - Pricing options with regime-aware skew and bid/ask spread
  - Backtesting cash-secured puts, the wheel, collars and the smart wheel
  - Rolling-window robustness sweeps across strategies
  - Managing trade journals and equity curves

Flags --config, --data and --db default to $OPTSIM_CONFIG, $OPTSIM_DATA
and $OPTSIM_DB. A .env file in the working directory is loaded first.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	pf.StringVar(&dataPath, "data", "", "observation CSV (date,spot,iv[,rate])")
	pf.StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfgFile = orEnv(cfgFile, envConfig)
	dataPath = orEnv(dataPath, envData)
	dbPath = orEnv(dbPath, envDB)

	lvl, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return nil
}

func orEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}
