package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/optsim/backtest"
	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/journal"
	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/metrics"
)

// loadConfig reads --config, or falls back to the defaults.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", cfgFile).Msg("config loaded")
	return cfg, nil
}

// loadSeries reads --data, converting iv from the configured unit.
func loadSeries(cfg *config.Config) (*market.Series, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("--data (or $%s) is required", envData)
	}
	s, err := market.LoadCSVFile(dataPath, cfg.Backtest.IVUnit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", dataPath, err)
	}
	log.Info().
		Str("path", dataPath).
		Int("rows", s.Len()).
		Str("start", market.FormatDay(s.First().Date)).
		Str("end", market.FormatDay(s.Last().Date)).
		Str("iv_unit", string(cfg.Backtest.IVUnit)).
		Msg("observations loaded")
	return s, nil
}

// openJournal opens the journal named by the config. --db forces SQLite
// and csvDir forces CSV files in that directory. A nil journal means none.
func openJournal(cfg config.JournalConfig, csvDir string) (journal.Journal, error) {
	switch {
	case csvDir != "":
		cfg = config.JournalConfig{
			Type:       "csv",
			EventsFile: filepath.Join(csvDir, "events.csv"),
			EquityFile: filepath.Join(csvDir, "equity.csv"),
		}
	case dbPath != "":
		cfg = config.JournalConfig{Type: "sqlite", DBPath: dbPath}
	}

	switch cfg.Type {
	case "sqlite":
		j, err := journal.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	case "csv":
		j, err := journal.NewCSV(cfg.EventsFile, cfg.EquityFile)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil
	}
	return nil, nil
}

// newSetup turns the config into what every run shares.
func newSetup(cfg *config.Config, j journal.Journal, m *metrics.Registry) (backtest.Setup, error) {
	cal, err := cfg.Pricing.LoadCalibration()
	if err != nil {
		return backtest.Setup{}, err
	}
	logger := log.Logger

	return backtest.Setup{
		Cash:        cfg.Account.Cash,
		SpotQty:     cfg.Account.SpotQty,
		Collision:   cfg.Account.Collision,
		Regime:      cfg.Regime,
		Kernel:      cfg.Pricing.Kernel(),
		Calibration: cal,
		Journal:     j,
		Options: backtest.Options{
			ExpiryMatch:       cfg.Backtest.ExpiryMatch,
			Logger:            &logger,
			Metrics:           m,
			RealizedVolWindow: cfg.Strategy.Smart.VolGapWindow,
			VolGapSmoothing:   cfg.Strategy.Smart.VolGapSmoothing,
			RiskFree:          cfg.Backtest.RiskFree,
			Dataset:           filepath.Base(dataPath),
		},
	}, nil
}

func writeMetrics(m *metrics.Registry, path string) error {
	if path == "" {
		return nil
	}
	if err := m.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
