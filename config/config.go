package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/optsim/market"
	"github.com/rustyeddy/optsim/pricing"
	"github.com/rustyeddy/optsim/regime"
	"github.com/rustyeddy/optsim/sim"
	"github.com/rustyeddy/optsim/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Regime   regime.Config  `json:"regime" yaml:"regime"`
	Pricing  PricingConfig  `json:"pricing" yaml:"pricing"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Sweep    SweepConfig    `json:"sweep" yaml:"sweep"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

// AccountConfig contains the starting account
type AccountConfig struct {
	Cash      float64             `json:"cash" yaml:"cash"`
	SpotQty   float64             `json:"spot_qty" yaml:"spot_qty"`
	Collision sim.CollisionPolicy `json:"collision" yaml:"collision"`
}

// StrategyConfig names the strategy and carries the parameters shared by
// every variant.
type StrategyConfig struct {
	Name string `json:"name" yaml:"name"`

	strategies.Config `yaml:",inline"`
}

// PricingConfig configures the kernel and where its calibration comes from.
type PricingConfig struct {
	Mode               pricing.Mode `json:"mode" yaml:"mode"`
	MoneynessTolerance float64      `json:"moneyness_tolerance" yaml:"moneyness_tolerance"`
	TenorTolerance     float64      `json:"tenor_tolerance" yaml:"tenor_tolerance"`
	ATMLow             float64      `json:"atm_low" yaml:"atm_low"`
	ATMHigh            float64      `json:"atm_high" yaml:"atm_high"`

	// Calibration is a calibration file; empty uses the built-in one.
	Calibration string `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	DynamicSkew bool   `json:"dynamic_skew,omitempty" yaml:"dynamic_skew,omitempty"`
}

// BacktestConfig contains day-loop parameters
type BacktestConfig struct {
	ExpiryMatch market.Match  `json:"expiry_match" yaml:"expiry_match"`
	RiskFree    float64       `json:"risk_free" yaml:"risk_free"` // annual, for Sharpe and Sortino
	IVUnit      market.IVUnit `json:"iv_unit" yaml:"iv_unit"`     // how the data file quotes iv
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	EventsFile string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
}

// SweepConfig contains rolling-window sweep parameters
type SweepConfig struct {
	WindowDays int      `json:"window_days" yaml:"window_days"`
	StepDays   int      `json:"step_days" yaml:"step_days"`
	MinPoints  int      `json:"min_points" yaml:"min_points"`
	Workers    int      `json:"workers" yaml:"workers"` // 0 = GOMAXPROCS
	Strategies []string `json:"strategies" yaml:"strategies"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// LoadFromFile loads configuration from a file. YAML is tried first, then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// start from the defaults so a partial file only overrides what it names
	cfg := Default()

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file, JSON for a .json extension and
// YAML otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Cash < 0 {
		return fmt.Errorf("account.cash must be non-negative")
	}
	if c.Account.SpotQty < 0 {
		return fmt.Errorf("account.spot_qty must be non-negative")
	}
	if c.Account.Cash == 0 && c.Account.SpotQty == 0 {
		return fmt.Errorf("account needs cash or spot")
	}
	switch c.Account.Collision {
	case "", sim.CollisionReject, sim.CollisionMerge:
	default:
		return fmt.Errorf("account.collision must be 'reject' or 'merge'")
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := strategies.ByName(c.Strategy.Name, c.Strategy.Config); err != nil {
		return err
	}

	if err := c.Regime.Validate(); err != nil {
		return err
	}
	if err := c.Pricing.Kernel().Validate(); err != nil {
		return err
	}

	if c.Backtest.ExpiryMatch != "" {
		if _, err := market.ParseMatch(string(c.Backtest.ExpiryMatch)); err != nil {
			return fmt.Errorf("backtest.expiry_match: %w", err)
		}
	}
	if _, err := market.ParseIVUnit(string(c.Backtest.IVUnit)); err != nil {
		return fmt.Errorf("backtest.iv_unit: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.EventsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal events_file and equity_file required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if c.Sweep.WindowDays <= 0 {
		return fmt.Errorf("sweep.window_days must be positive")
	}
	if c.Sweep.StepDays <= 0 {
		return fmt.Errorf("sweep.step_days must be positive")
	}
	if c.Sweep.MinPoints < 0 || c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.min_points and sweep.workers must be non-negative")
	}
	for _, name := range c.Sweep.Strategies {
		if _, err := strategies.ByName(name, c.Strategy.Config); err != nil {
			return fmt.Errorf("sweep.strategies: %w", err)
		}
	}
	return nil
}

// Kernel builds the pricing kernel described by the section.
func (p PricingConfig) Kernel() *pricing.Kernel {
	return &pricing.Kernel{
		Mode:               p.Mode,
		MoneynessTolerance: p.MoneynessTolerance,
		TenorTolerance:     p.TenorTolerance,
		ATMLow:             p.ATMLow,
		ATMHigh:            p.ATMHigh,
	}
}

// LoadCalibration reads the configured calibration file, or returns the
// built-in calibration when none is set.
func (p PricingConfig) LoadCalibration() (*pricing.Calibration, error) {
	var (
		cal *pricing.Calibration
		err error
	)
	if p.Calibration == "" {
		cal = pricing.DefaultCalibration()
	} else if cal, err = pricing.LoadCalibration(p.Calibration); err != nil {
		return nil, err
	}
	if p.DynamicSkew {
		cal.DynamicSkew = true
	}
	return cal, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	k := pricing.DefaultKernel()
	return &Config{
		Account: AccountConfig{
			Cash:      100000,
			Collision: sim.CollisionReject,
		},
		Strategy: StrategyConfig{
			Name:   strategies.NameWheel,
			Config: strategies.DefaultConfig(),
		},
		Regime: regime.DefaultPercentile(),
		Pricing: PricingConfig{
			Mode:               k.Mode,
			MoneynessTolerance: k.MoneynessTolerance,
			TenorTolerance:     k.TenorTolerance,
			ATMLow:             k.ATMLow,
			ATMHigh:            k.ATMHigh,
		},
		Backtest: BacktestConfig{
			ExpiryMatch: market.MatchHigher,
			IVUnit:      market.IVPercent,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./optsim.sqlite",
		},
		Sweep: SweepConfig{
			WindowDays: 365,
			StepDays:   30,
			MinPoints:  200,
			Strategies: []string{
				strategies.NameCSP,
				strategies.NameWheel,
				strategies.NameCollar,
				strategies.NameSmartWheel,
			},
		},
	}
}
