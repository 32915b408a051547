package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optsim/config"
	"github.com/rustyeddy/optsim/pricing"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage backtest configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  optsim config init -o optsim.yaml
  optsim config validate -f optsim.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Generate or validate pricing calibration files",
	Long: `A calibration holds the regime-level skew and spread used by the
pricing kernel, plus an optional table of observed quotes.

Examples:
  optsim calibration init -o calibration.yaml
  optsim calibration validate -f calibration.yaml`,
}

var calibrationInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in calibration to a file",
	RunE:  runCalibrationInit,
}

var calibrationValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a calibration file",
	RunE:  runCalibrationValidate,
}

var (
	configInitOutput   string
	configValidatePath string
	calInitOutput      string
	calValidatePath    string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "optsim.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(calibrationCmd)
	calibrationCmd.AddCommand(calibrationInitCmd)
	calibrationCmd.AddCommand(calibrationValidateCmd)

	calibrationInitCmd.Flags().StringVarP(&calInitOutput, "output", "o", "calibration.yaml", "output calibration file path")
	calibrationValidateCmd.Flags().StringVarP(&calValidatePath, "file", "f", "", "path to calibration file (required)")
	calibrationValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  optsim backtest --config %s --data <observations.csv>\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Account: $%.2f cash, %.4f spot\n", cfg.Account.Cash, cfg.Account.SpotQty)
	fmt.Printf("  Strategy: %s (%d days)\n", cfg.Strategy.Name, cfg.Strategy.Days)
	fmt.Printf("  Regime: %s %v\n", cfg.Regime.Mode, cfg.Regime.Boundaries)
	fmt.Printf("  Pricing: %s\n", cfg.Pricing.Mode)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	fmt.Printf("  Sweep: %d-day windows every %d days (%s)\n",
		cfg.Sweep.WindowDays, cfg.Sweep.StepDays, strings.Join(cfg.Sweep.Strategies, ", "))
	return nil
}

func runCalibrationInit(cmd *cobra.Command, args []string) error {
	if err := pricing.DefaultCalibration().SaveToFile(calInitOutput); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	fmt.Printf("✓ Created default calibration: %s\n", calInitOutput)
	fmt.Println("\nPoint pricing.calibration at it in your config.")
	return nil
}

func runCalibrationValidate(cmd *cobra.Command, args []string) error {
	cal, err := pricing.LoadCalibration(calValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Printf("✓ Calibration valid: %s\n", calValidatePath)
	fmt.Printf("  Regimes: %d\n", len(cal.Regimes))
	fmt.Printf("  Quotes: %d\n", len(cal.Quotes))
	fmt.Printf("  Dynamic skew: %t\n", cal.DynamicSkew)
	return nil
}
