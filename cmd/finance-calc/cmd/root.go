// Package cmd implements the finance-calc command tree.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// app carries the state shared by every subcommand once the root has run.
type app struct {
	configPath   string
	logLevel     string
	outputFormat string

	conf   *config.Configuration
	logger *zap.Logger
}

// Execute runs the root command against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "finance-calc",
		Short: "Loan, tax, savings, exchange and unit calculators",
		Long: `finance-calc computes loan repayment schedules, progressive taxes,
savings maturities, currency exchanges, unit conversions and body-mass index.

Every calculator is also served over HTTP by "finance-calc serve".`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.outputFormat, "output-format", "", "type of output override: pretty, csv, json")

	rootCmd.AddCommand(
		a.newScheduleCmd(),
		a.newCompareCmd(),
		a.newTaxCmd(),
		a.newConvertCmd(),
		a.newExchangeCmd(),
		a.newRatesCmd(),
		a.newSavingsCmd(),
		a.newBMICmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// setup loads configuration, builds the logger and settles the output format.
// A missing config file is only an error when --config was given explicitly.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	conf, err := config.LoadConfiguration(a.configPath)
	if err != nil {
		if cmd.Flags().Changed("config") || !isNotExist(a.configPath) {
			return fmt.Errorf("failed to load configuration at %s: %w", a.configPath, err)
		}
		conf = config.Default()
	}
	a.conf = conf

	logger, err := initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	// CLI override takes precedence over config
	if a.outputFormat == "" {
		a.outputFormat = conf.Output.Format
	}
	if a.outputFormat == "" {
		a.outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(a.outputFormat); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		a.logger.Warn("Configuration warning: "+warning,
			zap.String("op", "cmd.setup"),
		)
	}
	return nil
}

func isNotExist(path string) bool {
	_, err := os.Stat(path)
	return errors.Is(err, fs.ErrNotExist)
}
