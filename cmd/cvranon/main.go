package main

import (
	"context"
	"fmt"
	"os"

	"cvranon/internal/config"
	"cvranon/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded configuration, flags applied on top per command
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cvranon",
	Short: "Anonymize cast vote records for publication",
	Long: `cvranon publishes cast vote record (CVR) files so that no row can be traced
to fewer than a minimum number of physical ballots.

Ballots whose style (the set of contests on the ballot) is rare are merged
into AGGREGATED rows that carry summed votes. Aggregates borrow ballots from
common styles until they are large enough, cover every contest they hold,
and show no near-unanimous contest. Vote totals are verified against the
input before the output file is written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configFile()
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		if verbose {
			cfg.Logging.DebugMode = true
		}

		logger, err = logging.NewRoot(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Initialize(logger, cfg.Logging)
		logger.Debug("configuration loaded", zap.String("path", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./"+config.DefaultConfigFile+")")

	addAnonymizeFlags(anonymizeCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum runs to list (0 = all)")
	configInitCmd.Flags().BoolVarP(&forceConfig, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(anonymizeCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(stylesCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// currentConfig returns a copy of the loaded configuration, or the defaults
// when no command pre-run has loaded one.
func currentConfig() config.Config {
	if cfg == nil {
		return *config.DefaultConfig()
	}
	return *cfg
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
