// Package commands implements the bomctl CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	configcmd "github.com/rackworks/bomctl/cmd/bomctl/commands/config"
	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/config"
	"github.com/rackworks/bomctl/pkg/metrics"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	flagConfig   string
	flagWorkbook string
	flagOutput   string
	flagNoColor  bool
	flagVerbose  bool
	flagYes      bool
)

var rootCmd = &cobra.Command{
	Use:   "bomctl",
	Short: "BOM synchronization between rack workbooks and the PLM",
	Long: `bomctl keeps rack-layout workbooks and the PLM in sync.

It diffs rack configuration sheets against remote BOMs, pushes new
layouts as a three-phase item structure, consolidates multi-rack grids
into flattened BOMs, and records every change in the workbook's history
sheet.

Use "bomctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagVerbose {
			cfg.Logging.Level = "DEBUG"
		}
		if err := logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		if cfg.Metrics.Enabled {
			metrics.Enable()
			if err := metrics.Serve(cfg.Metrics.Listen); err != nil {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
		}
		loadedConfig = cfg
		return nil
	},
}

// loadedConfig is the configuration resolved by the persistent pre-run.
var loadedConfig *config.Config

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $XDG_CONFIG_HOME/bomctl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagWorkbook, "workbook", "w", "", "Workbook file (overrides data.workbook)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes on confirmations")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configcmd.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
