package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rackworks/bomctl/pkg/config"
)

var showConfigPath string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging file, environment and defaults.
Secrets are never part of the configuration and never shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(showConfigPath)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showConfigPath, "config", "", "Config file (default: standard location)")
}
