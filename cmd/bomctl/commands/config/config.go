// Package config implements the `bomctl config` subcommands.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the config command group.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and document the configuration",
}

func init() {
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
}
