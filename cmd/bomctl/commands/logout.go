package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/pkg/config"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the PLM session and clear stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnv()
		if err != nil {
			return err
		}
		defer env.Close()

		// Best effort: tell the server, then clear locally regardless.
		if client, err := env.Client(); err == nil {
			client.SessionManager().Logout(cmd.Context())
		}

		if err := config.ClearCredentials(env.store); err != nil {
			return fmt.Errorf("failed to clear stored credentials: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}
