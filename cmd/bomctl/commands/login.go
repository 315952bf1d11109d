package commands

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/rackworks/bomctl/internal/cli/prompt"
	"github.com/rackworks/bomctl/pkg/config"
	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

var (
	loginAPIBase   string
	loginEmail     string
	loginPassword  string
	loginWorkspace string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the PLM and store credentials",
	Long: `Authenticate against the PLM workspace and store credentials in the
local property store.

On first login, specify the API base URL and workspace id. Subsequent
logins reuse the stored values unless overridden.

Examples:
  # First login
  bomctl login --api https://api.example.com/v1 --workspace 1234 --email me@corp.com

  # Re-login with stored settings
  bomctl login`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginAPIBase, "api", "", "API base URL (required on first login)")
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
	loginCmd.Flags().StringVar(&loginWorkspace, "workspace", "", "Workspace id the session must land in")
}

func runLogin(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	baseURL := loginAPIBase
	if baseURL == "" {
		baseURL, err = config.ResolveBaseURL(env.cfg, env.store)
		if err != nil {
			return fmt.Errorf("no API base URL stored; pass --api on first login")
		}
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}

	creds := plm.Credentials{
		Email:       loginEmail,
		Password:    loginPassword,
		WorkspaceID: loginWorkspace,
	}
	if stored, err := config.ResolveCredentials(env.cfg, env.store); err == nil {
		if creds.Email == "" {
			creds.Email = stored.Email
		}
		if creds.WorkspaceID == "" {
			creds.WorkspaceID = stored.WorkspaceID
		}
	}

	if creds.Email == "" {
		if creds.Email, err = prompt.InputRequired("Email"); err != nil {
			return err
		}
	}
	if creds.WorkspaceID == "" {
		if creds.WorkspaceID, err = prompt.InputRequired("Workspace id"); err != nil {
			return err
		}
	}
	if creds.Password == "" {
		if creds.Password, err = prompt.Password("Password"); err != nil {
			return err
		}
	}

	session, err := plm.NewSessionManager(baseURL, creds, env.store)
	if err != nil {
		return err
	}
	session.Invalidate()
	if _, err := session.Session(cmd.Context()); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := env.store.Set(propstore.KeyAPIBase, []byte(baseURL)); err != nil {
		return err
	}
	if err := config.StoreCredentials(env.store, creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Logged in to workspace %s as %s\n", creds.WorkspaceID, creds.Email)
	return nil
}
