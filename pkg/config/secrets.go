package config

import (
	"os"

	"github.com/rackworks/bomctl/pkg/plm"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// Environment variables consulted for credentials. The password has no
// config-file source on purpose.
const (
	EnvEmail       = "BOMCTL_AUTH_EMAIL"
	EnvPassword    = "BOMCTL_AUTH_PASSWORD"
	EnvWorkspaceID = "BOMCTL_AUTH_WORKSPACE_ID"
	EnvBaseURL     = "BOMCTL_API_BASE_URL"
)

// ResolveCredentials assembles PLM credentials from, in order of
// precedence: the config file, environment variables, and the property
// store (written by `bomctl login`). Missing fields surface as
// plm.ConfigError naming the field.
func ResolveCredentials(cfg *Config, store propstore.Store) (plm.Credentials, error) {
	creds := plm.Credentials{
		Email:       cfg.Auth.Email,
		WorkspaceID: cfg.Auth.WorkspaceID,
	}

	if creds.Email == "" {
		creds.Email = os.Getenv(EnvEmail)
	}
	creds.Password = os.Getenv(EnvPassword)
	if creds.WorkspaceID == "" {
		creds.WorkspaceID = os.Getenv(EnvWorkspaceID)
	}

	if store != nil {
		fill := func(target *string, key string) {
			if *target != "" {
				return
			}
			if val, err := store.Get(key); err == nil {
				*target = string(val)
			}
		}
		fill(&creds.Email, propstore.KeyEmail)
		fill(&creds.Password, propstore.KeyPassword)
		fill(&creds.WorkspaceID, propstore.KeyWorkspaceID)
	}

	if err := creds.Validate(); err != nil {
		return plm.Credentials{}, err
	}
	return creds, nil
}

// ResolveBaseURL returns the API root from config, environment, or the
// property store.
func ResolveBaseURL(cfg *Config, store propstore.Store) (string, error) {
	base := cfg.API.BaseURL
	if base == "" {
		base = os.Getenv(EnvBaseURL)
	}
	if base == "" && store != nil {
		if val, err := store.Get(propstore.KeyAPIBase); err == nil {
			base = string(val)
		}
	}
	if base == "" {
		return "", &plm.ConfigError{Field: "api.base_url", Reason: "no API base URL configured"}
	}
	return base, nil
}

// StoreCredentials persists credentials to the property store so later
// runs resolve them without prompting.
func StoreCredentials(store propstore.Store, creds plm.Credentials) error {
	if err := store.Set(propstore.KeyEmail, []byte(creds.Email)); err != nil {
		return err
	}
	if err := store.Set(propstore.KeyPassword, []byte(creds.Password)); err != nil {
		return err
	}
	return store.Set(propstore.KeyWorkspaceID, []byte(creds.WorkspaceID))
}

// ClearCredentials removes stored credentials and any cached session.
func ClearCredentials(store propstore.Store) error {
	for _, key := range []string{
		propstore.KeyEmail,
		propstore.KeyPassword,
		propstore.KeyWorkspaceID,
		propstore.KeySessionToken,
		propstore.KeySessionAcquired,
	} {
		if err := store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
