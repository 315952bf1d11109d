package plm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// DefaultSessionTTL is how long a cached session token stays fresh.
const DefaultSessionTTL = 6 * time.Hour

// SessionHeader carries the session token on every authenticated request.
const SessionHeader = "arena_session_id"

// Credentials authenticate against one workspace.
type Credentials struct {
	Email       string
	Password    string
	WorkspaceID string
}

// Validate checks that all credential fields are present.
func (c Credentials) Validate() error {
	if c.Email == "" {
		return &ConfigError{Field: "email", Reason: "not set"}
	}
	if c.Password == "" {
		return &ConfigError{Field: "password", Reason: "not set"}
	}
	if c.WorkspaceID == "" {
		return &ConfigError{Field: "workspace_id", Reason: "not set"}
	}
	return nil
}

// SessionManager holds credentials and the cached session token. The token
// and its acquisition timestamp are persisted in the property store so a
// fresh process reuses a live session instead of logging in again.
type SessionManager struct {
	baseURL    string
	creds      Credentials
	store      propstore.Store
	ttl        time.Duration
	httpClient *http.Client

	mu sync.Mutex
}

// NewSessionManager validates the credentials and returns a manager.
func NewSessionManager(baseURL string, creds Credentials, store propstore.Store) (*SessionManager, error) {
	if baseURL == "" {
		return nil, &ConfigError{Field: "api_base", Reason: "not set"}
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &SessionManager{
		baseURL: baseURL,
		creds:   creds,
		store:   store,
		ttl:     DefaultSessionTTL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// WithTTL overrides the session freshness window.
func (m *SessionManager) WithTTL(ttl time.Duration) *SessionManager {
	m.ttl = ttl
	return m
}

// Session returns a session token, authenticating if the cached token is
// missing or stale.
func (m *SessionManager) Session(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token := m.cachedToken(); token != "" {
		return token, nil
	}
	return m.login(ctx)
}

// Invalidate drops the cached token so the next Session call re-authenticates.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.store.Delete(propstore.KeySessionToken)
	_ = m.store.Delete(propstore.KeySessionAcquired)
}

// Logout clears the cached token and performs a best-effort server logout.
// Server-side failures are logged, not raised.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.cachedToken()
	_ = m.store.Delete(propstore.KeySessionToken)
	_ = m.store.Delete(propstore.KeySessionAcquired)
	m.mu.Unlock()

	if token == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/logout", nil)
	if err != nil {
		logger.Warn("logout request build failed", logger.KeyError, err)
		return
	}
	req.Header.Set(SessionHeader, token)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		logger.Warn("server logout failed", logger.KeyError, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	logger.Debug("server logout", logger.KeyHTTPStatus, resp.StatusCode)
}

// cachedToken returns the persisted token if it is still within the TTL.
func (m *SessionManager) cachedToken() string {
	token, err := m.store.Get(propstore.KeySessionToken)
	if err != nil {
		return ""
	}
	acquired, err := m.store.Get(propstore.KeySessionAcquired)
	if err != nil {
		return ""
	}
	unix, err := strconv.ParseInt(string(acquired), 10, 64)
	if err != nil {
		return ""
	}
	if time.Since(time.Unix(unix, 0)) >= m.ttl {
		return ""
	}
	return string(token)
}

// loginResponse carries the two fields the authentication response must
// include. Field names arrive in either casing; the normalizer unifies them.
type loginResponse struct {
	SessionID   string `json:"arenaSessionId"`
	WorkspaceID any    `json:"workspaceId"`
}

// login performs the POST authentication and caches the resulting token.
// Caller holds m.mu.
func (m *SessionManager) login(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"email":       m.creds.Email,
		"password":    m.creds.Password,
		"workspaceId": m.creds.WorkspaceID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp.StatusCode, extractServerMessage(body))
	}

	normalized, err := normalizeBody(body)
	if err != nil {
		return "", err
	}
	var login loginResponse
	if err := decodeInto(normalized, &login); err != nil {
		return "", err
	}

	if login.SessionID == "" {
		return "", fmt.Errorf("login response carried no session token")
	}
	returned := workspaceIDString(login.WorkspaceID)
	if returned == "" {
		return "", fmt.Errorf("login response carried no workspace identifier")
	}
	if returned != m.creds.WorkspaceID {
		return "", &WorkspaceMismatchError{Configured: m.creds.WorkspaceID, Returned: returned}
	}

	if err := m.store.Set(propstore.KeySessionToken, []byte(login.SessionID)); err != nil {
		return "", err
	}
	if err := m.store.Set(propstore.KeySessionAcquired, []byte(strconv.FormatInt(time.Now().Unix(), 10))); err != nil {
		return "", err
	}

	logger.Info("authenticated with PLM", logger.KeyWorkspace, returned)
	return login.SessionID, nil
}

// workspaceIDString renders the workspace id, which some server versions
// return as a JSON number.
func workspaceIDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}
