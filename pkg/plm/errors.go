package plm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is returned after two successive 401 responses on
	// one request: the transparent re-authentication itself was rejected.
	ErrSessionExpired = errors.New("session expired: re-authentication rejected")

	// ErrUserCancelled is returned when the user dismisses a confirmation
	// dialog. Operations terminate cleanly without writes.
	ErrUserCancelled = errors.New("cancelled by user")
)

// ConfigError indicates missing or malformed client configuration
// (credentials, workspace id, required attribute setup).
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// WorkspaceMismatchError indicates login returned a different workspace
// identifier than the one configured.
type WorkspaceMismatchError struct {
	Configured string
	Returned   string
}

func (e *WorkspaceMismatchError) Error() string {
	return fmt.Sprintf("workspace mismatch: configured %q but server returned %q", e.Configured, e.Returned)
}

// maxServerMessage caps server error text carried in APIError.
const maxServerMessage = 500

// APIError represents a non-2xx response from the PLM.
type APIError struct {
	StatusCode int
	Message    string
}

// newAPIError builds an APIError with the server text truncated.
func newAPIError(status int, message string) *APIError {
	message = strings.TrimSpace(message)
	if len(message) > maxServerMessage {
		message = message[:maxServerMessage]
	}
	return &APIError{StatusCode: status, Message: message}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("PLM returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("PLM returned HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true for HTTP 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsConflict returns true for HTTP 409.
func (e *APIError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsMethodNotAllowed returns true for HTTP 405. Smart sync uses this to
// fall back from PUT to DELETE+POST on servers that reject line updates.
func (e *APIError) IsMethodNotAllowed() bool {
	return e.StatusCode == http.StatusMethodNotAllowed
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// Friendly returns a user-facing message for the HTTP status.
func (e *APIError) Friendly() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return "Please re-authenticate"
	case e.StatusCode == http.StatusForbidden:
		return "Permission denied"
	case e.StatusCode == http.StatusNotFound:
		return "Item not found"
	case e.StatusCode == http.StatusTooManyRequests:
		return "Server is rate-limiting, try again"
	case e.StatusCode >= 500:
		return "Server error, retry shortly"
	default:
		return e.Error()
	}
}

// IsNotFound reports whether err is an APIError with HTTP 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
