// Package plm implements the Arena-style PLM client: session management,
// a verb-generic HTTP layer with single-shot auth and rate-limit retries,
// the named domain operations, response normalization, and the bulk
// BOM-export fast path.
package plm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/metrics"
)

// defaultRetryAfter is the wait applied to a 429 without a Retry-After header.
const defaultRetryAfter = 10 * time.Second

// Client is the PLM API client. All domain operations go through it; no
// caller constructs request paths.
type Client struct {
	baseURL    string
	session    *SessionManager
	httpClient *http.Client

	// sleep is context-aware and injectable so tests don't wait out
	// real rate-limit windows.
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a client over an authenticated session.
func NewClient(baseURL string, session *SessionManager) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		sleep: sleepCtx,
	}
}

// SessionManager exposes the client's session for logout and manual
// invalidation.
func (c *Client) SessionManager() *SessionManager {
	return c.session
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// exchange is the outcome of a single HTTP round trip.
type exchange struct {
	status     int
	body       []byte
	retryAfter string
}

// do composes and executes one logical request. On 401 it re-authenticates
// and retries exactly once; on 429 it honors Retry-After and retries exactly
// once. Both retries use per-request sentinels, so a request can never loop.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	retriedAuth := false
	retriedRate := false

	for {
		ex, err := c.execute(ctx, method, fullURL, payload)
		if err != nil {
			return err
		}

		switch {
		case ex.status >= 200 && ex.status < 300:
			if result == nil || len(ex.body) == 0 {
				return nil
			}
			normalized, err := normalizeBody(ex.body)
			if err != nil {
				return err
			}
			return decodeInto(normalized, result)

		case ex.status == http.StatusUnauthorized:
			if retriedAuth {
				return ErrSessionExpired
			}
			retriedAuth = true
			logger.Debug("session rejected, re-authenticating", logger.KeyPath, path)
			metrics.IncAuthRetry()
			c.session.Invalidate()
			if _, err := c.session.Session(ctx); err != nil {
				return err
			}

		case ex.status == http.StatusTooManyRequests:
			if retriedRate {
				return newAPIError(ex.status, extractServerMessage(ex.body))
			}
			retriedRate = true
			wait := parseRetryAfter(ex.retryAfter)
			logger.Warn("rate limited by PLM", logger.KeyPath, path, "retry_after", wait)
			metrics.IncRateLimitRetry()
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		default:
			apiErr := newAPIError(ex.status, extractServerMessage(ex.body))
			logger.Error("PLM request failed",
				logger.KeyMethod, method,
				logger.KeyPath, path,
				logger.KeyHTTPStatus, ex.status,
				logger.KeyError, apiErr.Message)
			return apiErr
		}
	}
}

// execute performs a single HTTP round trip.
func (c *Client) execute(ctx context.Context, method, fullURL string, payload []byte) (exchange, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return exchange{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.session.Session(ctx)
	if err != nil {
		return exchange{}, err
	}
	req.Header.Set(SessionHeader, token)

	logger.Debug("PLM request", logger.KeyMethod, method, logger.KeyPath, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return exchange{}, fmt.Errorf("transport error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return exchange{}, fmt.Errorf("failed to read response body: %w", err)
	}
	return exchange{
		status:     resp.StatusCode,
		body:       respBody,
		retryAfter: resp.Header.Get("Retry-After"),
	}, nil
}

// parseRetryAfter converts a Retry-After header value in seconds, falling
// back to the default wait.
func parseRetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// extractServerMessage pulls a human-readable message out of an error body.
// The server uses message, error, or an errors array depending on endpoint.
func extractServerMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Err     string `json:"error"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if normalized, err := normalizeBody(body); err == nil {
		if err := decodeInto(normalized, &parsed); err == nil {
			switch {
			case parsed.Message != "":
				return parsed.Message
			case parsed.Err != "":
				return parsed.Err
			case len(parsed.Errors) > 0:
				msgs := make([]string, 0, len(parsed.Errors))
				for _, e := range parsed.Errors {
					if e.Message != "" {
						msgs = append(msgs, e.Message)
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, "; ")
				}
			}
		}
	}
	return string(body)
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

// put performs a PUT request.
func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

// patch performs a PATCH request.
func (c *Client) patch(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, result)
}

// delete performs a DELETE request.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
