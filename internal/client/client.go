// Package client wraps outbound record-system calls with authorization and
// domain headers and classifies failure responses.
//
// Headers are computed fresh from the session store on every call, so a
// logout or session replacement applies to the next call without any
// coordination. The client never navigates; on an expired session it clears
// the store, notifies the registered subscriber, and fails the call with a
// typed error carrying the intended return path.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	platformerrors "github.com/dxcis/loanwd/internal/platform/errors"
	"github.com/dxcis/loanwd/internal/servicenow"
	"github.com/dxcis/loanwd/internal/session"
	"github.com/dxcis/loanwd/internal/transport"
)

// DomainHeader scopes record-system calls to the user's domain.
const DomainHeader = "X-Domain"

// LoginPath is the application's login entry point.
const LoginPath = "/login"

// DomainAccessDeniedMessage is shown when the record system rejects a call
// for the current domain. The session stays intact; other domains may still
// be accessible.
const DomainAccessDeniedMessage = "Domain access denied. Your account does not have permission to access this record."

// Client issues authenticated record-system calls through the relay.
type Client struct {
	httpClient *http.Client
	selector   transport.Selector
	store      session.Store
	onExpired  func(returnTo string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithSessionExpiredFunc registers the single subscriber notified after an
// expired session has been cleared. The subscriber owns any navigation.
func WithSessionExpiredFunc(fn func(returnTo string)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New returns a client routing calls through selector with credentials read
// from store.
func New(selector transport.Selector, store session.Store, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		selector:   selector,
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues an authenticated read and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// GetWithToken issues a read authenticated by an explicit bearer token
// instead of the stored session. Used during login, before the token has
// been committed: the stored session is neither consulted nor touched, and a
// 401 reports a plain upstream error rather than tearing the session down.
func (c *Client) GetWithToken(ctx context.Context, path, token string, out any) error {
	return c.do(ctx, http.MethodGet, path, token, nil, out)
}

// Post issues an authenticated create and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, "", body, out)
}

// Patch issues an authenticated partial update and decodes the response into
// out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, "", body, out)
}

// Delete issues an authenticated delete. No body is expected on success.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.selector.APIURL(path), payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, token, body != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return platformerrors.Wrap(platformerrors.CodeUpstreamUnreachable, "Failed to reach ServiceNow", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, path, token != "", out)
}

// setHeaders attaches authorization and domain headers read from the current
// session at call time. An explicit token bypasses the store entirely.
func (c *Client) setHeaders(req *http.Request, token string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		return
	}

	current, ok, err := c.store.Load()
	if err != nil || !ok {
		return
	}
	if current.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+current.AccessToken)
	}
	if domainID := current.DomainID(); domainID != "" {
		req.Header.Set(DomainHeader, domainID)
	}
}

// handleResponse classifies a response. Failure bodies are drained so the
// underlying connection can be reused. A 401 against an explicit token
// concerns a token that was never committed, so the stored session stays
// untouched and the failure reports as a plain upstream error.
func (c *Client) handleResponse(resp *http.Response, path string, explicitToken bool, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized && !explicitToken:
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = c.store.Clear()
		if c.onExpired != nil {
			c.onExpired(path)
		}
		return platformerrors.WithMetadata(platformerrors.CodeSessionExpired, "Session expired",
			map[string]string{"returnTo": path})

	case resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return platformerrors.WithMetadata(platformerrors.CodeDomainAccessDenied, DomainAccessDeniedMessage,
			map[string]string{"path": path})

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		message := fmt.Sprintf("ServiceNow %d on %s", resp.StatusCode, path)
		if detail := parseErrorDetail(resp.Body); detail != "" {
			message += ": " + detail
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return platformerrors.WithMetadata(platformerrors.CodeUpstream, message, map[string]string{
			"path":   path,
			"status": fmt.Sprintf("%d", resp.StatusCode),
		})
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// parseErrorDetail extracts the structured error message from a failure body.
// Parse failures never escalate; the caller substitutes a status-based
// message.
func parseErrorDetail(body io.Reader) string {
	var apiErr servicenow.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		return ""
	}
	return apiErr.Error.Message
}

// LoginURL builds the login entry URL preserving the originally intended
// destination.
func LoginURL(returnTo string) string {
	if returnTo == "" {
		return LoginPath
	}
	return LoginPath + "?returnTo=" + url.QueryEscape(returnTo)
}
