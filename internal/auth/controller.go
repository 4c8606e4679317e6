// Package auth orchestrates the session lifecycle: login, logout, and
// restoration on startup.
//
// The controller is the sole writer of the session store. Everything else
// reads through the store or the controller's accessors, so a session change
// is visible to the next call without coordination.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dxcis/loanwd/internal/client"
	platformerrors "github.com/dxcis/loanwd/internal/platform/errors"
	"github.com/dxcis/loanwd/internal/servicenow"
	"github.com/dxcis/loanwd/internal/session"
	"github.com/dxcis/loanwd/internal/transport"
)

// State is the controller's authentication state.
type State string

const (
	// StateUninitialized means Restore has not run yet.
	StateUninitialized State = "uninitialized"
	// StateLoading means a restore or login is in progress.
	StateLoading State = "loading"
	// StateAuthenticated means a valid session is active.
	StateAuthenticated State = "authenticated"
	// StateUnauthenticated means no session is active.
	StateUnauthenticated State = "unauthenticated"
)

// Config wires a Controller.
type Config struct {
	Store        session.Store
	Exchanger    TokenExchanger
	Selector     transport.Selector
	HTTPClient   *http.Client
	UserInfoPath string

	// SessionExpired, when set, is invoked after an expired session has been
	// torn down. It is the application's single navigation hook.
	SessionExpired func(returnTo string)
}

// Controller owns the session and exposes authentication state.
type Controller struct {
	mu        sync.RWMutex
	state     State
	current   session.Session
	store     session.Store
	exchanger TokenExchanger
	api       *client.Client

	userInfoPath   string
	sessionExpired func(returnTo string)
}

// NewController builds a controller and its authenticated request client.
func NewController(cfg Config) *Controller {
	c := &Controller{
		state:          StateUninitialized,
		store:          cfg.Store,
		exchanger:      cfg.Exchanger,
		userInfoPath:   cfg.UserInfoPath,
		sessionExpired: cfg.SessionExpired,
	}
	if c.userInfoPath == "" {
		c.userInfoPath = servicenow.DefaultUserInfoPath
	}

	opts := []client.Option{client.WithSessionExpiredFunc(c.handleSessionExpired)}
	if cfg.HTTPClient != nil {
		opts = append(opts, client.WithHTTPClient(cfg.HTTPClient))
	}
	c.api = client.New(cfg.Selector, cfg.Store, opts...)
	return c
}

// Client returns the authenticated request client bound to this controller's
// session.
func (c *Controller) Client() *client.Client {
	return c.api
}

// State returns the current authentication state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// User returns the authenticated profile, or nil.
func (c *Controller) User() *servicenow.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.User
}

// DomainID returns the authenticated user's domain identifier, or "".
func (c *Controller) DomainID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.DomainID()
}

// DomainName returns the authenticated user's domain display name, or "".
func (c *Controller) DomainName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.DomainName()
}

// Token returns the current access token. It never fails; absence is
// reported by the boolean.
func (c *Controller) Token() (string, bool) {
	current, ok, err := c.store.Load()
	if err != nil || !ok || current.AccessToken == "" {
		return "", false
	}
	return current.AccessToken, true
}

// Restore attempts to resume a stored session. A valid record moves the
// controller to authenticated with its fields populated; absence or a
// corrupt record moves it to unauthenticated. The store self-heals corrupt
// records, so Restore never fails on bad data.
func (c *Controller) Restore() {
	c.setState(StateLoading)

	stored, ok, err := c.store.Load()
	if err != nil || !ok || !stored.Valid() {
		c.mu.Lock()
		c.current = session.Session{}
		c.state = StateUnauthenticated
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.current = stored
	c.state = StateAuthenticated
	c.mu.Unlock()
}

// Login exchanges credentials for a token, fetches the user profile with the
// just-obtained token, and commits both atomically. On any failure nothing
// is persisted and the state is unchanged except for leaving loading.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	c.mu.Lock()
	if c.state == StateLoading {
		c.mu.Unlock()
		return platformerrors.New(platformerrors.CodeAuthentication, "login already in progress")
	}
	prior := c.state
	c.state = StateLoading
	c.mu.Unlock()

	token, err := c.exchanger.Exchange(ctx, username, password)
	if err != nil {
		c.setState(prior)
		return err
	}

	profile, err := c.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		c.setState(prior)
		return err
	}

	committed := session.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		User:         &profile,
	}
	if err := c.store.Save(committed); err != nil {
		c.setState(prior)
		return fmt.Errorf("persist session: %w", err)
	}

	c.mu.Lock()
	c.current = committed
	c.state = StateAuthenticated
	c.mu.Unlock()
	return nil
}

// Logout clears the session and the store. It always succeeds and has no
// network effect.
func (c *Controller) Logout() {
	_ = c.store.Clear()
	c.mu.Lock()
	c.current = session.Session{}
	c.state = StateUnauthenticated
	c.mu.Unlock()
}

// fetchProfile retrieves the current user's record using a token that has
// not yet been committed to the store.
func (c *Controller) fetchProfile(ctx context.Context, accessToken string) (servicenow.Profile, error) {
	var envelope servicenow.ResultEnvelope[[]servicenow.Profile]
	if err := c.api.GetWithToken(ctx, c.userInfoPath, accessToken, &envelope); err != nil {
		return servicenow.Profile{}, platformerrors.Wrap(
			platformerrors.CodeProfileFetch, profileFetchMessage(err), err)
	}
	if len(envelope.Result) == 0 {
		return servicenow.Profile{}, platformerrors.New(
			platformerrors.CodeProfileFetch, "No user record returned from ServiceNow")
	}
	return envelope.Result[0], nil
}

// handleSessionExpired is the client's expiry hook. The store has already
// been cleared; the controller drops its view and defers navigation to the
// configured subscriber.
func (c *Controller) handleSessionExpired(returnTo string) {
	c.mu.Lock()
	c.current = session.Session{}
	c.state = StateUnauthenticated
	c.mu.Unlock()

	if c.sessionExpired != nil {
		c.sessionExpired(returnTo)
	}
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// profileFetchMessage derives the user-facing message for a failed profile
// fetch, preserving the upstream status when known.
func profileFetchMessage(err error) string {
	var domainErr *platformerrors.Error
	if errors.As(err, &domainErr) {
		if status := domainErr.Meta("status"); status != "" {
			return fmt.Sprintf("Could not retrieve user profile (%s)", status)
		}
	}
	return "Could not retrieve user profile"
}
