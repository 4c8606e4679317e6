package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	platformerrors "github.com/dxcis/loanwd/internal/platform/errors"
	"github.com/dxcis/loanwd/internal/servicenow"
	"github.com/dxcis/loanwd/internal/transport"
)

// TokenExchanger swaps user credentials for a token response. The two
// implementations differ only in who supplies the confidential client
// credentials: the relay server (production) or the caller itself
// (development).
type TokenExchanger interface {
	Exchange(ctx context.Context, username, password string) (servicenow.TokenResponse, error)
}

// RelayExchanger submits only the username and password to the credential
// relay, which attaches the client credentials server-side. This is the
// production strategy: secrets never leave the server.
type RelayExchanger struct {
	selector   transport.Selector
	httpClient *http.Client
}

// NewRelayExchanger returns the production exchange strategy.
func NewRelayExchanger(selector transport.Selector, httpClient *http.Client) *RelayExchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RelayExchanger{selector: selector, httpClient: httpClient}
}

// Exchange implements TokenExchanger.
func (e *RelayExchanger) Exchange(ctx context.Context, username, password string) (servicenow.TokenResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return servicenow.TokenResponse{}, fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.selector.TokenURL(), bytes.NewReader(payload))
	if err != nil {
		return servicenow.TokenResponse{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return servicenow.TokenResponse{}, platformerrors.Wrap(
			platformerrors.CodeUpstreamUnreachable, "Failed to reach ServiceNow", err)
	}
	defer resp.Body.Close()

	return decodeTokenResponse(resp)
}

// DirectExchanger submits the full form-encoded password grant, including
// client credentials held by the caller, through the transparent development
// relay. Exposing the client secret to the caller is an accepted development
// trade-off; never use this strategy in production.
type DirectExchanger struct {
	selector     transport.Selector
	httpClient   *http.Client
	clientID     string
	clientSecret string
}

// NewDirectExchanger returns the development exchange strategy.
func NewDirectExchanger(selector transport.Selector, httpClient *http.Client, clientID, clientSecret string) *DirectExchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DirectExchanger{
		selector:     selector,
		httpClient:   httpClient,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// Exchange implements TokenExchanger.
func (e *DirectExchanger) Exchange(ctx context.Context, username, password string) (servicenow.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	form.Set("client_id", e.clientID)
	form.Set("client_secret", e.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.selector.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return servicenow.TokenResponse{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return servicenow.TokenResponse{}, platformerrors.Wrap(
			platformerrors.CodeUpstreamUnreachable, "Failed to reach ServiceNow", err)
	}
	defer resp.Body.Close()

	return decodeTokenResponse(resp)
}

// decodeTokenResponse turns an exchange response into a token or an
// authentication error. Error bodies are parsed best-effort; a message is
// always produced.
func decodeTokenResponse(resp *http.Response) (servicenow.TokenResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return servicenow.TokenResponse{}, platformerrors.Wrap(
			platformerrors.CodeUpstreamUnreachable, "Failed to reach ServiceNow", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := fmt.Sprintf("Authentication failed (%d)", resp.StatusCode)
		var tokenErr servicenow.TokenError
		if err := json.Unmarshal(body, &tokenErr); err == nil {
			if tokenErr.ErrorDescription != "" {
				message = tokenErr.ErrorDescription
			} else if tokenErr.Error != "" {
				message = tokenErr.Error
			}
		}
		return servicenow.TokenResponse{}, platformerrors.New(platformerrors.CodeAuthentication, message)
	}

	var token servicenow.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return servicenow.TokenResponse{}, platformerrors.Wrap(
			platformerrors.CodeAuthentication, "Authentication failed (invalid token response)", err)
	}
	if token.AccessToken == "" {
		return servicenow.TokenResponse{}, platformerrors.New(
			platformerrors.CodeAuthentication, "Authentication failed (missing access token)")
	}
	return token, nil
}
