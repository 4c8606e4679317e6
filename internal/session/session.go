// Package session holds the authenticated context for the current process
// and its durable-but-ephemeral persistence.
//
// The controller in package auth is the sole writer; every other component
// reads fresh on each use so a logout or replacement is visible to the next
// call without coordination.
package session

import "github.com/dxcis/loanwd/internal/servicenow"

// Session is the authenticated context committed after a successful login.
type Session struct {
	AccessToken  string              `json:"accessToken"`
	RefreshToken string              `json:"refreshToken,omitempty"`
	User         *servicenow.Profile `json:"user,omitempty"`
}

// Valid reports whether the session satisfies the authenticated invariant:
// a non-empty access token and a user profile are both present.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.User != nil
}

// DomainID returns the user's domain identifier, or the empty string.
func (s Session) DomainID() string {
	if s.User == nil {
		return ""
	}
	return s.User.SysDomain.Value
}

// DomainName returns the user's domain display name, or the empty string.
func (s Session) DomainName() string {
	if s.User == nil {
		return ""
	}
	return s.User.SysDomain.DisplayValue
}
