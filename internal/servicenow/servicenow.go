// Package servicenow defines the wire types and paths of the backing record
// system.
//
// The record system's own authorization and domain-separation rules are
// opaque to this module; only the shapes the client negotiates with are
// described here.
package servicenow

import "strings"

// TokenEndpointPath is the instance-relative OAuth token endpoint.
const TokenEndpointPath = "/oauth_token.do"

// DefaultUserInfoPath queries the current user's record with its domain
// reference. Placeholder until a scripted REST endpoint is provisioned in the
// application scope; override with LOANWD_USER_INFO_PATH.
const DefaultUserInfoPath = "/api/now/table/sys_user" +
	"?sysparm_fields=sys_id,name,user_name,email,sys_domain,sys_domain.name" +
	"&sysparm_limit=1" +
	"&sysparm_query=active%3Dtrue%5Euser_name%3Djavascript:gs.getUserName()"

// AppScope is the scoped application that owns loan/withdrawal records.
const AppScope = "x_dxcis_loans_wi_0"

// DomainRef is a reference to a record-system domain. A valid profile carries
// both fields or neither.
type DomainRef struct {
	Value        string `json:"value"`
	DisplayValue string `json:"display_value"`
}

// Profile is the identity record returned by the record system.
type Profile struct {
	SysID     string    `json:"sys_id"`
	Name      string    `json:"name"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	SysDomain DomainRef `json:"sys_domain"`
}

// HasDomain reports whether the profile carries a domain reference.
func (p Profile) HasDomain() bool {
	return p.SysDomain.Value != ""
}

// TokenResponse is the OAuth password-grant response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenError is the OAuth error response body.
type TokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ResultEnvelope wraps every table API response body.
type ResultEnvelope[T any] struct {
	Result T `json:"result"`
}

// APIError is the structured error body the table API returns on failure.
type APIError struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
	Status string `json:"status"`
}

// TablePath returns the table API path for the named table.
func TablePath(table string) string {
	return "/api/now/table/" + strings.TrimPrefix(table, "/")
}
