// Package transport maps logical record-system operations to concrete relay
// URLs for the current environment.
//
// In development the relay forwards paths verbatim after stripping a local
// prefix, so the original path survives unchanged. In production the relay is
// one generic endpoint, so the original path and query are folded into a
// single "path" query parameter.
package transport

import (
	"net/url"
	"strings"
)

// Mode selects between the development and production relay layouts.
type Mode string

const (
	// Development routes through the transparent local relay.
	Development Mode = "development"
	// Production routes through the server-hosted relay.
	Production Mode = "production"
)

// Relay entry paths per mode. The development prefixes are stripped by the
// relay before forwarding.
const (
	devOAuthPath  = "/servicenow-oauth"
	devAPIPrefix  = "/servicenow-api"
	prodOAuthPath = "/api/servicenow-oauth"
	prodProxyPath = "/api/servicenow-api"
)

// Selector builds destination URLs for a fixed base and mode.
type Selector struct {
	mode Mode
	base string
}

// NewSelector returns a selector rooted at base (scheme://host, no trailing
// slash required) for the given mode.
func NewSelector(mode Mode, base string) Selector {
	return Selector{mode: mode, base: strings.TrimRight(base, "/")}
}

// Mode returns the selector's environment mode.
func (s Selector) Mode() Mode {
	return s.mode
}

// TokenURL returns the destination for the credential exchange.
func (s Selector) TokenURL() string {
	if s.mode == Development {
		return s.base + devOAuthPath
	}
	return s.base + prodOAuthPath
}

// APIURL returns the destination for a record-system API call. The path must
// be instance-relative (e.g. /api/now/table/sys_user) and may carry its own
// query string, which is preserved in both modes.
func (s Selector) APIURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if s.mode == Development {
		return s.base + devAPIPrefix + path
	}
	return s.base + prodProxyPath + "?path=" + url.QueryEscape(path)
}
