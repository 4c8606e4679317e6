package relay

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/dxcis/loanwd/internal/servicenow"
)

// Development relay paths. The prefix is local-only and stripped before
// forwarding; the instance sees its own paths.
const (
	devOAuthPath = "/servicenow-oauth"
	devAPIPrefix = "/servicenow-api/"
)

// registerDevRoutes mounts the transparent development relay. Requests are
// forwarded verbatim to the configured instance: the token path is rewritten
// to the instance token endpoint, API paths have the local prefix stripped.
// Client credentials arrive from the caller in this mode; that trade-off is
// confined to development.
func (s *Server) registerDevRoutes(mux *http.ServeMux) {
	target, err := url.Parse(strings.TrimRight(s.config.Instance, "/"))
	if err != nil || target.Host == "" {
		log.Printf("development relay disabled: invalid SN_INSTANCE %q", s.config.Instance)
		return
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.Out.Host = target.Host
			switch {
			case r.In.URL.Path == devOAuthPath:
				r.Out.URL.Path = servicenow.TokenEndpointPath
				r.Out.URL.RawQuery = ""
			case strings.HasPrefix(r.In.URL.Path, devAPIPrefix):
				r.Out.URL.Path = strings.TrimPrefix(r.In.URL.Path, strings.TrimSuffix(devAPIPrefix, "/"))
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("development relay upstream error: %v", err)
			writeJSONError(w, http.StatusBadGateway, "Failed to reach ServiceNow")
		},
	}

	mux.Handle(devOAuthPath, proxy)
	mux.Handle(devAPIPrefix, proxy)
}
