package relay

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dxcis/loanwd/internal/servicenow"
)

// Paths served by the production relay.
const (
	// OAuthPath receives {username, password} and performs the token
	// exchange with server-held client credentials.
	OAuthPath = "/api/servicenow-oauth"
	// ProxyPath is the generic API relay; the real instance path travels in
	// the "path" query parameter.
	ProxyPath = "/api/servicenow-api"
)

// Headers forwarded to the record system by the generic proxy. Everything
// else is dropped so the relay stays a narrow trust boundary.
var forwardedHeaders = []string{"Authorization", "X-Domain", "Accept", "Content-Type"}

type errorResponse struct {
	Error string `json:"error"`
}

type credentialRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Server hosts the relay endpoints.
type Server struct {
	config     Config
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewServer builds a relay server for the given configuration.
func NewServer(config Config) *Server {
	return &Server{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tracer:     otel.Tracer("github.com/dxcis/loanwd/internal/relay"),
	}
}

// RegisterRoutes registers relay HTTP endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	if s.config.Development() {
		s.registerDevRoutes(mux)
	} else {
		mux.HandleFunc(OAuthPath, s.handleOAuth)
		mux.HandleFunc(ProxyPath, s.handleAPIProxy)
	}
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// handleOAuth is the credential relay: it accepts a username/password pair,
// attaches the confidential client credentials, and performs the password
// grant against the record system. The upstream status and body pass through
// unmodified.
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var creds credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Username == "" || creds.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if missing := s.config.MissingSecrets(); len(missing) > 0 {
		log.Printf("missing required server environment variables: %s", strings.Join(missing, ", "))
		writeJSONError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	ctx, span := s.tracer.Start(r.Context(), "relay.token_exchange")
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(s.config.Instance, "/")+servicenow.TokenEndpointPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		span.SetStatus(codes.Error, "build upstream request")
		writeJSONError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("token exchange upstream error: %v", err)
		span.SetStatus(codes.Error, "upstream unreachable")
		writeJSONError(w, http.StatusBadGateway, "Failed to reach ServiceNow")
		return
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("upstream.status", resp.StatusCode))
	passThrough(w, resp)
}

// handleAPIProxy relays an arbitrary record-system API call. The caller's
// bearer and domain headers are forwarded; the upstream response passes
// through verbatim.
func (s *Server) handleAPIProxy(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/api/") {
		writeJSONError(w, http.StatusBadRequest, "path query parameter must begin with /api/")
		return
	}

	if s.config.Instance == "" {
		log.Printf("missing required server environment variable: SN_INSTANCE")
		writeJSONError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	ctx, span := s.tracer.Start(r.Context(), "relay.api_proxy",
		trace.WithAttributes(
			attribute.String("proxy.method", r.Method),
			attribute.String("proxy.path", path),
		))
	defer span.End()

	var body io.Reader
	if r.Body != nil {
		body = r.Body
	}
	req, err := http.NewRequestWithContext(ctx, r.Method,
		strings.TrimRight(s.config.Instance, "/")+path, body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid path")
		return
	}
	for _, name := range forwardedHeaders {
		if value := r.Header.Get(name); value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("api proxy upstream error: %v", err)
		span.SetStatus(codes.Error, "upstream unreachable")
		writeJSONError(w, http.StatusBadGateway, "Failed to reach ServiceNow")
		return
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("upstream.status", resp.StatusCode))
	passThrough(w, resp)
}

// setCORSHeaders restricts browser access to the single configured origin.
func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", s.config.AllowedOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Domain")
}

// passThrough relays the upstream status, content type, and body unmodified.
func passThrough(w http.ResponseWriter, resp *http.Response) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
