package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	platformerrors "github.com/dxcis/loanwd/internal/platform/errors"
	"github.com/dxcis/loanwd/internal/transport"
)

func TestRelayExchangerSendsOnlyUserCredentials(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/servicenow-oauth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"t1","refresh_token":"r1","token_type":"Bearer","expires_in":1799}`))
	}))
	defer server.Close()

	selector := transport.NewSelector(transport.Production, server.URL)
	exchanger := NewRelayExchanger(selector, nil)

	token, err := exchanger.Exchange(context.Background(), "alice", "correct")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if token.AccessToken != "t1" || token.RefreshToken != "r1" {
		t.Errorf("unexpected token %+v", token)
	}

	want := map[string]string{"username": "alice", "password": "correct"}
	if len(gotBody) != len(want) || gotBody["username"] != "alice" || gotBody["password"] != "correct" {
		t.Errorf("relay exchange must send exactly username and password, got %v", gotBody)
	}
}

func TestDirectExchangerSendsFullPasswordGrant(t *testing.T) {
	var gotForm url.Values
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/servicenow-oauth" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"t1","refresh_token":"r1"}`))
	}))
	defer server.Close()

	selector := transport.NewSelector(transport.Development, server.URL)
	exchanger := NewDirectExchanger(selector, nil, "dev-client", "dev-secret")

	if _, err := exchanger.Exchange(context.Background(), "alice", "correct"); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", gotContentType)
	}
	want := map[string]string{
		"grant_type":    "password",
		"username":      "alice",
		"password":      "correct",
		"client_id":     "dev-client",
		"client_secret": "dev-secret",
	}
	for key, value := range want {
		if gotForm.Get(key) != value {
			t.Errorf("form field %s = %q, want %q", key, gotForm.Get(key), value)
		}
	}
}

func TestDecodeTokenResponseErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "error description preferred",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_grant","error_description":"Invalid credentials"}`,
			wantMessage: "Invalid credentials",
		},
		{
			name:        "error code fallback",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_grant"}`,
			wantMessage: "invalid_grant",
		},
		{
			name:        "synthesized from status",
			status:      http.StatusBadGateway,
			body:        "<html>oops</html>",
			wantMessage: "Authentication failed (502)",
		},
		{
			name:        "missing access token",
			status:      http.StatusOK,
			body:        `{"token_type":"Bearer"}`,
			wantMessage: "Authentication failed (missing access token)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			selector := transport.NewSelector(transport.Production, server.URL)
			exchanger := NewRelayExchanger(selector, nil)

			_, err := exchanger.Exchange(context.Background(), "alice", "wrongpass")
			if !platformerrors.HasCode(err, platformerrors.CodeAuthentication) {
				t.Fatalf("expected authentication error, got %v", err)
			}
			if err.Error() != tc.wantMessage {
				t.Errorf("message = %q, want %q", err.Error(), tc.wantMessage)
			}
		})
	}
}

func TestExchangeUnreachable(t *testing.T) {
	selector := transport.NewSelector(transport.Production, "http://127.0.0.1:1")
	exchanger := NewRelayExchanger(selector, nil)

	_, err := exchanger.Exchange(context.Background(), "alice", "correct")
	if !platformerrors.HasCode(err, platformerrors.CodeUpstreamUnreachable) {
		t.Fatalf("expected upstream unreachable error, got %v", err)
	}
}
