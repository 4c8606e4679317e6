package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func devServer(t *testing.T, instance string) *httptest.Server {
	t.Helper()
	cfg := testConfig(instance)
	cfg.Mode = "development"
	server := NewServer(cfg)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	relay := httptest.NewServer(mux)
	t.Cleanup(relay.Close)
	return relay
}

func TestDevelopmentRelayRewritesTokenPath(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	instance := fakeInstance(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"t1","refresh_token":"r1"}`))
	})

	relay := devServer(t, instance.URL)

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", "alice")
	form.Set("password", "correct")
	form.Set("client_id", "dev-client")
	form.Set("client_secret", "dev-secret")
	resp, err := http.Post(relay.URL+"/servicenow-oauth", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if gotPath != "/oauth_token.do" {
		t.Errorf("upstream path = %q, want /oauth_token.do", gotPath)
	}
	if gotForm.Get("client_id") != "dev-client" {
		t.Errorf("caller-supplied credentials must be forwarded verbatim, got %v", gotForm)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"access_token":"t1","refresh_token":"r1"}` {
		t.Errorf("body = %q", body)
	}
}

func TestDevelopmentRelayStripsAPIPrefix(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	instance := fakeInstance(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[]}`))
	})

	relay := devServer(t, instance.URL)

	req, err := http.NewRequest(http.MethodGet, relay.URL+"/servicenow-api/api/now/table/sys_user?sysparm_limit=1", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer t1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if gotPath != "/api/now/table/sys_user" {
		t.Errorf("upstream path = %q, want prefix stripped", gotPath)
	}
	if gotQuery != "sysparm_limit=1" {
		t.Errorf("query = %q, want preserved", gotQuery)
	}
	if gotAuth != "Bearer t1" {
		t.Errorf("Authorization = %q, want forwarded", gotAuth)
	}
}

func TestDevelopmentRelayUpstreamError(t *testing.T) {
	relay := devServer(t, "http://127.0.0.1:1")

	resp, err := http.Get(relay.URL + "/servicenow-api/api/now/table/sys_user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestDevelopmentRelayDisablesProductionEndpoints(t *testing.T) {
	instance := fakeInstance(t, func(w http.ResponseWriter, r *http.Request) {})
	relay := devServer(t, instance.URL)

	resp, err := http.Post(relay.URL+OAuthPath, "application/json", strings.NewReader(`{"username":"a","password":"b"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("production endpoint should be absent in development mode, got %d", resp.StatusCode)
	}
}
