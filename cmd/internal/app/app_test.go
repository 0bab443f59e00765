package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func newTestApp(t *testing.T) (*App, http.Handler) {
	t.Helper()

	cfg := Config{
		HTTPAddr:         "127.0.0.1:0",
		Env:              "development",
		JWTSecret:        strings.Repeat("s", 32),
		JWTIssuer:        "freemonitor-test",
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       168 * time.Hour,
		AuthRateLimit:    5,
		AuthRateWindow:   time.Minute,
		AuthMaxBodyBytes: 1 << 20,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a)

	var handler http.Handler = mux
	handler = WithCORS(handler, cfg, log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, log)

	return a, handler
}

func doLogin(handler http.Handler, remote, email, pw string) *httptest.ResponseRecorder {
	body := `{"email":"` + email + `","password":"` + pw + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestApp_MemoryModeLoginFlow(t *testing.T) {
	_, handler := newTestApp(t)

	// The in-memory development run seeds a well-known login.
	rr := doLogin(handler, "203.0.113.1:40000", "e2e@freemonitor.dev", "123456")
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}

	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("missing tokens in %s", rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	me := httptest.NewRecorder()
	handler.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("/me status=%d body=%s", me.Code, me.Body.String())
	}
	if !strings.Contains(me.Body.String(), "e2e@freemonitor.dev") {
		t.Fatalf("/me body=%s", me.Body.String())
	}
}

func TestApp_LoginRateLimited(t *testing.T) {
	_, handler := newTestApp(t)

	const remote = "203.0.113.2:40000"
	for i := 0; i < 5; i++ {
		rr := doLogin(handler, remote, "e2e@freemonitor.dev", "wrong")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i+1, rr.Code)
		}
	}

	rr := doLogin(handler, remote, "e2e@freemonitor.dev", "123456")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("6th attempt status=%d want 429", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining=%q", got)
	}
	if !strings.Contains(rr.Body.String(), "too_many_requests") {
		t.Fatalf("429 body=%s", rr.Body.String())
	}

	// Another client is unaffected.
	other := doLogin(handler, "198.51.100.3:40000", "e2e@freemonitor.dev", "123456")
	if other.Code != http.StatusOK {
		t.Fatalf("other client status=%d", other.Code)
	}
}

func TestApp_HealthEndpoints(t *testing.T) {
	_, handler := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "freemonitor_auth_rate_limited_total") {
		t.Fatalf("metrics body missing auth counter")
	}
}
