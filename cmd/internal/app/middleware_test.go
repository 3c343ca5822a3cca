package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"vows/cmd/internal/app/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestLogMeta(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		status     int
		wantLevel  slog.Level
		wantResult string
		wantClass  string
	}{
		{name: "ok", status: 200, wantLevel: slog.LevelInfo, wantResult: "success", wantClass: "2xx"},
		{name: "created", status: 201, wantLevel: slog.LevelInfo, wantResult: "success", wantClass: "2xx"},
		{name: "redirect", status: 302, wantLevel: slog.LevelInfo, wantResult: "redirect", wantClass: "3xx"},
		{name: "not found", status: 404, wantLevel: slog.LevelWarn, wantResult: "client_error", wantClass: "4xx"},
		{name: "conflict", status: 409, wantLevel: slog.LevelWarn, wantResult: "client_error", wantClass: "4xx"},
		{name: "unavailable", status: 503, wantLevel: slog.LevelError, wantResult: "server_error", wantClass: "5xx"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			level, result := requestLogMeta(tc.status)
			if level != tc.wantLevel || result != tc.wantResult {
				t.Fatalf("status=%d level=%v result=%q; want level=%v result=%q", tc.status, level, result, tc.wantLevel, tc.wantResult)
			}
			if got := statusClass(tc.status); got != tc.wantClass {
				t.Fatalf("statusClass(%d)=%q want=%q", tc.status, got, tc.wantClass)
			}
		})
	}
}

func TestWithRequestLogging_EmitsStatusAndResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}), log)

	req := httptest.NewRequest(http.MethodPut, "/api/invitations/some-id", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "http.request" || entry["status"] != float64(409) {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["status_class"] != "4xx" || entry["result"] != "client_error" {
		t.Fatalf("status classification missing: %v", entry)
	}
	if entry["level"] != "WARN" {
		t.Fatalf("4xx must log at warn: %v", entry["level"])
	}
}

func TestWithCORS_NoOriginPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: []string{"https://builder.vows.example"}}
	h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), cfg, discardLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/invitations", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("origin-less request must pass, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("no CORS headers expected without an Origin: %q", got)
	}
}

func TestWithCORS_PreflightAllowed(t *testing.T) {
	t.Parallel()

	cfg := Config{
		CORSAllowedOrigins:   []string{"https://builder.vows.example"},
		CORSAllowCredentials: true,
		CORSMaxAgeSeconds:    600,
	}

	h := WithCORS(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("next handler should not be called for preflight")
	}), cfg, discardLogger())

	req := httptest.NewRequest(http.MethodOptions, "/api/invitations", nil)
	req.Header.Set("Origin", "https://builder.vows.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://builder.vows.example" {
		t.Fatalf("allow-origin mismatch: %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials mismatch: %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Fatalf("requested headers must be echoed: %q", got)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("max-age mismatch: %q", got)
	}
	if !strings.Contains(strings.Join(rr.Header().Values("Vary"), ","), "Origin") {
		t.Fatalf("Vary: Origin missing: %v", rr.Header().Values("Vary"))
	}
}

func TestWithCORS_DisallowedOrigin(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: []string{"https://builder.vows.example"}}

	called := false
	h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), cfg, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	if called {
		t.Fatalf("next handler must not be called for denied origin")
	}
}

func TestOriginAllowed(t *testing.T) {
	t.Parallel()

	// The default config allows any localhost port so the builder dev
	// server works out of the box.
	defaults := []string{"http://localhost:*", "http://127.0.0.1:*"}

	cases := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{name: "exact match", origin: "https://builder.vows.example", allowed: []string{"https://builder.vows.example"}, want: true},
		{name: "case folded", origin: "https://Builder.Vows.Example", allowed: []string{"https://builder.vows.example"}, want: true},
		{name: "star allows all", origin: "https://anything.example", allowed: []string{"*"}, want: true},
		{name: "default dev localhost", origin: "http://localhost:5173", allowed: defaults, want: true},
		{name: "default dev loopback", origin: "http://127.0.0.1:55123", allowed: defaults, want: true},
		{name: "wildcard port no port", origin: "http://localhost", allowed: defaults, want: true},
		{name: "wildcard port bad port", origin: "http://localhost:notaport", allowed: defaults, want: false},
		{name: "wildcard port host suffix", origin: "http://localhost.evil.example:80", allowed: defaults, want: false},
		{name: "scheme mismatch", origin: "https://localhost:5173", allowed: defaults, want: false},
		{name: "empty list", origin: "http://localhost:5173", allowed: nil, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := originAllowed(tc.origin, tc.allowed); got != tc.want {
				t.Fatalf("originAllowed(%q, %v)=%v want %v", tc.origin, tc.allowed, got, tc.want)
			}
		})
	}
}

func TestWithCORS_WildcardPortAllowed(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: []string{"http://127.0.0.1:*"}}

	h := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), cfg, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://127.0.0.1:55123")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://127.0.0.1:55123" {
		t.Fatalf("allow-origin mismatch: %q", got)
	}
}

func TestWithSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := WithSecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Fatalf("%s=%q want %q", header, got, want)
		}
	}
}

// The dashboard feed upgrades through the full production middleware
// composition; every wrapper between the gateway and the connection has to
// keep the hijacker reachable or the upgrade fails.
func TestWebSocketUpgradeThroughMiddlewareChain(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"}}
	log := discardLogger()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/dashboard", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"connected"}`)); err != nil {
			t.Errorf("write: %v", err)
		}
	})

	handler := metrics.InstrumentHandler(WithRequestLogging(WithSecurityHeaders(WithCORS(mux, cfg, log)), log))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("upgrade through middleware chain failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	typ, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText || !strings.Contains(string(msg), "connected") {
		t.Fatalf("unexpected first frame: %s", msg)
	}
}
