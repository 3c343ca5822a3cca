// Package main provides a CI-friendly smoke test for the Vows server.
//
// It validates the full happy path against a running instance, driving the
// draft through the real builder store and syncer:
//   - owner registration + login
//   - builder draft -> first save (create) -> edit -> second save (update)
//   - pay (dev route) -> publish
//   - dashboard WebSocket handshake + subprotocol selection
//   - public invitation fetch by slug
//   - guest RSVP submission
//   - rsvp.created fanout to the owner dashboard feed
//   - owner RSVP listing
//
// The server must run with VOWS_DEV_FAKE_PAYMENTS=true.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"vows/cmd/internal/builder"
)

const (
	wsSubprotocol = "vows.dashboard.v1"
	maxReadBytes  = 1 << 20 // 1MiB
)

type userEnvelope struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type loginEnvelope struct {
	userEnvelope
	Token string `json:"token"`
}

type invitationEnvelope struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Slug     string `json:"slug,omitempty"`
	Headline string `json:"headline,omitempty"`
}

type rsvpEnvelope struct {
	ID        string `json:"id"`
	GuestName string `json:"guest_name"`
	Attending bool   `json:"attending"`
}

type feedEvent struct {
	Type         string       `json:"type"`
	InvitationID string       `json:"invitation_id"`
	RSVP         rsvpEnvelope `json:"rsvp"`
	Timestamp    time.Time    `json:"timestamp"`
}

func main() {
	var (
		base    = flag.String("base", "http://127.0.0.1:8080", "Server base URL")
		origin  = flag.String("origin", "http://localhost", "Origin header for the WS handshake")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	baseURL := strings.TrimRight(*base, "/")
	if _, err := url.Parse(baseURL); err != nil {
		fatalf("invalid -base: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	nonce := time.Now().UnixNano()

	// Owner registration + login.
	email := fmt.Sprintf("smoke-%d@example.com", nonce)
	mustPost(client, baseURL+"/auth/register", "",
		fmt.Sprintf(`{"email":%q,"display_name":"Smoke","password":"long enough pw"}`, email),
		http.StatusCreated, nil)

	var login loginEnvelope
	mustPost(client, baseURL+"/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":"long enough pw"}`, email),
		http.StatusOK, &login)
	if strings.TrimSpace(login.Token) == "" {
		fatalf("login returned empty token")
	}
	if *verbose {
		fmt.Printf("owner=%s\n", login.User.ID)
	}

	// Build the draft through the client-side store and save it through the
	// syncer, exactly the way the builder UI does.
	store := builder.NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.SetTemplate("botanical")
	store.SetPartner1Name("June")
	store.SetPartner2Name("Theo")
	store.SetWeddingDate("2027-06-12")
	store.SetRSVPConfig(builder.RSVPConfig{
		Enabled: true,
		Fields:  builder.RSVPFields{Email: true, GuestCount: true, MaxGuests: 4},
	})

	syncer := builder.NewSyncer(store, baseURL,
		builder.WithAuthToken(login.Token),
		builder.WithHTTPClient(client),
		builder.WithSaveTimeout(*timeout),
	)

	ctx := context.Background()
	if err := syncer.Save(ctx); err != nil {
		fatalf("first save (create): %v", err)
	}
	doc := store.Document()
	if doc.InvitationID == "" {
		fatalf("first save did not adopt a server id (save error: %q)", doc.SaveError)
	}
	if doc.IsDirty {
		fatalf("saved draft must be clean")
	}

	// A second save on a clean draft is a no-op; an edit makes it a PUT.
	store.SetHeadline("We're getting married")
	store.AddLocation(builder.Location{Name: "Chapel", Address: "Hill 1", Time: "14:00", Type: "ceremony"})
	if err := syncer.Save(ctx); err != nil {
		fatalf("second save (update): %v", err)
	}

	invID := store.Document().InvitationID
	var inv invitationEnvelope
	mustGet(client, baseURL+"/api/invitations/"+invID, login.Token, http.StatusOK, &inv)
	if inv.Headline != "We're getting married" {
		fatalf("second save did not land: headline=%q", inv.Headline)
	}

	// Draft -> paid -> published.
	mustPost(client, baseURL+"/api/invitations/"+invID+"/pay", login.Token, "",
		http.StatusOK, &inv)
	if inv.Status != "paid" {
		fatalf("expected status=paid after dev pay, got %q (is VOWS_DEV_FAKE_PAYMENTS set?)", inv.Status)
	}

	slug := fmt.Sprintf("june-theo-%d", nonce)
	mustPost(client, baseURL+"/api/invitations/"+invID+"/publish", login.Token,
		fmt.Sprintf(`{"slug":%q}`, slug), http.StatusOK, &inv)

	// Dashboard feed.
	conn := mustDialDashboard(baseURL, *origin, login.Token, invID, *timeout)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	// The handshake returns before the server registers the subscriber;
	// give it a beat so the RSVP below is guaranteed to fan out.
	time.Sleep(300 * time.Millisecond)

	// Guest-facing path.
	mustGet(client, baseURL+"/api/public/invitations/"+slug, "", http.StatusOK, nil)

	var rsvp rsvpEnvelope
	mustPost(client, baseURL+"/api/public/invitations/"+slug+"/rsvps", "",
		`{"guest_name":"Ada Guest","email":"ada@example.com","attending":true,"guest_count":2}`,
		http.StatusCreated, &rsvp)

	// The accepted RSVP must arrive on the owner feed.
	ev := mustReadEvent(conn, *timeout)
	if ev.Type != "rsvp.created" {
		fatalf("unexpected event type: %q", ev.Type)
	}
	if ev.InvitationID != invID {
		fatalf("event invitation_id mismatch: got=%q want=%q", ev.InvitationID, invID)
	}
	if ev.RSVP.GuestName != "Ada Guest" || !ev.RSVP.Attending {
		fatalf("event rsvp mismatch: %+v", ev.RSVP)
	}

	var listed struct {
		RSVPs []rsvpEnvelope `json:"rsvps"`
	}
	mustGet(client, baseURL+"/api/invitations/"+invID+"/rsvps", login.Token, http.StatusOK, &listed)
	if len(listed.RSVPs) != 1 || listed.RSVPs[0].ID != ev.RSVP.ID {
		fatalf("owner listing mismatch: %+v", listed.RSVPs)
	}

	fmt.Printf("OK: owner=%s invitation=%s slug=%s rsvp=%s\n", login.User.ID, invID, slug, ev.RSVP.ID)
}

func mustDialDashboard(baseURL, origin, token, invitationID string, timeout time.Duration) *websocket.Conn {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) +
		"/ws/dashboard?invitation_id=" + url.QueryEscape(invitationID)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{wsSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("dashboard dial: %v", err)
	}

	if got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol")); got != "" && got != wsSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, wsSubprotocol)
	}

	conn.SetReadLimit(maxReadBytes)
	return conn
}

func mustReadEvent(conn *websocket.Conn, timeout time.Duration) feedEvent {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	mt, data, err := conn.Read(ctx)
	if err != nil {
		fatalf("read feed event: %v", err)
	}
	if mt != websocket.MessageText {
		fatalf("unexpected message type: %v", mt)
	}

	var ev feedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		fatalf("bad feed event json: %v", err)
	}
	return ev
}

func mustPost(client *http.Client, url, token, body string, wantStatus int, out any) {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, rd)
	if err != nil {
		fatalf("build request %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	doRequest(client, req, token, wantStatus, out)
}

func mustGet(client *http.Client, url, token string, wantStatus int, out any) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fatalf("build request %s: %v", url, err)
	}
	doRequest(client, req, token, wantStatus, out)
}

func doRequest(client *http.Client, req *http.Request, token string, wantStatus int, out any) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("%s %s: read body: %v", req.Method, req.URL, err)
	}
	if resp.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", req.Method, req.URL, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s: decode: %v", req.Method, req.URL, err)
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
