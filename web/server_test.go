// ABOUTME: Tests for the console HTTP server and chi router against the fixture backend.
// ABOUTME: Covers sessions, chat and experiment submission, chart downloads, and the SSE and websocket streams.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/console"
	"github.com/2389-research/agentdeck/devbackend"
	"github.com/2389-research/agentdeck/diagram"
	"github.com/2389-research/agentdeck/sse"
)

var fixedNow = time.UnixMilli(1700000000000)

func newTestServer(t *testing.T, mutate ...func(*ServerConfig)) *Server {
	t.Helper()
	api := httptest.NewServer(devbackend.New())
	t.Cleanup(api.Close)
	client, err := backend.NewClient(api.URL, backend.WithHTTPClient(api.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	cfg := ServerConfig{
		Backend:      client,
		Sanitize:     true,
		Labels:       console.DefaultLabels(),
		Title:        "AgentDeck",
		Intro:        "**hello** console",
		InitialGraph: diagram.Pipeline,
		MaxSessions:  10,
		Now:          func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

// open loads the page and returns the session cookie it set.
func open(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("expected a session cookie")
	return nil
}

func postForm(srv *Server, cookie *http.Cookie, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func consoleFor(t *testing.T, srv *Server, cookie *http.Cookie) *console.Console {
	t.Helper()
	sess, ok := srv.sessions.Get(cookie.Value)
	if !ok {
		t.Fatalf("session %s not found", cookie.Value)
	}
	return sess.Console
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServerHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestNewServerRequiresBackend(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("expected error without a backend")
	}
}

func TestServerHomeRendersRegions(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"<title>AgentDeck</title>",
		"<strong>hello</strong> console",
		`id="chat-box"`,
		`id="panel-manual"`,
		`id="panel-official"`,
		`data-client-render="true"`,
		"mermaid.min.js",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if srv.sessions.Len() != 1 {
		t.Errorf("expected one session, got %d", srv.sessions.Len())
	}
}

func TestServerHomeShowsSessionID(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var id string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			id = c.Value
		}
	}
	if id == "" {
		t.Fatal("expected a session cookie")
	}
	if !strings.Contains(rec.Body.String(), "session <code>"+id+"</code>") {
		t.Error("expected the session id in the page footer")
	}
}

func TestServerReusesSessionFromCookie(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var snap console.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.ID != consoleFor(t, srv, cookie).ID {
		t.Error("expected the cookie's console")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no new cookie for a known session")
	}
	if srv.sessions.Len() != 1 {
		t.Errorf("expected one session, got %d", srv.sessions.Len())
	}
}

func TestChatEmptyIsNoContent(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	rec := postForm(srv, cookie, "/chat", url.Values{"message": {"   "}})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if n := len(consoleFor(t, srv, cookie).Transcript.Entries()); n != 0 {
		t.Errorf("expected empty transcript, got %d entries", n)
	}
}

func TestChatRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	rec := postForm(srv, cookie, "/chat", url.Values{"message": {"血壓計顯示 ERR 1"}})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	placeholder := body["placeholder"]
	if !strings.HasPrefix(placeholder, "loading-") {
		t.Fatalf("unexpected placeholder id %q", placeholder)
	}

	c := consoleFor(t, srv, cookie)
	waitFor(t, "reply", func() bool {
		e, ok := c.Transcript.Entry(placeholder)
		return ok && !e.Pending
	})
	waitFor(t, "intent", func() bool {
		return strings.Contains(c.Intent.HTML(), "<b>device_expert</b>")
	})
	waitFor(t, "annotated diagram", func() bool {
		return strings.Contains(c.Diagram.Snapshot().Source, "class device_expert activeNode")
	})
}

func TestChatAcceptsJSON(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestChatRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	rec := postForm(srv, cookie, "/chat", url.Values{"message": {strings.Repeat("x", maxFormBytes+1)}})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestChartDownload(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	rec := postForm(srv, cookie, "/chat", url.Values{"message": {"show me a chart"}})
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)

	c := consoleFor(t, srv, cookie)
	var html string
	waitFor(t, "chart reply", func() bool {
		e, ok := c.Transcript.Entry(body["placeholder"])
		html = e.HTML
		return ok && !e.Pending
	})

	_, rest, ok := strings.Cut(html, `data-href="/charts/`)
	if !ok {
		t.Fatalf("expected a registry download link in %.200q", html)
	}
	id, _, _ := strings.Cut(rest, `"`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=Report_1700000000000.png" {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("unexpected Content-Type %q", rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG bytes")
	}
}

func TestChartUnknown(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/charts/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestExperimentEmptySymbol(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	rec := postForm(srv, cookie, "/experiments", url.Values{"symbol": {""}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != console.DefaultLabels().SymbolRequired {
		t.Errorf("unexpected notice %q", body["error"])
	}
	if consoleFor(t, srv, cookie).Manual.Snapshot().Phase != console.PhaseIdle {
		t.Error("expected panels untouched")
	}
}

func TestExperimentRunsBothPaths(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	rec := postForm(srv, cookie, "/experiments", url.Values{"symbol": {"aapl"}})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["run"] == "" || body["symbol"] != "aapl" {
		t.Errorf("unexpected body %v", body)
	}

	c := consoleFor(t, srv, cookie)
	waitFor(t, "both panels", func() bool {
		return c.Manual.Snapshot().Phase == console.PhaseCompleted &&
			c.Official.Snapshot().Phase == console.PhaseCompleted
	})
	if got := c.Official.Snapshot().Status; got != console.DefaultLabels().Completed {
		t.Errorf("expected completed status, got %q", got)
	}
	if !strings.Contains(c.Official.Snapshot().HTML, "<strong>AAPL 深度分析</strong>") {
		t.Errorf("unexpected official html %q", c.Official.Snapshot().HTML)
	}
}

func TestExperimentFailureIsolation(t *testing.T) {
	srv := newTestServer(t)
	cookie := open(t, srv)

	postForm(srv, cookie, "/experiments", url.Values{"symbol": {devbackend.SymbolDown}})
	c := consoleFor(t, srv, cookie)
	waitFor(t, "both panels", func() bool {
		return c.Manual.Snapshot().Phase != console.PhaseRunning &&
			c.Official.Snapshot().Phase != console.PhaseRunning
	})
	if c.Manual.Snapshot().Phase != console.PhaseCompleted {
		t.Errorf("expected manual to complete, got %s", c.Manual.Snapshot().Phase)
	}
	official := c.Official.Snapshot()
	if official.Phase != console.PhaseErrored || !strings.Contains(official.HTML, "HTTP 錯誤! 狀態碼: 503") {
		t.Errorf("unexpected official panel %+v", official)
	}
}

func TestMountSharesRouter(t *testing.T) {
	fixture := devbackend.New()
	srv := newTestServer(t, func(cfg *ServerConfig) {
		cfg.Mount = func(r chi.Router) { fixture.Register(r) }
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected mounted backend to answer, got %d", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/static/js/console.js", "/static/css/console.css"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestEventsStreamReplaysAndFollows(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) { cfg.InitialGraph = "" })
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cookie := open(t, srv)
	postForm(srv, cookie, "/experiments", url.Values{"symbol": {"MSFT"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?after=0", nil)
	req.AddCookie(cookie)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	r := sse.NewReader(resp.Body)
	var last int64
	seenComplete := map[string]bool{}
	for len(seenComplete) < 2 {
		evt, err := r.Next()
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		seq, err := strconv.ParseInt(evt.ID, 10, 64)
		if err != nil || seq <= last {
			t.Fatalf("expected increasing ids, got %q after %d", evt.ID, last)
		}
		last = seq

		var ce console.Event
		if err := json.Unmarshal([]byte(evt.Data), &ce); err != nil {
			t.Fatal(err)
		}
		if string(ce.Kind) != evt.Type {
			t.Errorf("event type %q does not match kind %q", evt.Type, ce.Kind)
		}
		if ce.Kind == console.EventPanelComplete {
			seenComplete[ce.Target] = true
		}
	}
}

func TestEventsResumeSkipsSeen(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) { cfg.InitialGraph = "" })
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cookie := open(t, srv)
	c := consoleFor(t, srv, cookie)
	run, err := c.Experiments.Start("MSFT")
	if err != nil {
		t.Fatal(err)
	}
	run.Wait()
	seq := c.Snapshot().Seq

	// A chat turn after the resume point is the first thing streamed.
	postForm(srv, cookie, "/chat", url.Values{"message": {"hello"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	req.Header.Set("Last-Event-ID", strconv.FormatInt(seq, 10))
	req.AddCookie(cookie)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	evt, err := sse.NewReader(resp.Body).Next()
	if err != nil {
		t.Fatal(err)
	}
	if evt.ID != strconv.FormatInt(seq+1, 10) || evt.Type != string(console.EventTranscriptAppend) {
		t.Errorf("expected first unseen event, got id=%s type=%s", evt.ID, evt.Type)
	}
}

func TestEventsWebsocket(t *testing.T) {
	srv := newTestServer(t, func(cfg *ServerConfig) { cfg.InitialGraph = "" })
	ts := httptest.NewServer(srv)
	defer ts.Close()

	cookie := open(t, srv)
	postForm(srv, cookie, "/experiments", url.Values{"symbol": {"MSFT"}})

	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events/ws?after=0"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v (resp=%v)", err, resp)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var evt console.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if evt.Kind != console.EventPanelReset || evt.Seq != 1 {
		t.Errorf("expected replay to start with the first reset, got %+v", evt)
	}
}

func TestReplay(t *testing.T) {
	history := []console.Event{{Seq: 5}, {Seq: 6}, {Seq: 7}}
	tests := []struct {
		name    string
		last    int64
		wantLen int
		wantGap bool
	}{
		{"fresh client", 0, 3, false},
		{"contiguous", 4, 3, false},
		{"mid history", 6, 1, false},
		{"caught up", 7, 0, false},
		{"fell behind", 2, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gap := replay(history, tt.last)
			if len(got) != tt.wantLen || gap != tt.wantGap {
				t.Errorf("replay(%d) = %d events gap=%t, want %d gap=%t", tt.last, len(got), gap, tt.wantLen, tt.wantGap)
			}
		})
	}
}

func TestLastSeen(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events?after=12", nil)
	if lastSeen(req) != 12 {
		t.Error("expected query value")
	}
	req.Header.Set("Last-Event-ID", "30")
	if lastSeen(req) != 30 {
		t.Error("expected header to win")
	}
	req.Header.Set("Last-Event-ID", "junk")
	if lastSeen(req) != 0 {
		t.Error("expected junk to read as zero")
	}
}

func TestStatusRecorderPassesThroughFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	var w http.ResponseWriter = &statusRecorder{ResponseWriter: rec}
	f, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("expected statusRecorder to implement http.Flusher")
	}
	f.Flush()
	if !rec.Flushed {
		t.Error("expected flush to reach the underlying writer")
	}
	if _, _, err := w.(http.Hijacker).Hijack(); err == nil {
		t.Error("expected hijack to fail on a recorder")
	}
}

func TestFormValueRejectsBadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/chat", io.NopCloser(strings.NewReader("{")))
	req.Header.Set("Content-Type", "application/json")
	_, err := formValue(httptest.NewRecorder(), req, "message")
	if err == nil || isMaxBytesError(err) {
		t.Errorf("expected a decode error, got %v", err)
	}
	if errors.Is(err, io.EOF) {
		t.Error("expected unexpected EOF, not EOF")
	}
}
