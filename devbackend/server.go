// ABOUTME: In-process stand-in for the analysis backend, serving the chat and deep-research endpoints.
// ABOUTME: Used by -demo mode and integration tests; replies are deterministic per message and symbol.
package devbackend

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/diagram"
)

// Symbols that trigger the failure replies.
const (
	SymbolFail  = "FAIL"  // manual path answers 500 without data
	SymbolError = "ERR"   // official path answers 200 with an error field
	SymbolDown  = "DOWN"  // official path answers 503
	SymbolShort = "SHORT" // official path answers with a too-short text
)

const (
	historyTurns = 10
	maxUsers     = 1024
	maxBodyBytes = 1 << 20
)

// Server serves the three backend endpoints.
type Server struct {
	router    chi.Router
	delay     time.Duration
	now       func() time.Time
	charts    bool
	endpoints backend.Endpoints

	mu        sync.Mutex
	histories *lru.Cache[string, []string]
}

// Option configures a Server.
type Option func(*Server)

// WithDelay makes every reply wait d, or less if the request is cancelled.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithClock overrides the clock used for report dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithoutCharts disables the embedded PNG in visualizer replies.
func WithoutCharts() Option {
	return func(s *Server) { s.charts = false }
}

// New builds a Server mounted on the default endpoint paths.
func New(opts ...Option) *Server {
	histories, err := lru.New[string, []string](maxUsers)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	s := &Server{
		now:       time.Now,
		charts:    true,
		endpoints: backend.DefaultEndpoints(),
		histories: histories,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.Register(r)
	s.router = r
	return s
}

// Register adds the backend endpoints to r, so the fixture can share a
// router with the console page.
func (s *Server) Register(r chi.Router) {
	r.Post(s.endpoints.Chat, s.handleChat)
	r.Post(s.endpoints.Manual, s.handleManual)
	r.Post(s.endpoints.Official, s.handleOfficial)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// History returns the recent messages recorded for userID, oldest first.
func (s *Server) History(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _ := s.histories.Get(userID)
	return append([]string(nil), h...)
}

func (s *Server) remember(userID, message, reply string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _ := s.histories.Get(userID)
	h = append(append([]string(nil), h...), message, reply)
	if len(h) > historyTurns {
		h = h[len(h)-historyTurns:]
	}
	s.histories.Add(userID, h)
	return len(h) / 2
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req backend.ChatRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "message is required")
		return
	}
	if req.UserID == "" {
		req.UserID = backend.DefaultUserID
	}
	if !s.wait(r) {
		return
	}

	intent := Classify(req.Message)
	emergency := IsEmergency(req.Message)
	text := replyFor(intent, emergency)
	if intent == diagram.IntentVisualizer && s.charts {
		img, err := TrendChart(readingsFor(req.UserID))
		if err != nil {
			log.Printf("component=devbackend action=chart_failed user=%s err=%v", req.UserID, err)
		} else {
			text += "\n![血壓趨勢圖](" + img + ")"
		}
	}
	turns := s.remember(req.UserID, req.Message, text)
	log.Printf("component=devbackend action=chat user=%s intent=%s emergency=%t turns=%d", req.UserID, intent, emergency, turns)

	graph := diagram.Pipeline
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": backend.ChatPayload{
			Text:        text,
			Intent:      string(intent),
			IsEmergency: emergency,
			Graph:       &graph,
		},
	})
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}
	if symbol == SymbolFail {
		writeDetail(w, http.StatusInternalServerError, "manual pipeline crashed")
		return
	}
	report := manualReport(symbol, s.now())
	log.Printf("component=devbackend action=manual symbol=%s", symbol)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data": map[string]string{
			"data_raw":       report.raw,
			"final_response": report.final,
		},
	})
}

func (s *Server) handleOfficial(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}
	log.Printf("component=devbackend action=official symbol=%s", symbol)
	switch symbol {
	case SymbolDown:
		writeDetail(w, http.StatusServiceUnavailable, "agent unavailable")
	case SymbolError:
		writeJSON(w, http.StatusOK, map[string]string{"error": "deep agent exceeded its step budget"})
	case SymbolShort:
		writeJSON(w, http.StatusOK, officialBody("ok"))
	default:
		writeJSON(w, http.StatusOK, officialBody(officialAnalysis(symbol, s.now())))
	}
}

// symbol decodes and validates the research request, then applies the delay.
func (s *Server) symbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req backend.SymbolRequest
	if err := decode(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return "", false
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "symbol is required")
		return "", false
	}
	if !s.wait(r) {
		return "", false
	}
	return symbol, true
}

// wait sleeps for the configured delay and reports false if the client went away.
func (s *Server) wait(r *http.Request) bool {
	if s.delay <= 0 {
		return true
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		log.Printf("component=devbackend action=abandoned path=%s", r.URL.Path)
		return false
	}
}

func officialBody(text string) map[string]any {
	return map[string]any{
		"result": map[string]any{
			"final_response": []map[string]string{{"type": "text", "text": text}},
		},
	}
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	return json.Unmarshal(body, v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("component=devbackend action=encode_failed err=%v", err)
	}
}
