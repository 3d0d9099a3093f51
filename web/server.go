// ABOUTME: Console HTTP server: serves the page, accepts chat and experiment submissions, and streams region updates.
// ABOUTME: One console per browser session; chart downloads are served from a shared registry.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/console"
	"github.com/2389-research/agentdeck/diagram"
	"github.com/2389-research/agentdeck/format"
)

const (
	sessionCookie   = "agentdeck_session"
	maxFormBytes    = 64 << 10
	cleanupInterval = time.Minute
)

// ServerConfig holds the configuration for the console server.
type ServerConfig struct {
	Addr    string // listen address (default: "127.0.0.1:7780")
	Backend console.Backend

	// Renderer defaults to diagram.BrowserRenderer, which leaves diagrams to
	// the mermaid script on the page.
	Renderer diagram.Renderer
	Sanitize bool
	Labels   console.Labels

	Title        string
	Intro        string
	InitialGraph string
	HistorySize  int

	ChartCacheSize int
	MaxSessions    int
	SessionTTL     time.Duration

	// Mount, when set, registers extra routes such as the demo backend.
	Mount func(chi.Router)

	// Now overrides the clock used for download filenames.
	Now func() time.Time
}

// Server is the console HTTP server.
type Server struct {
	cfg         ServerConfig
	templates   *TemplateEngine
	charts      *ChartRegistry
	sessions    *SessionStore
	router      chi.Router
	stopCleanup func()
}

// NewServer creates a Server with the given configuration.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7780"
	}
	if cfg.Renderer == nil {
		cfg.Renderer = diagram.BrowserRenderer{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}
	charts, err := NewChartRegistry(cfg.ChartCacheSize)
	if err != nil {
		return nil, fmt.Errorf("initializing chart registry: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		templates: tmpl,
		charts:    charts,
	}
	s.sessions = NewSessionStore(cfg.MaxSessions, cfg.SessionTTL, s.newConsole)
	s.stopCleanup = s.sessions.StartCleanup(cleanupInterval)
	s.router = s.buildRouter()
	return s, nil
}

// newConsole builds the console behind one browser session. Its formatter
// binds chart downloads to the shared registry.
func (s *Server) newConsole() (*console.Console, error) {
	labels := s.cfg.Labels
	opts := []format.Option{format.WithBinder(s.charts.Bind)}
	if labels.DownloadCaption != "" {
		opts = append(opts, format.WithDownloadLabel(labels.DownloadCaption))
	}
	if !s.cfg.Sanitize {
		opts = append(opts, format.WithoutSanitizer())
	}
	return console.New(console.Options{
		Backend:      s.cfg.Backend,
		Formatter:    format.New(opts...),
		Renderer:     s.cfg.Renderer,
		Labels:       labels,
		InitialGraph: s.cfg.InitialGraph,
		HistorySize:  s.cfg.HistorySize,
	})
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Sessions exposes the session store.
func (s *Server) Sessions() *SessionStore { return s.sessions }

// Close stops session cleanup and closes every console.
func (s *Server) Close() {
	s.stopCleanup()
	s.sessions.Close()
}

// HTTPServer returns an http.Server for the configured address with
// timeouts suited to long-lived event streams.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/health", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Post("/chat", s.handleChat)
	r.Post("/experiments", s.handleExperiment)
	r.Get("/events", s.handleEvents)
	r.Get("/events/ws", s.handleEventsWS)
	r.Get("/charts/{chartID}", s.handleChart)

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		log.Printf("component=web action=static_unavailable err=%v", err)
	} else {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	}

	if s.cfg.Mount != nil {
		s.cfg.Mount(r)
	}
	return r
}

// session returns the caller's session, creating one and setting the cookie
// when the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess, nil
		}
	}
	sess, err := s.sessions.Create()
	if err != nil {
		log.Printf("component=web action=session_failed err=%v", err)
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	log.Printf("component=web action=session_created session=%s", sess.ID)
	return sess, nil
}

// handleHome renders the console page with every region pre-filled.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	_, clientRender := s.cfg.Renderer.(diagram.BrowserRenderer)
	data := PageData{
		Title:        s.cfg.Title,
		Intro:        s.cfg.Intro,
		Labels:       s.cfg.Labels,
		Snapshot:     sess.Console.Snapshot(),
		ClientRender: clientRender,
		SessionID:    sess.ID,
	}
	if err := s.templates.Render(w, "console.html", data); err != nil {
		log.Printf("component=web action=render_failed page=console err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

// handleState returns the caller's full view-model.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, sess.Console.Snapshot())
}

// handleChat starts a chat turn. Empty input is a no-op answered with 204.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	message, err := formValue(w, r, "message")
	if err != nil {
		writeFormError(w, err)
		return
	}
	turn, err := sess.Console.Chat.Submit(message)
	if err != nil {
		var verr *backend.ValidationError
		if errors.As(err, &verr) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"placeholder": turn.PlaceholderID})
}

// handleExperiment starts both research paths. An empty symbol is answered
// with 422 and the validation notice.
func (s *Server) handleExperiment(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, "session unavailable", http.StatusServiceUnavailable)
		return
	}
	symbol, err := formValue(w, r, "symbol")
	if err != nil {
		writeFormError(w, err)
		return
	}
	run, err := sess.Console.Experiments.Start(symbol)
	if err != nil {
		var verr *backend.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": sess.Console.Notice.Text()})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run": run.ID, "symbol": run.Symbol})
}

// handleChart serves a registered chart as a timestamped attachment.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chartID")
	chart, ok := s.charts.Lookup(id)
	if !ok {
		http.Error(w, "chart not found", http.StatusNotFound)
		return
	}
	dl, err := format.DownloadChart(chart.ImageData, s.cfg.Now())
	if err != nil {
		log.Printf("component=web action=chart_failed chart=%s err=%v", id, err)
		http.Error(w, "chart is not downloadable", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(dl.Body)
}

// formValue reads field from a JSON body or a form submission.
func formValue(w http.ResponseWriter, r *http.Request, field string) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decoding body: %w", err)
		}
		v, _ := body[field].(string)
		return v, nil
	}
	if strings.HasPrefix(mt, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			return "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue(field), nil
}

func writeFormError(w http.ResponseWriter, err error) {
	if isMaxBytesError(err) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "bad request", http.StatusBadRequest)
}

func isMaxBytesError(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("component=web action=encode_failed err=%v", err)
	}
}
