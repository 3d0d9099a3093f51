// ABOUTME: Console configuration assembled from defaults, an optional YAML file, .env, and AGENTDECK_* variables.
// ABOUTME: Enforces the loopback-only bind rule and validates backend, renderer, and sizing settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/console"
	"github.com/2389-research/agentdeck/diagram"
)

// Renderer modes.
const (
	RendererClient = "client"
	RendererMMDC   = "mmdc"
)

var (
	ErrNonLoopbackBind = errors.New(
		"bind is a non-loopback address but remote access is not allowed; set AGENTDECK_ALLOW_REMOTE=true to serve beyond localhost",
	)
	ErrUnknownRenderer   = errors.New("renderer must be \"client\" or \"mmdc\"")
	ErrInvalidBackendURL = errors.New("backend_url must be an absolute http or https URL")
)

// Config holds every console setting.
type Config struct {
	Bind        string `yaml:"bind"`
	AllowRemote bool   `yaml:"allow_remote"`

	BackendURL     string            `yaml:"backend_url"`
	Endpoints      backend.Endpoints `yaml:"endpoints"`
	UserID         string            `yaml:"user_id"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`

	// Demo serves the built-in fixture backend beside the console and
	// points the client at it, ignoring BackendURL.
	Demo bool `yaml:"demo"`

	Sanitize bool `yaml:"sanitize"`

	Renderer       string        `yaml:"renderer"`
	MermaidBinary  string        `yaml:"mermaid_binary"`
	RenderCacheTTL time.Duration `yaml:"render_cache_ttl"`

	ChartCacheSize int           `yaml:"chart_cache_size"`
	MaxSessions    int           `yaml:"max_sessions"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	HistorySize    int           `yaml:"history_size"`

	Title        string         `yaml:"title"`
	Intro        string         `yaml:"intro"`
	InitialGraph string         `yaml:"initial_graph"`
	Labels       console.Labels `yaml:"labels"`
}

// DefaultIntro is the markdown shown above the chat panel.
const DefaultIntro = `**AI 健康與投資分析台**

左側與代理對話，右側流程圖會標示本次意圖經過的節點。
下方輸入標的代號，即可同時比較 *手動流程* 與 *官方自主代理* 的分析結果。`

// Default returns a Config with every setting at its default.
func Default() *Config {
	return &Config{
		Bind:           "127.0.0.1:7780",
		BackendURL:     "http://127.0.0.1:8000",
		Endpoints:      backend.DefaultEndpoints(),
		UserID:         backend.DefaultUserID,
		Sanitize:       true,
		Renderer:       RendererClient,
		MermaidBinary:  "mmdc",
		RenderCacheTTL: 10 * time.Minute,
		ChartCacheSize: 256,
		MaxSessions:    100,
		SessionTTL:     24 * time.Hour,
		HistorySize:    console.DefaultHistorySize,
		Title:          "AgentDeck",
		Intro:          DefaultIntro,
		InitialGraph:   diagram.Pipeline,
		Labels:         console.DefaultLabels(),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the process environment. Call Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values; unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays AGENTDECK_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("AGENTDECK_BIND", &c.Bind)
	str("AGENTDECK_BACKEND_URL", &c.BackendURL)
	str("AGENTDECK_USER_ID", &c.UserID)
	str("AGENTDECK_RENDERER", &c.Renderer)
	str("AGENTDECK_MERMAID_BINARY", &c.MermaidBinary)

	for key, dst := range map[string]*bool{
		"AGENTDECK_ALLOW_REMOTE": &c.AllowRemote,
		"AGENTDECK_SANITIZE":     &c.Sanitize,
		"AGENTDECK_DEMO":         &c.Demo,
	} {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			continue
		}
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	if v := strings.TrimSpace(getenv("AGENTDECK_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AGENTDECK_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// parseBool accepts strconv's forms plus yes/no.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := checkBind(c.Bind, c.AllowRemote); err != nil {
		return err
	}
	if !c.Demo {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidBackendURL, c.BackendURL)
		}
	}
	switch c.Renderer {
	case RendererClient, RendererMMDC:
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownRenderer, c.Renderer)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative: %s", c.RequestTimeout)
	}
	if c.RenderCacheTTL <= 0 {
		return fmt.Errorf("render_cache_ttl must be positive: %s", c.RenderCacheTTL)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive: %s", c.SessionTTL)
	}
	if c.ChartCacheSize <= 0 {
		return fmt.Errorf("chart_cache_size must be positive: %d", c.ChartCacheSize)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive: %d", c.MaxSessions)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be positive: %d", c.HistorySize)
	}
	return nil
}

// checkBind refuses non-loopback binds unless remote access is allowed.
// Only 127.0.0.0/8, ::1, and "localhost" count as loopback; an empty host
// listens on every interface.
func checkBind(bind string, allowRemote bool) error {
	host, _, err := net.SplitHostPort(bind)
	if err != nil {
		return fmt.Errorf("invalid bind address %q: %w", bind, err)
	}
	if allowRemote {
		return nil
	}
	ip := net.ParseIP(host)
	switch {
	case ip != nil && ip.IsLoopback():
		return nil
	case host == "localhost":
		return nil
	default:
		return fmt.Errorf("%w: bind=%s", ErrNonLoopbackBind, bind)
	}
}

// PublicURL is the http URL of the console for a bind address, mapping
// wildcard hosts to loopback.
func PublicURL(bind string) string {
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
