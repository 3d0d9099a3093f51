// ABOUTME: Tests for config layering (defaults, YAML, .env, environment) and validation rules.
// ABOUTME: Covers the loopback bind rule, renderer choices, duration parsing, and label overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/agentdeck/console"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RequestTimeout != 0 {
		t.Errorf("expected no timeout by default, got %s", cfg.RequestTimeout)
	}
	if !cfg.Sanitize {
		t.Error("expected sanitization on by default")
	}
	if cfg.Labels != console.DefaultLabels() {
		t.Error("expected default labels")
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "agentdeck.yaml", `
backend_url: http://10.0.0.5:9000
request_timeout: 45s
sanitize: false
renderer: mmdc
endpoints:
  chat: /v2/chat
labels:
  symbol_required: "Enter a ticker"
`)
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.BackendURL != "http://10.0.0.5:9000" {
		t.Errorf("unexpected backend url %q", cfg.BackendURL)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("unexpected timeout %s", cfg.RequestTimeout)
	}
	if cfg.Sanitize {
		t.Error("expected sanitize disabled")
	}
	if cfg.Renderer != RendererMMDC {
		t.Errorf("unexpected renderer %q", cfg.Renderer)
	}
	if cfg.Endpoints.Chat != "/v2/chat" || cfg.Endpoints.Manual != "/api/v1/deep-research/invest/manual" {
		t.Errorf("expected partial endpoint override, got %+v", cfg.Endpoints)
	}
	if cfg.Labels.SymbolRequired != "Enter a ticker" {
		t.Errorf("expected label override, got %q", cfg.Labels.SymbolRequired)
	}
	if cfg.Labels.Completed != console.DefaultLabels().Completed {
		t.Errorf("expected untouched labels to keep defaults, got %q", cfg.Labels.Completed)
	}
	if cfg.Bind != Default().Bind {
		t.Errorf("expected default bind kept, got %q", cfg.Bind)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "bad.yaml", "backend_ulr: http://typo\n")
	if err := Default().LoadFile(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestLoadFileEmptyAndMissing(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFile(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
	if err := cfg.LoadFile(writeFile(t, "empty.yaml", "")); err != nil {
		t.Errorf("empty file: %v", err)
	}
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"AGENTDECK_BIND":            "0.0.0.0:9999",
		"AGENTDECK_ALLOW_REMOTE":    "yes",
		"AGENTDECK_BACKEND_URL":     "https://api.example.com",
		"AGENTDECK_USER_ID":         "alice",
		"AGENTDECK_SANITIZE":        "false",
		"AGENTDECK_REQUEST_TIMEOUT": "2m",
		"AGENTDECK_DEMO":            "1",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Bind != "0.0.0.0:9999" || !cfg.AllowRemote {
		t.Errorf("unexpected bind settings: %q %v", cfg.Bind, cfg.AllowRemote)
	}
	if cfg.BackendURL != "https://api.example.com" || cfg.UserID != "alice" {
		t.Errorf("unexpected backend settings: %q %q", cfg.BackendURL, cfg.UserID)
	}
	if cfg.Sanitize || !cfg.Demo {
		t.Errorf("unexpected flags: sanitize=%v demo=%v", cfg.Sanitize, cfg.Demo)
	}
	if cfg.RequestTimeout != 2*time.Minute {
		t.Errorf("unexpected timeout %s", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"AGENTDECK_ALLOW_REMOTE":    "maybe",
		"AGENTDECK_REQUEST_TIMEOUT": "soon",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			err := Default().ApplyEnv(envMap(map[string]string{key: val}))
			if err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("expected error naming %s, got %v", key, err)
			}
		})
	}
}

func TestValidateBind(t *testing.T) {
	tests := []struct {
		bind        string
		allowRemote bool
		wantErr     error
	}{
		{"127.0.0.1:7780", false, nil},
		{"127.0.0.9:7780", false, nil},
		{"[::1]:7780", false, nil},
		{"localhost:7780", false, nil},
		{"0.0.0.0:7780", false, ErrNonLoopbackBind},
		{":7780", false, ErrNonLoopbackBind},
		{"192.168.1.4:7780", false, ErrNonLoopbackBind},
		{"example.com:7780", false, ErrNonLoopbackBind},
		{"0.0.0.0:7780", true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.bind, func(t *testing.T) {
			cfg := Default()
			cfg.Bind = tt.bind
			cfg.AllowRemote = tt.allowRemote
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad bind", func(c *Config) { c.Bind = "no-port" }},
		{"relative backend", func(c *Config) { c.BackendURL = "/api" }},
		{"ftp backend", func(c *Config) { c.BackendURL = "ftp://x" }},
		{"renderer", func(c *Config) { c.Renderer = "graphviz" }},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }},
		{"zero cache ttl", func(c *Config) { c.RenderCacheTTL = 0 }},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"zero chart cache", func(c *Config) { c.ChartCacheSize = 0 }},
		{"zero sessions", func(c *Config) { c.MaxSessions = 0 }},
		{"zero history", func(c *Config) { c.HistorySize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateDemoIgnoresBackendURL(t *testing.T) {
	cfg := Default()
	cfg.Demo = true
	cfg.BackendURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected demo mode to skip backend url check, got %v", err)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := writeFile(t, ".env", "AGENTDECK_TEST_KEEP=from-file\nAGENTDECK_TEST_NEW=from-file\n")
	t.Setenv("AGENTDECK_TEST_KEEP", "from-env")
	t.Setenv("AGENTDECK_TEST_NEW", "")
	os.Unsetenv("AGENTDECK_TEST_NEW")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("AGENTDECK_TEST_KEEP"); got != "from-env" {
		t.Errorf("expected existing var kept, got %q", got)
	}
	if got := os.Getenv("AGENTDECK_TEST_NEW"); got != "from-file" {
		t.Errorf("expected new var loaded, got %q", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("expected missing .env to be ignored, got %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AGENTDECK_USER_ID", "bob")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UserID != "bob" {
		t.Errorf("expected env user id, got %q", cfg.UserID)
	}
}

func TestPublicURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:7780": "http://127.0.0.1:7780",
		"0.0.0.0:80":     "http://127.0.0.1:80",
		":9000":          "http://127.0.0.1:9000",
		"localhost:1":    "http://localhost:1",
	}
	for bind, want := range tests {
		if got := PublicURL(bind); got != want {
			t.Errorf("PublicURL(%q) = %q, want %q", bind, got, want)
		}
	}
}
