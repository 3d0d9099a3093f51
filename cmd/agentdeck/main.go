// ABOUTME: CLI entrypoint for the agentdeck analysis console with web, terminal, and watch modes.
// ABOUTME: Wires configuration, the backend client, the diagram renderer, the demo backend, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/config"
	"github.com/2389-research/agentdeck/console"
	"github.com/2389-research/agentdeck/devbackend"
	"github.com/2389-research/agentdeck/diagram"
	"github.com/2389-research/agentdeck/format"
	"github.com/2389-research/agentdeck/render"
	"github.com/2389-research/agentdeck/tui"
	"github.com/2389-research/agentdeck/web"
)

var version = "dev"

// options holds the CLI flags. Empty strings and false leave the loaded
// configuration untouched.
type options struct {
	configPath  string
	envFile     string
	bind        string
	backendURL  string
	renderer    string
	demo        bool
	tuiMode     bool
	watchURL    string
	session     string
	glamour     string
	showVersion bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("agentdeck %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(opts))
}

// parseFlags parses command-line flags into options.
func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("agentdeck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	fs.StringVar(&opts.bind, "bind", "", "Listen address (default: 127.0.0.1:7780)")
	fs.StringVar(&opts.backendURL, "backend", "", "Analysis backend base URL")
	fs.StringVar(&opts.renderer, "renderer", "", "Diagram renderer: client or mmdc")
	fs.BoolVar(&opts.demo, "demo", false, "Serve the built-in demo backend")
	fs.BoolVar(&opts.tuiMode, "tui", false, "Run the console in the terminal")
	fs.StringVar(&opts.watchURL, "watch", "", "Tail the event stream of a running console at URL")
	fs.StringVar(&opts.session, "session", "", "Session id to attach to with -watch")
	fs.StringVar(&opts.glamour, "style", "dark", "Terminal markdown style for -tui (dark, light, notty)")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "error: unexpected argument %q\n", fs.Arg(0))
		return opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return opts, nil
}

// loadConfig assembles the configuration and applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.bind != "" {
		cfg.Bind = opts.bind
	}
	if opts.backendURL != "" {
		cfg.BackendURL = opts.backendURL
	}
	if opts.renderer != "" {
		cfg.Renderer = opts.renderer
	}
	if opts.demo {
		cfg.Demo = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run dispatches to the selected mode and returns the exit code.
func run(opts options) int {
	if opts.watchURL != "" {
		return runWatch(opts)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if opts.tuiMode {
		return runTUI(cfg, opts.glamour)
	}
	return runServer(cfg)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// newBackend builds the HTTP client for the configured backend.
func newBackend(cfg *config.Config, baseURL string) (*backend.Client, error) {
	return backend.NewClient(baseURL,
		backend.WithEndpoints(cfg.Endpoints),
		backend.WithUserID(cfg.UserID),
		backend.WithTimeout(cfg.RequestTimeout),
	)
}

// newRenderer selects the diagram renderer. The mmdc renderer falls back to
// the browser when the binary is missing.
func newRenderer(cfg *config.Config) diagram.Renderer {
	if cfg.Renderer != config.RendererMMDC {
		return diagram.BrowserRenderer{}
	}
	cli := render.MermaidCLI{Binary: cfg.MermaidBinary}
	if !cli.Available() {
		log.Printf("component=cmd action=renderer_fallback binary=%s reason=not_found", cfg.MermaidBinary)
		return diagram.BrowserRenderer{}
	}
	return render.NewCache(cli.Render, cfg.RenderCacheTTL)
}

// serverConfig maps the configuration onto the web server's settings.
func serverConfig(cfg *config.Config, client console.Backend) web.ServerConfig {
	sc := web.ServerConfig{
		Addr:           cfg.Bind,
		Backend:        client,
		Renderer:       newRenderer(cfg),
		Sanitize:       cfg.Sanitize,
		Labels:         cfg.Labels,
		Title:          cfg.Title,
		Intro:          cfg.Intro,
		InitialGraph:   cfg.InitialGraph,
		HistorySize:    cfg.HistorySize,
		ChartCacheSize: cfg.ChartCacheSize,
		MaxSessions:    cfg.MaxSessions,
		SessionTTL:     cfg.SessionTTL,
	}
	if cfg.Demo {
		demo := devbackend.New()
		sc.Mount = func(r chi.Router) { demo.Register(r) }
	}
	return sc
}

// runServer serves the web console until interrupted.
func runServer(cfg *config.Config) int {
	baseURL := cfg.BackendURL
	if cfg.Demo {
		baseURL = config.PublicURL(cfg.Bind)
	}
	client, err := newBackend(cfg, baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	srv, err := web.NewServer(serverConfig(cfg, client))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer srv.Close()

	ctx, cancel := signalContext()
	defer cancel()

	httpServer := srv.HTTPServer()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	log.Printf("component=cmd action=listening addr=%s backend=%s demo=%t renderer=%s", cfg.Bind, baseURL, cfg.Demo, cfg.Renderer)
	fmt.Fprintf(os.Stderr, "agentdeck listening on %s\n", config.PublicURL(cfg.Bind))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// startDemoBackend serves the demo backend on an ephemeral loopback port
// and returns its URL with a shutdown function.
func startDemoBackend() (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listening for demo backend: %w", err)
	}
	hs := &http.Server{Handler: devbackend.New()}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("component=cmd action=demo_backend_failed err=%v", err)
		}
	}()
	return "http://" + ln.Addr().String(), func() { hs.Close() }, nil
}

// newTerminalConsole builds a console for the terminal. Charts keep their
// data URIs since there is no download route to bind them to.
func newTerminalConsole(cfg *config.Config, client console.Backend) (*console.Console, error) {
	var opts []format.Option
	if cfg.Labels.DownloadCaption != "" {
		opts = append(opts, format.WithDownloadLabel(cfg.Labels.DownloadCaption))
	}
	if !cfg.Sanitize {
		opts = append(opts, format.WithoutSanitizer())
	}
	return console.New(console.Options{
		Backend:      client,
		Formatter:    format.New(opts...),
		Labels:       cfg.Labels,
		InitialGraph: cfg.InitialGraph,
		HistorySize:  cfg.HistorySize,
	})
}

// runTUI runs one console in the terminal until the user quits.
func runTUI(cfg *config.Config, style string) int {
	baseURL := cfg.BackendURL
	if cfg.Demo {
		url, stop, err := startDemoBackend()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer stop()
		baseURL = url
	}
	client, err := newBackend(cfg, baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	c, err := newTerminalConsole(cfg, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer c.Close()

	// The alt screen owns the terminal, so log lines would corrupt it.
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	model := tui.NewAppModel(c, style)
	defer model.Close()
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// runWatch tails a running console's events until interrupted.
func runWatch(opts options) int {
	ctx, cancel := signalContext()
	defer cancel()

	hc, err := watchClient(opts.watchURL, opts.session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := watch(ctx, hc, opts.watchURL, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
