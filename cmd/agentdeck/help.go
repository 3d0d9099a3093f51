// ABOUTME: Help display for the agentdeck CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for configuration variable detection.
package main

import (
	"fmt"
	"io"
	"os"
)

const agentdeckBanner = `
   ┌──────────────┬──────────────┐
   │  chat        │  agent flow  │
   ├──────────────┼──────────────┤
   │  manual      │  official    │
   └──────────────┴──────────────┘
`

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples, and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprint(w, agentdeckBanner)
	fmt.Fprintf(w, "agentdeck %s: health chat and stock research console\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  agentdeck [-bind addr] [-backend url]    Serve the web console")
	fmt.Fprintln(w, "  agentdeck -demo                          Serve the console with the built-in demo backend")
	fmt.Fprintln(w, "  agentdeck -tui [-demo]                   Run the console in the terminal")
	fmt.Fprintln(w, "  agentdeck -watch url [-session id]       Tail a running console's events")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Console Flags:")
	fmt.Fprintln(w, "  -config <file>        YAML configuration file")
	fmt.Fprintln(w, "  -env-file <file>      dotenv file read before the environment (default: .env)")
	fmt.Fprintln(w, "  -bind <addr>          Listen address (default: 127.0.0.1:7780)")
	fmt.Fprintln(w, "  -backend <url>        Analysis backend base URL")
	fmt.Fprintln(w, "  -renderer <mode>      Diagram renderer: client or mmdc (default: client)")
	fmt.Fprintln(w, "  -demo                 Serve the built-in demo backend")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Terminal Flags:")
	fmt.Fprintln(w, "  -tui                  Run with interactive terminal UI")
	fmt.Fprintln(w, "  -style <name>         Markdown style: dark, light, notty (default: dark)")
	fmt.Fprintln(w, "  -watch <url>          Print the event stream of the console at url")
	fmt.Fprintln(w, "  -session <id>         Session id shown in the page footer")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  agentdeck -demo")
	fmt.Fprintln(w, "  agentdeck -backend http://127.0.0.1:8000 -renderer mmdc")
	fmt.Fprintln(w, "  agentdeck -tui -demo -style light")
	fmt.Fprintln(w, "  agentdeck -watch http://127.0.0.1:7780 -session 4f0c...")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	for _, key := range []string{
		"AGENTDECK_BIND",
		"AGENTDECK_BACKEND_URL",
		"AGENTDECK_USER_ID",
		"AGENTDECK_RENDERER",
		"AGENTDECK_ALLOW_REMOTE",
	} {
		fmt.Fprintf(w, "  %-24s %s\n", key, envStatus(key))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/agentdeck")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
