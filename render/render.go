// ABOUTME: Server-side mermaid rendering by shelling out to the mermaid CLI (mmdc).
// ABOUTME: Provides MermaidCLI, a diagram.Renderer that turns mermaid source into SVG bytes.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultMermaidBinary is the mermaid CLI executable looked up on PATH.
const DefaultMermaidBinary = "mmdc"

// MermaidCLI renders mermaid source with the mermaid CLI. The zero value uses
// DefaultMermaidBinary with a transparent background.
type MermaidCLI struct {
	Binary     string
	Background string
}

// Available reports whether the configured mermaid CLI is installed and reachable.
func (m MermaidCLI) Available() bool {
	_, err := exec.LookPath(m.binary())
	return err == nil
}

func (m MermaidCLI) binary() string {
	if m.Binary == "" {
		return DefaultMermaidBinary
	}
	return m.Binary
}

// Render writes source to a scratch directory, runs the CLI, and returns the
// SVG it produced. The scratch directory is removed before returning.
func (m MermaidCLI) Render(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("cannot render empty mermaid source")
	}
	if !m.Available() {
		return nil, fmt.Errorf("mermaid CLI %q not found: install @mermaid-js/mermaid-cli to render server-side", m.binary())
	}

	dir, err := os.MkdirTemp("", "agentdeck-mmd-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("writing mermaid source: %w", err)
	}

	background := m.Background
	if background == "" {
		background = "transparent"
	}

	cmd := exec.CommandContext(ctx, m.binary(), "-i", in, "-o", out, "-b", background)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("mermaid CLI failed: %w: %s", err, stderr.String())
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading rendered svg: %w", err)
	}
	return svg, nil
}
