// ABOUTME: Container is the diagram display region: it owns the current source, processed marker, and SVG.
// ABOUTME: Renders through a black-box Renderer, normalizes SVG sizing, and swallows renderer failures.
package diagram

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Renderer is the black-box diagram rendering capability. A nil result with
// a nil error means rendering is left to the browser.
type Renderer interface {
	Render(ctx context.Context, source string) ([]byte, error)
}

// BrowserRenderer leaves rendering to the diagram library on the page.
type BrowserRenderer struct{}

// Render implements Renderer and never produces output.
func (BrowserRenderer) Render(context.Context, string) ([]byte, error) {
	return nil, nil
}

// State is a snapshot of a Container.
type State struct {
	Source    string `json:"source"`
	SVG       string `json:"svg,omitempty"`
	Processed bool   `json:"processed"`
	Version   uint64 `json:"version"`
}

// Container holds the diagram region. Every Render starts from the source it
// is given, so highlight directives from earlier renders never accumulate.
type Container struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewContainer returns an empty container. onChange, if non-nil, is called
// with a snapshot after every state change.
func NewContainer(onChange func(State)) *Container {
	return &Container{onChange: onChange}
}

// Snapshot returns the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Render replaces the container's source with source and renders it. The
// processed marker is cleared first so the renderer handles the new source
// in full. Renderer errors are logged and leave the source in place.
func (c *Container) Render(ctx context.Context, r Renderer, source string) {
	c.mu.Lock()
	c.state = State{
		Source:  source,
		Version: c.state.Version + 1,
	}
	version := c.state.Version
	snap := c.state
	c.mu.Unlock()
	c.emit(snap)

	if r == nil {
		return
	}
	svg, err := r.Render(ctx, source)
	if err != nil {
		log.Printf("component=diagram action=render_failed version=%d err=%v", version, err)
		return
	}
	if svg == nil {
		return
	}

	c.mu.Lock()
	if c.state.Version != version {
		c.mu.Unlock()
		return
	}
	c.state.SVG = string(NormalizeSVG(svg))
	c.state.Processed = true
	snap = c.state
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Container) emit(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// ResponsiveStyle is applied to the root <svg> so it fills its container.
const ResponsiveStyle = "max-width: none; width: 100%; height: auto;"

// NormalizeSVG rewrites the root <svg> element's style attribute to
// ResponsiveStyle. Input without an <svg> tag is returned unchanged.
func NormalizeSVG(svg []byte) []byte {
	s := string(svg)
	start := strings.Index(s, "<svg")
	if start < 0 {
		return svg
	}
	end := strings.IndexByte(s[start:], '>')
	if end < 0 {
		return svg
	}
	end += start

	tag := stripAttr(s[start:end], "style")
	tag = `<svg style="` + ResponsiveStyle + `"` + tag[len("<svg"):]
	return []byte(s[:start] + tag + s[end:])
}

// stripAttr removes the first name="..." or name='...' attribute from tag.
func stripAttr(tag, name string) string {
	for _, quote := range []string{`"`, `'`} {
		key := name + "=" + quote
		i := strings.Index(tag, key)
		if i <= 0 || !isSpace(tag[i-1]) {
			continue
		}
		j := strings.Index(tag[i+len(key):], quote)
		if j < 0 {
			continue
		}
		return tag[:i-1] + tag[i+len(key)+j+1:]
	}
	return tag
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
