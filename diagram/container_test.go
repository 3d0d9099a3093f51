// ABOUTME: Tests for the diagram Container region: processed-marker reset, failure swallowing, SVG sizing.
package diagram

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeRenderer is a test double that counts invocations and returns fixed output.
type fakeRenderer struct {
	calls  atomic.Int64
	output []byte
	err    error
}

func (f *fakeRenderer) Render(ctx context.Context, source string) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestContainerRenderMarksProcessed(t *testing.T) {
	r := &fakeRenderer{output: []byte(`<svg id="g" style="max-width: 420px;" viewBox="0 0 10 10"></svg>`)}
	var changes []State
	c := NewContainer(func(s State) { changes = append(changes, s) })

	c.Render(context.Background(), r, "graph TD\nclass a activeNode")

	snap := c.Snapshot()
	if !snap.Processed {
		t.Error("expected processed after successful render")
	}
	if snap.Source != "graph TD\nclass a activeNode" {
		t.Errorf("unexpected source %q", snap.Source)
	}
	if !strings.Contains(snap.SVG, `style="`+ResponsiveStyle+`"`) {
		t.Errorf("expected responsive style, got %q", snap.SVG)
	}
	if strings.Contains(snap.SVG, "420px") {
		t.Errorf("expected old style removed, got %q", snap.SVG)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 change notifications, got %d", len(changes))
	}
	if changes[0].Processed {
		t.Error("expected first notification to carry a cleared processed marker")
	}
}

func TestContainerRenderClearsPreviousState(t *testing.T) {
	ok := &fakeRenderer{output: []byte("<svg></svg>")}
	c := NewContainer(nil)
	c.Render(context.Background(), ok, "graph A")

	failing := &fakeRenderer{err: errors.New("parse error on line 2")}
	c.Render(context.Background(), failing, "graph B")

	snap := c.Snapshot()
	if snap.Processed {
		t.Error("expected processed marker cleared after failed render")
	}
	if snap.SVG != "" {
		t.Errorf("expected stale SVG dropped, got %q", snap.SVG)
	}
	if snap.Source != "graph B" {
		t.Errorf("expected new source kept despite failure, got %q", snap.Source)
	}
	if snap.Version != 2 {
		t.Errorf("expected version 2, got %d", snap.Version)
	}
}

func TestContainerBrowserRenderer(t *testing.T) {
	c := NewContainer(nil)
	c.Render(context.Background(), BrowserRenderer{}, "graph TD")
	snap := c.Snapshot()
	if snap.Processed || snap.SVG != "" {
		t.Errorf("expected browser-side rendering to leave container unprocessed, got %+v", snap)
	}
}

func TestNormalizeSVG(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no style",
			in:   `<svg width="10"><g/></svg>`,
			want: `<svg style="` + ResponsiveStyle + `" width="10"><g/></svg>`,
		},
		{
			name: "replaces style",
			in:   `<?xml version="1.0"?><svg id="m" style="max-width: 99px;"><g/></svg>`,
			want: `<?xml version="1.0"?><svg style="` + ResponsiveStyle + `" id="m"><g/></svg>`,
		},
		{
			name: "single quoted style",
			in:   `<svg style='a:b'></svg>`,
			want: `<svg style="` + ResponsiveStyle + `"></svg>`,
		},
		{
			name: "not svg",
			in:   `<div>nope</div>`,
			want: `<div>nope</div>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(NormalizeSVG([]byte(tt.in))); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
