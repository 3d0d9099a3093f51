// ABOUTME: Converts region markup into terminal text and renders it through glamour.
// ABOUTME: Markup is reduced to markdown-ish text with bluemonday before styling.
package tui

import (
	"html"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
)

// ChartMarker stands in for an embedded chart image, which a terminal cannot show.
const ChartMarker = "[chart]"

var (
	stripPolicy = bluemonday.StrictPolicy()

	// markupToText rewrites the tags the formatter emits before the rest are stripped.
	markupToText = strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
		"</p>", "\n\n",
		"</div>", "\n",
		"<strong>", "**",
		"</strong>", "**",
		"<b>", "**",
		"</b>", "**",
		"<img ", ChartMarker+"<img ",
	)
)

// PlainText reduces region markup to text with markdown emphasis.
func PlainText(markup string) string {
	text := stripPolicy.Sanitize(markupToText.Replace(markup))
	return strings.TrimSpace(html.UnescapeString(text))
}

// Markdown renders text with glamour, rebuilding its renderer when the wrap
// width changes. It is owned by the Bubble Tea goroutine.
type Markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer for the named glamour style ("dark",
// "light", "notty", ...). An empty style uses "dark".
func NewMarkdown(style string) *Markdown {
	if style == "" {
		style = "dark"
	}
	return &Markdown{style: style}
}

// Render styles text for the given width. It falls back to the unstyled text
// if glamour fails.
func (m *Markdown) Render(text string, width int) string {
	if text == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.renderer = r
		m.width = width
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
