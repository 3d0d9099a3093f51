// ABOUTME: MessageFormatter turning raw agent text into display markup with inline chart blocks.
// ABOUTME: Converts newlines, extracts base64 image references with an explicit scanner, and sanitizes passthrough text.
package format

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
)

// DefaultDownloadLabel is the caption on the download control of every chart block.
const DefaultDownloadLabel = "📥 下載趨勢圖表"

// lineBreak is the marker every literal newline is replaced with.
const lineBreak = "<br>"

// ChartAction is a chart extracted from agent text. ImageData is the data URI
// exactly as it appeared in the source text.
type ChartAction struct {
	ID        string
	Label     string
	ImageData string
}

// Message is the formatted result of one piece of agent text.
type Message struct {
	HTML   string
	Charts []ChartAction
}

// ActionBinder returns the href a chart's download control activates. It is
// called once per chart while the markup is being built.
type ActionBinder func(ChartAction) string

// BindDataURI is the default binder: the download control points straight at
// the chart's own data URI.
func BindDataURI(c ChartAction) string {
	return c.ImageData
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithPolicy sanitizes passthrough text with the given bluemonday policy.
func WithPolicy(p *bluemonday.Policy) Option {
	return func(f *Formatter) {
		f.policy = p
	}
}

// WithoutSanitizer disables sanitization so passthrough text is emitted raw.
func WithoutSanitizer() Option {
	return func(f *Formatter) {
		f.policy = nil
	}
}

// WithBinder sets the ActionBinder used for download controls.
func WithBinder(b ActionBinder) Option {
	return func(f *Formatter) {
		if b != nil {
			f.bind = b
		}
	}
}

// WithDownloadLabel overrides the download control caption.
func WithDownloadLabel(label string) Option {
	return func(f *Formatter) {
		if label != "" {
			f.downloadLabel = label
		}
	}
}

// Formatter renders agent text. It is safe for concurrent use once built.
type Formatter struct {
	policy        *bluemonday.Policy
	bind          ActionBinder
	downloadLabel string
	newID         func() string
}

// New builds a Formatter. By default passthrough text is sanitized with the
// bluemonday UGC policy and download controls bind to the chart data URI.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		policy:        bluemonday.UGCPolicy(),
		bind:          BindDataURI,
		downloadLabel: DefaultDownloadLabel,
		newID:         func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format converts text into display markup. Newlines are replaced before
// image references are scanned, so references spanning former line breaks
// are matched against the substituted text.
func (f *Formatter) Format(text string) Message {
	text = LineBreaks(text)
	tokens := scanImages(text)

	var b strings.Builder
	charts := make([]ChartAction, 0, len(tokens))
	last := 0
	for _, tok := range tokens {
		b.WriteString(f.Sanitize(text[last:tok.start]))
		chart := ChartAction{
			ID:        f.newID(),
			Label:     tok.label,
			ImageData: tok.uri,
		}
		charts = append(charts, chart)
		b.WriteString(f.chartBlock(chart))
		last = tok.end
	}
	b.WriteString(f.Sanitize(text[last:]))

	return Message{HTML: b.String(), Charts: charts}
}

// Sanitize applies the passthrough policy to s, leaving line-break markers
// intact. With no policy configured s is returned unchanged.
func (f *Formatter) Sanitize(s string) string {
	if f.policy == nil || s == "" {
		return s
	}
	parts := strings.Split(s, lineBreak)
	for i, p := range parts {
		parts[i] = f.policy.Sanitize(p)
	}
	return strings.Join(parts, lineBreak)
}

// chartBlock renders the self-contained image + download control block.
func (f *Formatter) chartBlock(c ChartAction) string {
	src := template.HTMLEscapeString(c.ImageData)
	href := template.HTMLEscapeString(f.bind(c))
	return fmt.Sprintf(
		`<div class="chart-container-inner" style="text-align: center; margin-top: 10px;">`+
			`<img src="%s" style="width:100%%; border-radius:10px; border:1px solid #eee;" />`+
			`<br>`+
			`<button type="button" class="download-btn" data-action="download-chart" data-chart-id="%s" data-href="%s">%s</button>`+
			`</div>`,
		src, template.HTMLEscapeString(c.ID), href, template.HTMLEscapeString(f.downloadLabel),
	)
}

// LineBreaks replaces every literal newline with a line-break marker.
func LineBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", lineBreak)
}

// Emphasize converts **bold** spans to <strong> elements, pairing each
// opening marker with the nearest closing one.
func Emphasize(s string) string {
	var b strings.Builder
	for {
		open := strings.Index(s, "**")
		if open < 0 {
			break
		}
		closing := strings.Index(s[open+2:], "**")
		if closing < 0 {
			break
		}
		b.WriteString(s[:open])
		b.WriteString("<strong>")
		b.WriteString(s[open+2 : open+2+closing])
		b.WriteString("</strong>")
		s = s[open+2+closing+2:]
	}
	b.WriteString(s)
	return b.String()
}
