// ABOUTME: Tests for markup-to-text conversion and glamour rendering.
// ABOUTME: Covers tag stripping, emphasis, entity decoding, chart markers, and width changes.
package tui

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "line breaks", in: "a<br>b<br/>c", want: "a\nb\nc"},
		{name: "emphasis", in: "<strong>128/82</strong> mmHg", want: "**128/82** mmHg"},
		{name: "intent bold", in: "意圖：<b>general</b> ", want: "意圖：**general**"},
		{name: "entities", in: "a &amp; b &lt;c&gt;", want: "a & b <c>"},
		{name: "script dropped", in: "ok<script>alert(1)</script>", want: "ok"},
		{name: "classes stripped", in: "<div class='text-red-400'>❌ 錯誤</div>", want: "❌ 錯誤"},
		{name: "chart", in: `<img src="data:image/png;base64,AA==" alt="x"><a href="/charts/1">下載</a>`, want: ChartMarker + "下載"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMarkdownRender(t *testing.T) {
	md := NewMarkdown("notty")
	if md.Render("", 40) != "" {
		t.Error("expected empty input to render empty")
	}
	out := md.Render("AAPL report body", 40)
	if !strings.Contains(out, "AAPL report body") {
		t.Errorf("unexpected render %q", out)
	}
	first := md.renderer
	md.Render("again", 40)
	if md.renderer != first {
		t.Error("expected the renderer reused for the same width")
	}
	md.Render("again", 60)
	if md.renderer == first || md.width != 60 {
		t.Error("expected a new renderer for a new width")
	}
}

func TestMarkdownDefaultStyle(t *testing.T) {
	if NewMarkdown("").style != "dark" {
		t.Error("expected dark as the default style")
	}
}
