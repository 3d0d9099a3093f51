// ABOUTME: Implements a scrollable progress log using the bubbles viewport component.
// ABOUTME: Holds the thought lines a research path reports while it runs.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
)

type logEntry struct {
	at   time.Time
	text string
}

// LogPanelModel is a bounded, scrollable list of progress lines.
type LogPanelModel struct {
	entries  []logEntry
	max      int
	viewport viewport.Model
	width    int
	height   int
}

// NewLogPanelModel creates a log with a maximum number of entries.
// If maxEntries is <= 0, it defaults to 200.
func NewLogPanelModel(maxEntries int) LogPanelModel {
	if maxEntries <= 0 {
		maxEntries = 200
	}
	return LogPanelModel{
		entries:  make([]logEntry, 0, maxEntries),
		max:      maxEntries,
		viewport: viewport.New(80, 5),
	}
}

// Append adds a line, evicting the oldest entry if at capacity.
func (m *LogPanelModel) Append(at time.Time, line string) {
	if len(m.entries) >= m.max {
		m.entries = m.entries[1:]
	}
	m.entries = append(m.entries, logEntry{at: at, text: line})
	m.syncViewport()
}

// Reset drops every line.
func (m *LogPanelModel) Reset() {
	m.entries = m.entries[:0]
	m.syncViewport()
}

// Len returns the number of entries in the log.
func (m LogPanelModel) Len() int {
	return len(m.entries)
}

// SetSize sets the available dimensions and updates the viewport.
func (m *LogPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w, 1)
	m.viewport.Height = max(h, 1)
	m.syncViewport()
}

// Height returns the number of rows the log occupies.
func (m LogPanelModel) Height() int {
	return min(len(m.entries), m.viewport.Height)
}

// View renders the visible lines.
func (m LogPanelModel) View() string {
	if len(m.entries) == 0 {
		return ""
	}
	return m.viewport.View()
}

// syncViewport rebuilds the viewport content and scrolls to the bottom.
func (m *LogPanelModel) syncViewport() {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, formatLogLine(e))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func formatLogLine(e logEntry) string {
	ts := LogTimestampStyle.Render(e.at.Format("15:04:05"))
	return ts + " " + LogLineStyle.Render(e.text)
}
