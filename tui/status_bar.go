// ABOUTME: Implements a single-line status bar for the bottom of the terminal console.
// ABOUTME: Shows the console id, input mode, current experiment with elapsed time, and event traffic.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// StatusBarModel displays console status in a single line.
type StatusBarModel struct {
	consoleID string
	mode      string
	symbol    string
	runStart  time.Time
	running   bool
	events    int64
	bytes     uint64
	err       error
	width     int
	now       func() time.Time
}

// NewStatusBarModel creates a status bar for the console with the given id.
func NewStatusBarModel(consoleID string) StatusBarModel {
	return StatusBarModel{consoleID: consoleID, now: time.Now}
}

// SetMode names the focused input.
func (m *StatusBarModel) SetMode(mode string) {
	m.mode = mode
}

// StartRun records an experiment start.
func (m *StatusBarModel) StartRun(symbol string, at time.Time) {
	m.symbol = symbol
	m.runStart = at
	m.running = true
}

// FinishRun stops the elapsed timer.
func (m *StatusBarModel) FinishRun() {
	m.running = false
}

// Record counts an event and the markup it carried.
func (m *StatusBarModel) Record(payloadBytes int) {
	m.events++
	m.bytes += uint64(payloadBytes)
}

// SetError shows err until cleared with nil.
func (m *StatusBarModel) SetError(err error) {
	m.err = err
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the time since the current run started, or zero if no
// run has started.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.runStart.IsZero() {
		return 0
	}
	return m.now().Sub(m.runStart)
}

// formatElapsed formats a duration as a human-readable string.
// Durations under a minute show as seconds (e.g. "12s").
// Durations of a minute or more show as minutes and seconds (e.g. "2m30s").
func formatElapsed(d time.Duration) string {
	d = max(d.Truncate(time.Second), 0)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	id := m.consoleID
	if len(id) > 8 {
		id = id[:8]
	}
	parts := []string{"agentdeck " + id}
	if m.mode != "" {
		parts = append(parts, "input: "+m.mode)
	}
	if m.symbol != "" {
		run := "run: " + m.symbol + " " + formatElapsed(m.Elapsed())
		if !m.running {
			run = "last run: " + m.symbol
		}
		parts = append(parts, run)
	}
	parts = append(parts,
		humanize.Comma(m.events)+" events",
		humanize.Bytes(m.bytes)+" received",
	)
	content := strings.Join(parts, " | ")
	if m.err != nil {
		content += " | " + FailedStyle.Render("error: "+m.err.Error())
	}

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
