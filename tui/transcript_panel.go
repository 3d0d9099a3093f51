// ABOUTME: Scrollable chat transcript for the terminal, rendered through glamour.
// ABOUTME: Appends and replaces entries by id so a placeholder turns into the reply in place.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/agentdeck/console"
)

// TranscriptPanelModel displays the chat transcript.
type TranscriptPanelModel struct {
	entries  []console.Entry
	index    map[string]int
	md       *Markdown
	viewport viewport.Model
	focused  bool
	width    int
	height   int
}

// NewTranscriptPanelModel creates a transcript seeded with entries.
func NewTranscriptPanelModel(entries []console.Entry, md *Markdown) TranscriptPanelModel {
	m := TranscriptPanelModel{
		index:    make(map[string]int),
		md:       md,
		viewport: viewport.New(80, 10),
	}
	for _, e := range entries {
		m.upsert(e)
	}
	m.sync()
	return m
}

// Apply updates the transcript from transcript events. It reports whether
// the event was a transcript event.
func (m *TranscriptPanelModel) Apply(evt console.Event) bool {
	switch evt.Kind {
	case console.EventTranscriptAppend:
		m.upsert(console.Entry{ID: evt.Target, Role: evt.Role, HTML: evt.HTML, Pending: evt.Status == console.StatusPending})
	case console.EventTranscriptReplace:
		i, ok := m.index[evt.Target]
		if !ok {
			return true
		}
		m.entries[i].HTML = evt.HTML
		m.entries[i].Pending = false
	case console.EventTranscriptScroll:
		m.viewport.GotoBottom()
		return true
	default:
		return false
	}
	m.sync()
	return true
}

// Entries returns the mirrored entries in display order.
func (m TranscriptPanelModel) Entries() []console.Entry {
	return append([]console.Entry(nil), m.entries...)
}

// SetFocused sets whether scroll keys go to the transcript.
func (m *TranscriptPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// SetSize sets the outer dimensions, including the border.
func (m *TranscriptPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-4, 1)
	m.viewport.Height = max(h-3, 1)
	m.sync()
}

// Update forwards scroll keys to the viewport.
func (m TranscriptPanelModel) Update(msg tea.Msg) (TranscriptPanelModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the transcript panel.
func (m TranscriptPanelModel) View() string {
	content := TitleStyle.Render("Chat") + "\n"
	if len(m.entries) == 0 {
		content += IdleStyle.Render("No messages yet")
	} else {
		content += m.viewport.View()
	}
	style := BorderStyle
	if m.focused {
		style = FocusedBorderStyle
	}
	if m.width <= 0 {
		return style.Render(content)
	}
	return style.Width(m.width - 2).Height(max(m.height-2, 1)).Render(content)
}

func (m *TranscriptPanelModel) upsert(e console.Entry) {
	if i, ok := m.index[e.ID]; ok {
		m.entries[i] = e
		return
	}
	m.index[e.ID] = len(m.entries)
	m.entries = append(m.entries, e)
}

// sync re-renders every entry and keeps the view pinned to the newest one.
func (m *TranscriptPanelModel) sync() {
	width := max(m.viewport.Width, 10)
	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		blocks = append(blocks, m.renderEntry(e, width))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

func (m *TranscriptPanelModel) renderEntry(e console.Entry, width int) string {
	text := PlainText(e.HTML)
	switch {
	case e.Role == console.RoleUser:
		return UserStyle.Render("you ›") + " " + text
	case e.Pending:
		return AgentStyle.Render("agent ›") + " " + PendingStyle.Render(text)
	case m.md != nil:
		return AgentStyle.Render("agent ›") + "\n" + m.md.Render(text, width)
	default:
		return AgentStyle.Render("agent ›") + " " + text
	}
}
