// ABOUTME: Bubble Tea sub-model for one research path: status line, progress log, and rendered result.
// ABOUTME: Applies panel events for its path and ignores writes from runs that are no longer current.
package tui

import (
	"strings"
	"time"

	"github.com/2389-research/agentdeck/console"
)

// Panel titles shown above each research path.
const (
	ManualTitle   = "手動 LangGraph 流程"
	OfficialTitle = "官方自主代理"
)

// PathPanelModel mirrors one console.Panel in the terminal.
type PathPanelModel struct {
	title   string
	state   console.PanelState
	started time.Time
	log     LogPanelModel
	md      *Markdown
	result  string // rendered result for the current width
	width   int
	height  int
}

// NewPathPanelModel creates a panel for path, seeded from a snapshot.
func NewPathPanelModel(state console.PanelState, md *Markdown) PathPanelModel {
	title := OfficialTitle
	if state.Path == console.PathManual {
		title = ManualTitle
	}
	m := PathPanelModel{
		title: title,
		state: state,
		log:   NewLogPanelModel(0),
		md:    md,
	}
	for _, line := range state.Log {
		m.log.Append(time.Time{}, line)
	}
	m.renderResult()
	return m
}

// Apply updates the panel from a panel event addressed to its path. It
// reports whether the event changed the panel.
func (m *PathPanelModel) Apply(evt console.Event) bool {
	if evt.Target != string(m.state.Path) {
		return false
	}
	switch evt.Kind {
	case console.EventPanelReset:
		m.state = console.PanelState{
			Path:   m.state.Path,
			Run:    evt.Run,
			Phase:  console.PhaseRunning,
			Status: evt.Status,
			HTML:   evt.HTML,
		}
		m.started = evt.Timestamp
		m.log.Reset()
	case console.EventPanelLog:
		if evt.Run != m.state.Run {
			return false
		}
		m.state.Log = append(m.state.Log, evt.Text)
		m.log.Append(evt.Timestamp, evt.Text)
		return true
	case console.EventPanelComplete, console.EventPanelFail:
		if evt.Run != m.state.Run {
			return false
		}
		m.state.Phase = console.PhaseCompleted
		if evt.Kind == console.EventPanelFail {
			m.state.Phase = console.PhaseErrored
		}
		m.state.Status = evt.Status
		m.state.HTML = evt.HTML
	default:
		return false
	}
	m.renderResult()
	return true
}

// State returns the mirrored panel state.
func (m PathPanelModel) State() console.PanelState {
	return m.state
}

// Started returns when the current run reset the panel.
func (m PathPanelModel) Started() time.Time {
	return m.started
}

// SetSize sets the outer dimensions, including the border.
func (m *PathPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	logHeight := max((h-4)/3, 1)
	m.log.SetSize(max(w-4, 1), logHeight)
	m.renderResult()
}

// View renders the panel. spin is drawn next to the status while running.
func (m PathPanelModel) View(spin string) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	status := m.state.Status
	if status == "" {
		status = string(console.PhaseIdle)
	}
	if m.state.Phase == console.PhaseRunning && spin != "" {
		status = spin + " " + status
	}
	b.WriteString(StyleForPhase(m.state.Phase).Render(status))

	if logView := m.log.View(); logView != "" {
		b.WriteString("\n")
		b.WriteString(logView)
	}
	if m.result != "" {
		b.WriteString("\n")
		b.WriteString(m.result)
	}

	content := b.String()
	if m.width <= 0 {
		return BorderStyle.Render(content)
	}
	return BorderStyle.
		Width(m.width - 2).
		Height(max(m.height-2, 1)).
		MaxHeight(max(m.height, 3)).
		Render(content)
}

func (m *PathPanelModel) renderResult() {
	text := PlainText(m.state.HTML)
	if m.md == nil {
		m.result = text
		return
	}
	m.result = m.md.Render(text, max(m.width-4, 10))
}
