// ABOUTME: Top-level Bubble Tea AppModel that lays out the chat, diagram, and research panels of one console.
// ABOUTME: Implements tea.Model (Init, Update, View) and routes console events and keys to the sub-panels.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/agentdeck/console"
)

// FocusTarget indicates which element currently has keyboard focus.
type FocusTarget int

const (
	FocusChat FocusTarget = iota
	FocusSymbol
	FocusTranscript
)

func (f FocusTarget) String() string {
	switch f {
	case FocusSymbol:
		return "symbol"
	case FocusTranscript:
		return "scroll"
	default:
		return "chat"
	}
}

const tickInterval = time.Second

// AppModel is the top-level Bubble Tea model for the terminal console.
type AppModel struct {
	console *console.Console
	events  <-chan console.Event
	lastSeq int64

	md         *Markdown
	transcript TranscriptPanelModel
	diagram    DiagramPanelModel
	manual     PathPanelModel
	official   PathPanelModel
	statusBar  StatusBarModel

	chatInput   textinput.Model
	symbolInput textinput.Model
	spinner     spinner.Model

	notice     string
	lastSymbol string
	focus      FocusTarget
	closed     bool
	width      int
	height     int
}

// NewAppModel creates an AppModel mirroring c. The model subscribes to c at
// construction; glamourStyle selects the result rendering style.
func NewAppModel(c *console.Console, glamourStyle string) AppModel {
	snap := c.Snapshot()
	history, events := c.Subscribe()
	md := NewMarkdown(glamourStyle)

	chat := textinput.New()
	chat.Prompt = "chat> "
	chat.Placeholder = "Ask the agent"
	chat.Focus()

	symbol := textinput.New()
	symbol.Prompt = "symbol> "
	symbol.Placeholder = "AAPL"
	symbol.CharLimit = 32

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := AppModel{
		console:     c,
		events:      events,
		lastSeq:     snap.Seq,
		md:          md,
		transcript:  NewTranscriptPanelModel(snap.Transcript, md),
		diagram:     NewDiagramPanelModel(snap.Diagram, snap.Intent),
		manual:      NewPathPanelModel(snap.Manual, md),
		official:    NewPathPanelModel(snap.Official, md),
		statusBar:   NewStatusBarModel(c.ID),
		chatInput:   chat,
		symbolInput: symbol,
		spinner:     sp,
		notice:      snap.Notice,
	}
	m.statusBar.SetMode(m.focus.String())
	for _, evt := range history {
		m.apply(evt)
	}
	return m
}

// Init implements tea.Model.
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		WaitForEventCmd(m.events),
		m.spinner.Tick,
		textinput.Blink,
		TickCmd(tickInterval),
	)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		return m, nil

	case ConsoleEventMsg:
		m.apply(msg.Event)
		return m, WaitForEventCmd(m.events)

	case EventsClosedMsg:
		m.closed = true
		return m, nil

	case SubmitErrMsg:
		m.statusBar.SetError(msg.Err)
		return m, nil

	case TickMsg:
		if m.closed {
			return m, nil
		}
		return m, TickCmd(tickInterval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 60 || m.height < 16 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 60x16.", m.width, m.height)
	}

	spin := m.spinner.View()
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.transcript.View(), m.diagram.View())
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, m.manual.View(spin), m.official.View(spin))

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	b.WriteString(bottom)
	b.WriteString("\n")
	b.WriteString(m.chatInput.View())
	b.WriteString("   ")
	b.WriteString(m.symbolInput.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(NoticeStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// layout sizes every panel for a w x h terminal.
func (m *AppModel) layout(w, h int) {
	m.width = w
	m.height = h

	const chrome = 3 // input, notice, status bar
	avail := max(h-chrome, 6)
	topHeight := avail * 45 / 100
	bottomHeight := avail - topHeight

	transcriptWidth := w * 60 / 100
	m.transcript.SetSize(transcriptWidth, topHeight)
	m.diagram.SetSize(w-transcriptWidth, topHeight)
	m.manual.SetSize(w/2, bottomHeight)
	m.official.SetSize(w-w/2, bottomHeight)

	inputWidth := max(w/2-12, 8)
	m.chatInput.Width = inputWidth
	m.symbolInput.Width = max(w/2-14, 8)
	m.statusBar.SetWidth(w)
}

// apply routes one console event to the panels that own its region.
// Events already reflected in the construction snapshot are skipped.
func (m *AppModel) apply(evt console.Event) {
	if evt.Seq <= m.lastSeq {
		return
	}
	m.lastSeq = evt.Seq
	m.statusBar.Record(len(evt.HTML) + len(evt.Text))

	if m.transcript.Apply(evt) {
		return
	}
	switch evt.Kind {
	case console.EventInputClear:
		if evt.Target == "chat" {
			m.chatInput.Reset()
		}
	case console.EventIntentUpdate:
		m.diagram.SetIntent(evt.HTML)
	case console.EventDiagramUpdate:
		if evt.Diagram != nil {
			m.diagram.SetDiagram(*evt.Diagram)
		}
	case console.EventNotice:
		m.notice = evt.Text
	case console.EventPanelReset, console.EventPanelLog, console.EventPanelComplete, console.EventPanelFail:
		m.applyPanel(evt)
	}
}

func (m *AppModel) applyPanel(evt console.Event) {
	m.manual.Apply(evt)
	m.official.Apply(evt)

	if evt.Kind == console.EventPanelReset && evt.Target == string(console.PathManual) {
		m.notice = ""
		m.statusBar.SetError(nil)
		m.statusBar.StartRun(m.lastSymbol, evt.Timestamp)
	}
	if m.manual.State().Phase != console.PhaseRunning && m.official.State().Phase != console.PhaseRunning {
		m.statusBar.FinishRun()
	}
}

// handleKeyMsg processes app-level shortcuts, then routes keys to the focused element.
func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		m.setFocus((m.focus + 1) % 3)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + 2) % 3)
		return m, nil
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusChat:
		m.chatInput, cmd = m.chatInput.Update(msg)
	case FocusSymbol:
		m.symbolInput, cmd = m.symbolInput.Update(msg)
	case FocusTranscript:
		m.transcript, cmd = m.transcript.Update(msg)
	}
	return m, cmd
}

// submit sends the focused input to the console. The chat field is cleared by
// the console once the message is accepted.
func (m AppModel) submit() (tea.Model, tea.Cmd) {
	switch m.focus {
	case FocusChat:
		return m, SubmitChatCmd(m.console, m.chatInput.Value())
	case FocusSymbol:
		m.lastSymbol = strings.TrimSpace(m.symbolInput.Value())
		return m, StartExperimentCmd(m.console, m.symbolInput.Value())
	}
	return m, nil
}

func (m *AppModel) setFocus(f FocusTarget) {
	m.focus = f
	m.chatInput.Blur()
	m.symbolInput.Blur()
	m.transcript.SetFocused(f == FocusTranscript)
	switch f {
	case FocusChat:
		m.chatInput.Focus()
	case FocusSymbol:
		m.symbolInput.Focus()
	}
	m.statusBar.SetMode(f.String())
}

// Focus returns the focused element.
func (m AppModel) Focus() FocusTarget {
	return m.focus
}

// Close releases the model's console subscription.
func (m AppModel) Close() {
	m.console.Unsubscribe(m.events)
}
