// ABOUTME: View-model regions of the console page: transcript, intent board, notice, inputs, and result panels.
// ABOUTME: Each region guards its own state and emits an event for every change it accepts.
package console

import (
	"sync"
)

// emitFunc publishes a region update.
type emitFunc func(Event)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Entry is one transcript message.
type Entry struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	HTML    string `json:"html"`
	Pending bool   `json:"pending,omitempty"`
}

// StatusPending marks an appended entry as a placeholder awaiting its reply.
const StatusPending = "pending"

// Transcript is the chat message list.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
	index   map[string]int
	scrolls int
	emit    emitFunc
}

func newTranscript(emit emitFunc) *Transcript {
	return &Transcript{index: make(map[string]int), emit: emit}
}

// Append adds an entry at the end of the transcript.
func (t *Transcript) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index[e.ID] = len(t.entries)
	t.entries = append(t.entries, e)
	evt := Event{Kind: EventTranscriptAppend, Target: e.ID, Role: e.Role, HTML: e.HTML}
	if e.Pending {
		evt.Status = StatusPending
	}
	t.emit(evt)
}

// Replace swaps the markup of entry id and clears its pending flag. It
// reports false when no such entry exists.
func (t *Transcript) Replace(id, html string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return false
	}
	t.entries[i].HTML = html
	t.entries[i].Pending = false
	t.emit(Event{Kind: EventTranscriptReplace, Target: id, Role: t.entries[i].Role, HTML: html})
	return true
}

// ScrollToBottom asks views to reveal the newest entry.
func (t *Transcript) ScrollToBottom() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrolls++
	t.emit(Event{Kind: EventTranscriptScroll})
}

// Entries returns a copy of the transcript.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Entry returns the entry with the given id.
func (t *Transcript) Entry(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Scrolls returns how many scroll requests have been issued.
func (t *Transcript) Scrolls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrolls
}

// IntentBoard shows the classification summary of the latest chat turn.
type IntentBoard struct {
	mu   sync.Mutex
	html string
	emit emitFunc
}

// Set replaces the board's markup.
func (b *IntentBoard) Set(html string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.html = html
	b.emit(Event{Kind: EventIntentUpdate, HTML: html})
}

// HTML returns the current markup.
func (b *IntentBoard) HTML() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.html
}

// Notice is a user-visible alert, used for validation messages.
type Notice struct {
	mu   sync.Mutex
	text string
	emit emitFunc
}

// Show raises the notice with text.
func (n *Notice) Show(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
	n.emit(Event{Kind: EventNotice, Text: text})
}

// Text returns the last notice shown.
func (n *Notice) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Input is a text field the server can clear. Its value lives in the view.
type Input struct {
	mu     sync.Mutex
	name   string
	clears int
	emit   emitFunc
}

// Clear empties the field in every view.
func (in *Input) Clear() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.clears++
	in.emit(Event{Kind: EventInputClear, Target: in.name})
}

// Clears returns how many times the field has been cleared.
func (in *Input) Clears() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.clears
}

// Path names one of the two research paths.
type Path string

const (
	PathManual   Path = "manual"
	PathOfficial Path = "official"
)

// Phase is a path's lifecycle position.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseErrored   Phase = "errored"
)

// PanelState is a snapshot of a Panel.
type PanelState struct {
	Path   Path     `json:"path"`
	Run    string   `json:"run,omitempty"`
	Phase  Phase    `json:"phase"`
	Status string   `json:"status"`
	Log    []string `json:"log"`
	HTML   string   `json:"html"`
}

// Panel is the status line, progress log, and result area owned by one
// path. Writes carry a run id; only the run that last reset the panel may
// write to it.
type Panel struct {
	mu    sync.Mutex
	state PanelState
	emit  emitFunc
}

func newPanel(path Path, emit emitFunc) *Panel {
	return &Panel{state: PanelState{Path: path, Phase: PhaseIdle}, emit: emit}
}

// Reset starts run on the panel: the log is cleared, the result area shows
// loading markup, and the status shows the in-progress label.
func (p *Panel) Reset(run, loadingHTML, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = PanelState{
		Path:   p.state.Path,
		Run:    run,
		Phase:  PhaseRunning,
		Status: status,
		HTML:   loadingHTML,
	}
	p.emit(Event{Kind: EventPanelReset, Target: string(p.state.Path), Run: run, Status: status, HTML: loadingHTML})
}

// AppendLog adds a progress line. It reports false if run is not current.
func (p *Panel) AppendLog(run, line string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Run != run {
		return false
	}
	p.state.Log = append(p.state.Log, line)
	p.emit(Event{Kind: EventPanelLog, Target: string(p.state.Path), Run: run, Text: line})
	return true
}

// Complete finishes run with a final status and result markup.
func (p *Panel) Complete(run, status, html string) bool {
	return p.finish(run, PhaseCompleted, EventPanelComplete, status, html)
}

// Fail finishes run with a failure status and inline error markup.
func (p *Panel) Fail(run, status, html string) bool {
	return p.finish(run, PhaseErrored, EventPanelFail, status, html)
}

func (p *Panel) finish(run string, phase Phase, kind EventKind, status, html string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Run != run {
		return false
	}
	p.state.Phase = phase
	p.state.Status = status
	p.state.HTML = html
	p.emit(Event{Kind: kind, Target: string(p.state.Path), Run: run, Status: status, HTML: html})
	return true
}

// Snapshot returns a copy of the panel state.
func (p *Panel) Snapshot() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Log = append(make([]string, 0, len(p.state.Log)), p.state.Log...)
	return s
}
