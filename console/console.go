// ABOUTME: Console wires the page regions, the chat session, and the experiment orchestrator around one event hub.
// ABOUTME: Provides snapshots for late joiners and a Close that waits for in-flight work to settle.
package console

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/2389-research/agentdeck/diagram"
	"github.com/2389-research/agentdeck/format"
)

// Backend is everything the console needs from the analysis backend.
type Backend interface {
	ChatBackend
	ResearchBackend
}

// Options configures a Console.
type Options struct {
	// Backend is required.
	Backend Backend
	// Formatter defaults to format.New() with the labels' download caption.
	Formatter *format.Formatter
	// Renderer defaults to diagram.BrowserRenderer.
	Renderer diagram.Renderer
	// Labels defaults to DefaultLabels when left zero.
	Labels Labels
	// InitialGraph, when set, is rendered into the diagram region at startup.
	InitialGraph string
	// HistorySize bounds the replay buffer. Zero uses DefaultHistorySize.
	HistorySize int
}

// Snapshot is the full view-model at one sequence number.
type Snapshot struct {
	ID         string        `json:"id"`
	Seq        int64         `json:"seq"`
	Transcript []Entry       `json:"transcript"`
	Intent     string        `json:"intent"`
	Diagram    diagram.State `json:"diagram"`
	Notice     string        `json:"notice,omitempty"`
	Manual     PanelState    `json:"manual"`
	Official   PanelState    `json:"official"`
}

// Console is one user's analysis console.
type Console struct {
	ID string

	Transcript  *Transcript
	ChatInput   *Input
	Intent      *IntentBoard
	Diagram     *diagram.Container
	Notice      *Notice
	Manual      *Panel
	Official    *Panel

	Chat        *ChatSession
	Experiments *Orchestrator

	hub    *Hub
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a console. Background work runs on a context owned by the
// console so it outlives the request that started it; Close cancels it.
func New(opts Options) (*Console, error) {
	if opts.Backend == nil {
		return nil, errors.New("console: backend is required")
	}
	labels := opts.Labels.orDefault()
	formatter := opts.Formatter
	if formatter == nil {
		formatter = format.New(format.WithDownloadLabel(labels.DownloadCaption))
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = diagram.BrowserRenderer{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(opts.HistorySize)
	emit := func(e Event) { hub.Emit(e) }

	c := &Console{
		ID:          uuid.NewString(),
		Transcript:  newTranscript(emit),
		ChatInput:   &Input{name: "chat", emit: emit},
		Intent:      &IntentBoard{emit: emit},
		Notice:      &Notice{emit: emit},
		Manual:      newPanel(PathManual, emit),
		Official:    newPanel(PathOfficial, emit),
		hub:         hub,
		ctx:         ctx,
		cancel:      cancel,
	}
	c.Diagram = diagram.NewContainer(func(s diagram.State) {
		hub.Emit(Event{Kind: EventDiagramUpdate, Diagram: &s})
	})

	c.Chat = &ChatSession{
		ctx:        ctx,
		backend:    opts.Backend,
		formatter:  formatter,
		renderer:   renderer,
		labels:     labels,
		transcript: c.Transcript,
		input:      c.ChatInput,
		intent:     c.Intent,
		diagram:    c.Diagram,
		wg:         &c.wg,
	}
	c.Experiments = &Orchestrator{
		ctx:       ctx,
		backend:   opts.Backend,
		formatter: formatter,
		labels:    labels,
		notice:    c.Notice,
		manual:    c.Manual,
		official:  c.Official,
		wg:        &c.wg,
	}

	if opts.InitialGraph != "" {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.Diagram.Render(ctx, renderer, opts.InitialGraph)
		}()
	}
	return c, nil
}

// Subscribe returns recent history and a channel of subsequent events.
func (c *Console) Subscribe() ([]Event, <-chan Event) {
	return c.hub.Subscribe()
}

// Unsubscribe releases a channel returned by Subscribe.
func (c *Console) Unsubscribe(ch <-chan Event) {
	c.hub.Unsubscribe(ch)
}

// Snapshot captures every region.
func (c *Console) Snapshot() Snapshot {
	return Snapshot{
		ID:         c.ID,
		Seq:        c.hub.Seq(),
		Transcript: c.Transcript.Entries(),
		Intent:     c.Intent.HTML(),
		Diagram:    c.Diagram.Snapshot(),
		Notice:     c.Notice.Text(),
		Manual:     c.Manual.Snapshot(),
		Official:   c.Official.Snapshot(),
	}
}

// Close cancels in-flight requests, waits for them to settle, and closes
// every subscriber.
func (c *Console) Close() {
	c.cancel()
	c.wg.Wait()
	c.hub.Close()
}
