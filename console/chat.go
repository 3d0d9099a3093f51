// ABOUTME: ChatSession drives one request/response cycle per submitted chat message.
// ABOUTME: Fills a pending transcript entry, updates the intent board, and re-renders the annotated pipeline diagram.
package console

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/diagram"
	"github.com/2389-research/agentdeck/format"
)

// ChatBackend answers chat messages.
type ChatBackend interface {
	Chat(ctx context.Context, message string) (*backend.ChatPayload, error)
}

// TurnState is a chat turn's position in its lifecycle.
type TurnState string

const (
	TurnIdle             TurnState = "idle"
	TurnSending          TurnState = "sending"
	TurnAwaitingResponse TurnState = "awaiting_response"
	TurnRendering        TurnState = "rendering"
	TurnErrored          TurnState = "errored"
)

// Turn is one submitted chat message. PlaceholderID names the transcript
// entry the turn fills in.
type Turn struct {
	PlaceholderID string
	Message       string

	generation uint64
	mu         sync.Mutex
	state      TurnState
	err        error
	done       chan struct{}
}

// State returns the turn's current state.
func (t *Turn) State() TurnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the turn has reached a terminal state.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Wait blocks until the turn finishes and returns the backend error, if any.
func (t *Turn) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Turn) setState(s TurnState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// ChatSession owns the transcript, chat input, intent board, and diagram.
type ChatSession struct {
	ctx       context.Context
	backend   ChatBackend
	formatter *format.Formatter
	renderer  diagram.Renderer
	labels    Labels

	transcript *Transcript
	input      *Input
	intent     *IntentBoard
	diagram    *diagram.Container

	generation atomic.Uint64
	wg         *sync.WaitGroup
}

// Submit starts a turn for raw. Whitespace-only input is rejected with a
// *backend.ValidationError and touches nothing. The request runs in the
// background; an earlier turn still in flight is not cancelled.
func (s *ChatSession) Submit(raw string) (*Turn, error) {
	message := strings.TrimSpace(raw)
	if message == "" {
		return nil, backend.NewValidationError("chat message is empty")
	}

	turn := &Turn{
		PlaceholderID: "loading-" + uuid.NewString(),
		Message:       message,
		generation:    s.generation.Add(1),
		state:         TurnSending,
		done:          make(chan struct{}),
	}

	s.transcript.Append(Entry{ID: "user-" + uuid.NewString(), Role: RoleUser, HTML: s.formatter.Sanitize(message)})
	s.input.Clear()
	s.transcript.Append(Entry{ID: turn.PlaceholderID, Role: RoleAgent, HTML: template.HTMLEscapeString(s.labels.ChatPending), Pending: true})
	s.transcript.ScrollToBottom()

	s.wg.Add(1)
	go s.run(turn)
	return turn, nil
}

// run completes a turn. The transcript is always scrolled to the bottom as
// the last step, on success and failure alike.
func (s *ChatSession) run(t *Turn) {
	defer s.wg.Done()
	defer close(t.done)
	defer s.transcript.ScrollToBottom()

	t.setState(TurnAwaitingResponse)
	payload, err := s.backend.Chat(s.ctx, t.Message)
	if err != nil {
		log.Printf("component=console.chat action=turn_failed placeholder=%s err=%v", t.PlaceholderID, err)
		s.transcript.Replace(t.PlaceholderID, template.HTMLEscapeString(s.labels.ChatFailure))
		t.mu.Lock()
		t.state = TurnErrored
		t.err = err
		t.mu.Unlock()
		return
	}

	t.setState(TurnRendering)
	msg := s.formatter.Format(payload.Text)
	s.transcript.Replace(t.PlaceholderID, msg.HTML)

	if t.generation != s.generation.Load() {
		log.Printf("component=console.chat action=stale_turn placeholder=%s generation=%d", t.PlaceholderID, t.generation)
		t.setState(TurnIdle)
		return
	}

	s.intent.Set(s.intentHTML(payload))
	if payload.Graph != nil && *payload.Graph != "" {
		s.diagram.Render(s.ctx, s.renderer, diagram.Annotate(*payload.Graph, payload.Intent, payload.IsEmergency))
	}
	t.setState(TurnIdle)
}

// intentHTML renders the classification summary line.
func (s *ChatSession) intentHTML(p *backend.ChatPayload) string {
	marker := ""
	if p.IsEmergency {
		marker = fmt.Sprintf("<span style='color:red;'>%s</span>", template.HTMLEscapeString(s.labels.Emergency))
	}
	return fmt.Sprintf("%s<b>%s</b> %s",
		template.HTMLEscapeString(s.labels.IntentTitle),
		template.HTMLEscapeString(p.Intent),
		marker,
	)
}
