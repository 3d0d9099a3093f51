// ABOUTME: Region update events and the hub that fans them out to page, terminal, and test subscribers.
// ABOUTME: Keeps a bounded history so late subscribers can replay recent updates before going live.
package console

import (
	"sync"
	"time"

	"github.com/2389-research/agentdeck/diagram"
)

// EventKind discriminates region updates.
type EventKind string

const (
	EventTranscriptAppend  EventKind = "transcript.append"
	EventTranscriptReplace EventKind = "transcript.replace"
	EventTranscriptScroll  EventKind = "transcript.scroll"
	EventInputClear        EventKind = "input.clear"
	EventIntentUpdate      EventKind = "intent.update"
	EventDiagramUpdate     EventKind = "diagram.update"
	EventPanelReset        EventKind = "panel.reset"
	EventPanelLog          EventKind = "panel.log"
	EventPanelComplete     EventKind = "panel.complete"
	EventPanelFail         EventKind = "panel.fail"
	EventNotice            EventKind = "notice"
)

// Event is one update to one region. Target names the entry, panel path, or
// input the update applies to. HTML is ready-to-insert markup; Text is plain.
type Event struct {
	Seq       int64          `json:"seq"`
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Target    string         `json:"target,omitempty"`
	Role      Role           `json:"role,omitempty"`
	Run       string         `json:"run,omitempty"`
	Status    string         `json:"status,omitempty"`
	HTML      string         `json:"html,omitempty"`
	Text      string         `json:"text,omitempty"`
	Diagram   *diagram.State `json:"diagram,omitempty"`
}

// DefaultHistorySize is how many events a hub retains for replay.
const DefaultHistorySize = 512

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 256

// Hub delivers events to subscribed channels and retains recent history.
type Hub struct {
	mu          sync.RWMutex
	seq         int64
	history     []Event
	limit       int
	subscribers []chan Event
	closed      bool
}

// NewHub creates a hub retaining up to limit events. A non-positive limit
// uses DefaultHistorySize.
func NewHub(limit int) *Hub {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &Hub{limit: limit}
}

// Subscribe registers a subscriber. It returns the retained history and a
// channel carrying every event emitted after it, with no gap between them.
func (h *Hub) Subscribe() ([]Event, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return nil, ch
	}
	history := make([]Event, len(h.history))
	copy(history, h.history)
	h.subscribers = append(h.subscribers, ch)
	return history, ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (h *Hub) Unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subscribers {
		if (<-chan Event)(sub) == ch {
			close(sub)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Emit stamps the event with the next sequence number and delivers it.
// Non-blocking: a subscriber whose buffer is full misses the event and can
// recover from /state.
func (h *Hub) Emit(evt Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return evt
	}
	h.seq++
	evt.Seq = h.seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	h.history = append(h.history, evt)
	if over := len(h.history) - h.limit; over > 0 {
		h.history = append(h.history[:0:0], h.history[over:]...)
	}

	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
	return evt
}

// Seq returns the sequence number of the last emitted event.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Close closes every subscriber channel. Later emits are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
