// ABOUTME: Test doubles shared by the console tests: a scriptable backend and event helpers.
// ABOUTME: The fake counts calls atomically so tests can assert which requests were issued.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2389-research/agentdeck/backend"
)

type fakeBackend struct {
	chatCalls     atomic.Int64
	manualCalls   atomic.Int64
	officialCalls atomic.Int64

	chat     func(ctx context.Context, message string) (*backend.ChatPayload, error)
	manual   func(ctx context.Context, symbol string) (*backend.ManualReport, error)
	official func(ctx context.Context, symbol string) (*backend.OfficialResponse, error)
}

func (f *fakeBackend) Chat(ctx context.Context, message string) (*backend.ChatPayload, error) {
	f.chatCalls.Add(1)
	if f.chat == nil {
		return &backend.ChatPayload{Text: "echo: " + message, Intent: "general"}, nil
	}
	return f.chat(ctx, message)
}

func (f *fakeBackend) Manual(ctx context.Context, symbol string) (*backend.ManualReport, error) {
	f.manualCalls.Add(1)
	if f.manual == nil {
		return &backend.ManualReport{DataRaw: "raw " + backend.LooseText(symbol), FinalResponse: "report"}, nil
	}
	return f.manual(ctx, symbol)
}

func (f *fakeBackend) Official(ctx context.Context, symbol string) (*backend.OfficialResponse, error) {
	f.officialCalls.Add(1)
	if f.official == nil {
		return officialText("analysis for " + symbol), nil
	}
	return f.official(ctx, symbol)
}

// officialText builds a successful official reply carrying text.
func officialText(text string) *backend.OfficialResponse {
	raw, _ := json.Marshal([]backend.TextPart{{Text: text}})
	return &backend.OfficialResponse{Result: &backend.OfficialResult{FinalResponse: raw}}
}

var errRejected = errors.New("connection refused")

func newTestConsole(t *testing.T, fb *fakeBackend) *Console {
	t.Helper()
	c, err := New(Options{Backend: fb})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitTurn(t *testing.T, turn *Turn) {
	t.Helper()
	select {
	case <-turn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat turn")
	}
}

func waitRun(t *testing.T, run *Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for experiment run")
	}
}

// waitEvent reads ch until an event matching match arrives.
func waitEvent(t *testing.T, ch <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				t.Fatal("event channel closed")
			}
			if match(evt) {
				return evt
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}
