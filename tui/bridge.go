// ABOUTME: Bridge connecting a console's event hub to the Bubble Tea message loop.
// ABOUTME: Provides tea.Cmd factories for event delivery, chat and experiment submission, and ticks.
package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/agentdeck/backend"
	"github.com/2389-research/agentdeck/console"
)

// WaitForEventCmd returns a tea.Cmd that blocks on the subscription channel
// and delivers the next event. A closed channel yields EventsClosedMsg.
func WaitForEventCmd(ch <-chan console.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return EventsClosedMsg{}
		}
		return ConsoleEventMsg{Event: evt}
	}
}

// SubmitChatCmd starts a chat turn. The turn reports through console events,
// so only unexpected errors come back as messages.
func SubmitChatCmd(c *console.Console, message string) tea.Cmd {
	return func() tea.Msg {
		return submitResult(c.Chat.Submit(message))
	}
}

// StartExperimentCmd starts both research paths for symbol.
func StartExperimentCmd(c *console.Console, symbol string) tea.Cmd {
	return func() tea.Msg {
		return submitResult(c.Experiments.Start(symbol))
	}
}

// submitResult drops validation failures, which the console already surfaces
// as a notice or a no-op.
func submitResult[T any](_ T, err error) tea.Msg {
	if err == nil {
		return nil
	}
	var verr *backend.ValidationError
	if errors.As(err, &verr) {
		return nil
	}
	return SubmitErrMsg{Err: err}
}

// TickCmd returns a tea.Cmd that sends a TickMsg after the given interval.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
