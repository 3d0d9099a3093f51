// ABOUTME: Bubble Tea message types used in the terminal console message loop.
// ABOUTME: Each type wraps console events or submission outcomes for the tea.Msg interface.
package tui

import (
	"time"

	"github.com/2389-research/agentdeck/console"
)

// ConsoleEventMsg wraps a console.Event for the Bubble Tea message loop.
type ConsoleEventMsg struct {
	Event console.Event
}

// EventsClosedMsg signals that the console closed its event channel.
type EventsClosedMsg struct{}

// SubmitErrMsg reports a submission that failed for a reason other than
// empty input.
type SubmitErrMsg struct {
	Err error
}

// TickMsg is sent periodically to refresh elapsed timers.
type TickMsg struct {
	Time time.Time
}
