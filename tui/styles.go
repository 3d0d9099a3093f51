// ABOUTME: Defines lipgloss style constants for the terminal console panels, phase colors, and transcript roles.
// ABOUTME: Provides StyleForPhase to map a research panel phase to its display style.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/agentdeck/console"
)

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))
	FocusedBorderStyle = BorderStyle.
				BorderForeground(lipgloss.Color("170"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Phase colors
	IdleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Transcript roles
	UserStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	AgentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	PendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)

	// Diagram nodes
	ActiveNodeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	EmergencyNodeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	EdgeStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Log lines
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogLineStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	NoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)
)

// StyleForPhase returns the lipgloss style for a panel phase.
func StyleForPhase(phase console.Phase) lipgloss.Style {
	switch phase {
	case console.PhaseRunning:
		return RunningStyle
	case console.PhaseCompleted:
		return CompletedStyle
	case console.PhaseErrored:
		return FailedStyle
	default:
		return IdleStyle
	}
}
