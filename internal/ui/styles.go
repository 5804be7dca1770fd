// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"github.com/charmbracelet/lipgloss"

	"redland-forge/internal/phase"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	etaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	statusQueuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusConnectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	statusDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	tileBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("238"))
	tileFocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("62"))
	menuBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder(), true).
			BorderForeground(lipgloss.Color("62"))

	// Footer / status bar styles
	footerStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	footerKeyStyle       = lipgloss.NewStyle().Inherit(footerStyle).Foreground(lipgloss.Color("39"))
	footerSeparatorStyle = lipgloss.NewStyle().Inherit(footerStyle).Foreground(lipgloss.Color("240"))
)

// statusStyleFor picks the display style for a host's current phase.
func statusStyleFor(p phase.Phase) lipgloss.Style {
	switch {
	case p == phase.Queued:
		return statusQueuedStyle
	case p == phase.Connecting || p == phase.Preparing:
		return statusConnectStyle
	case p == phase.Completed:
		return statusDoneStyle
	case p == phase.Failed:
		return statusFailedStyle
	default:
		return statusRunningStyle
	}
}
