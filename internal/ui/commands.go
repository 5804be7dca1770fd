// SPDX-License-Identifier: Apache-2.0

// Bubble Tea commands. Each command runs in its own goroutine and reports
// back to the update loop as a message.

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"redland-forge/internal/executor"
)

// tickInterval is the render/update heartbeat.
const tickInterval = 100 * time.Millisecond

// waitForEventCmd receives the next executor event. The model re-issues it
// after handling each build event, so the channel is drained one event per
// update cycle and backpressure is preserved end to end.
func waitForEventCmd(events <-chan executor.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return buildEventMsg{event: event}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
