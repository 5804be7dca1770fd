// SPDX-License-Identifier: Apache-2.0

// Package tui boots the Bubble Tea program around the build dashboard.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"redland-forge/internal/config"
	"redland-forge/internal/executor"
	"redland-forge/internal/timing"
	"redland-forge/internal/ui"
)

// Run drives the dashboard until the run finishes or the user quits, and
// returns the final model for the summary.
func Run(settings config.Settings, hosts []config.Host, exec *executor.Executor, cache *timing.Cache) (ui.Model, error) {
	m := ui.New(settings, hosts, exec, cache)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return m, err
	}
	return final.(ui.Model), nil
}
