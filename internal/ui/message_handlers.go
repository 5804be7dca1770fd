// SPDX-License-Identifier: Apache-2.0

// Handlers for non-key messages: executor events and the tick. All host
// state mutation happens here, on the update loop.

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"redland-forge/internal/builderr"
	"redland-forge/internal/buildfmt"
	"redland-forge/internal/executor"
	"redland-forge/internal/logger"
	"redland-forge/internal/phase"
)

func (m Model) handleBuildEvent(ev executor.Event) (tea.Model, tea.Cmd) {
	h := m.hosts[ev.Host]
	if h == nil {
		logger.Warnf("Dropping event for unknown host %q", ev.Host)
		return m, waitForEventCmd(m.events)
	}

	switch ev.Kind {
	case executor.EventLine:
		h.buf.Append(buildfmt.Sanitize(ev.Line))
		h.lastActivity = ev.Time

	case executor.EventPhase:
		if h.applyStatus(ev.Phase) {
			m.stats.OnTransition(ev.Host, ev.Phase)
			h.lastActivity = ev.Time
			if ev.Phase.Terminal() {
				h.exitCode = ev.ExitCode
				h.err = ev.Err
				h.terminalAt = ev.Time
				m.recordTiming(ev.Host, h)
				m.armAutoExit()
			}
		}
	}
	return m, waitForEventCmd(m.events)
}

// recordTiming feeds a finished host into the timing cache. Cache failures
// degrade to "cache disabled for this run" rather than affecting the build.
func (m *Model) recordTiming(key string, h *hostState) {
	if m.cache == nil {
		return
	}
	if h.err != nil && h.err.Kind == builderr.KindCancelled {
		return
	}
	sample := m.stats.Track(key).Sample(h.status == phase.Completed)
	if sample.Total == 0 {
		return
	}
	if err := m.cache.Record(key, sample); err != nil {
		logger.Warnf("Timing cache disabled for this run: %v", err)
		m.cache = nil
	}
}

// armAutoExit resets the countdown when every host is terminal and clears
// it otherwise.
func (m *Model) armAutoExit() {
	if m.settings.NoAutoExit {
		return
	}
	if m.allTerminal() {
		m.autoExitDeadline = time.Now().Add(m.settings.AutoExitDelay)
	} else {
		m.autoExitDeadline = time.Time{}
	}
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if m.autoMinimize {
		for _, h := range m.hosts {
			if h.status == phase.Completed && !h.minimized &&
				now.Sub(h.terminalAt) > m.settings.MinimizeTimeout {
				h.minimized = true
			}
		}
	}

	if !m.autoExitDeadline.IsZero() && now.After(m.autoExitDeadline) {
		logger.Info("Auto-exit countdown elapsed, shutting down")
		if cmd := m.beginShutdown(false); cmd != nil {
			return m, cmd
		}
	}

	if m.quitting && m.eventsDone {
		return m, tea.Quit
	}
	return m, tickCmd()
}

// beginShutdown cancels the executor and quits once the event channel has
// drained; until then the tick keeps the UI alive.
func (m *Model) beginShutdown(interrupted bool) tea.Cmd {
	if interrupted {
		m.interrupted = true
	}
	m.quitting = true
	m.autoExitDeadline = time.Time{}
	m.exec.CancelAll()
	if m.eventsDone {
		return tea.Quit
	}
	return nil
}
