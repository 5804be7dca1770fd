// SPDX-License-Identifier: Apache-2.0

// Package stats attributes wall-clock time to build phases as transitions
// arrive, and turns finished hosts into timing-cache samples.
package stats

import (
	"time"

	"redland-forge/internal/phase"
	"redland-forge/internal/timing"
)

// HostTimer tracks one host's phase durations. Time elapsed between two
// transitions is attributed to the phase that was running; residual time on a
// terminal transition accrues to the last running phase.
type HostTimer struct {
	buildStart time.Time
	phaseStart time.Time
	current    phase.Phase
	durations  map[phase.Phase]time.Duration
}

// NewHostTimer starts a timer in Queued at now.
func NewHostTimer(now time.Time) *HostTimer {
	return &HostTimer{
		buildStart: now,
		phaseStart: now,
		current:    phase.Queued,
		durations:  make(map[phase.Phase]time.Duration),
	}
}

// Transition records a phase change at now. Calls with a phase at or before
// the current one are ignored so duplicated events cannot double-count.
func (t *HostTimer) Transition(to phase.Phase, now time.Time) {
	if to <= t.current {
		return
	}
	t.durations[t.current] += now.Sub(t.phaseStart)
	t.current = to
	t.phaseStart = now
}

// Current returns the phase the timer is accruing against.
func (t *HostTimer) Current() phase.Phase { return t.current }

// PhaseDuration returns the accumulated time for p. For the currently
// running phase the in-progress slice up to now is included.
func (t *HostTimer) PhaseDuration(p phase.Phase, now time.Time) time.Duration {
	d := t.durations[p]
	if p == t.current && !t.current.Terminal() {
		d += now.Sub(t.phaseStart)
	}
	return d
}

// ElapsedInPhase returns time spent in the current phase so far.
func (t *HostTimer) ElapsedInPhase(now time.Time) time.Duration {
	if t.current.Terminal() {
		return t.durations[t.current]
	}
	return now.Sub(t.phaseStart)
}

// BuildElapsed returns time since the build entered the timer.
func (t *HostTimer) BuildElapsed(now time.Time) time.Duration {
	return now.Sub(t.buildStart)
}

// Sample converts the accumulated durations into a timing-cache sample.
// Only meaningful after a terminal transition.
func (t *HostTimer) Sample(success bool) timing.Sample {
	total := time.Duration(0)
	for _, d := range t.durations {
		total += d
	}
	return timing.Sample{
		Configure: t.durations[phase.Configure],
		Make:      t.durations[phase.Make],
		Check:     t.durations[phase.Check],
		Install:   t.durations[phase.Install],
		Total:     total,
		Success:   success,
	}
}

// Manager owns the per-host timers plus the run clock. It lives on the
// controller goroutine and is not safe for concurrent use.
type Manager struct {
	runStart time.Time
	timers   map[string]*HostTimer
	now      func() time.Time
}

// NewManager starts the run clock.
func NewManager() *Manager {
	return newManagerAt(time.Now)
}

func newManagerAt(now func() time.Time) *Manager {
	return &Manager{
		runStart: now(),
		timers:   make(map[string]*HostTimer),
		now:      now,
	}
}

// Track creates (or returns) the timer for host.
func (m *Manager) Track(host string) *HostTimer {
	if t, ok := m.timers[host]; ok {
		return t
	}
	t := NewHostTimer(m.now())
	m.timers[host] = t
	return t
}

// Timer returns host's timer, or nil if it was never tracked.
func (m *Manager) Timer(host string) *HostTimer { return m.timers[host] }

// OnTransition applies a phase change for host at the current time.
func (m *Manager) OnTransition(host string, to phase.Phase) {
	m.Track(host).Transition(to, m.now())
}

// RunElapsed is the wall-clock time since the run began.
func (m *Manager) RunElapsed() time.Duration {
	return m.now().Sub(m.runStart)
}
