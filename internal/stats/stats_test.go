// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redland-forge/internal/phase"
)

func TestTransitionAttributesTime(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	timer := NewHostTimer(start)

	timer.Transition(phase.Connecting, start.Add(2*time.Second))
	timer.Transition(phase.Configure, start.Add(5*time.Second))
	timer.Transition(phase.Make, start.Add(35*time.Second))
	timer.Transition(phase.Completed, start.Add(95*time.Second))

	now := start.Add(100 * time.Second)
	assert.Equal(t, 2*time.Second, timer.PhaseDuration(phase.Queued, now))
	assert.Equal(t, 3*time.Second, timer.PhaseDuration(phase.Connecting, now))
	assert.Equal(t, 30*time.Second, timer.PhaseDuration(phase.Configure, now))
	assert.Equal(t, 60*time.Second, timer.PhaseDuration(phase.Make, now))
}

func TestTransitionIgnoresRegressions(t *testing.T) {
	start := time.Now()
	timer := NewHostTimer(start)

	timer.Transition(phase.Make, start.Add(time.Second))
	timer.Transition(phase.Configure, start.Add(2*time.Second))
	timer.Transition(phase.Make, start.Add(3*time.Second))

	assert.Equal(t, phase.Make, timer.Current())
	// Nothing accrued against Configure from the ignored calls.
	assert.Equal(t, time.Duration(0), timer.PhaseDuration(phase.Configure, start.Add(time.Second)))
}

func TestPhaseDurationIncludesInProgress(t *testing.T) {
	start := time.Now()
	timer := NewHostTimer(start)
	timer.Transition(phase.Make, start)

	assert.Equal(t, 7*time.Second, timer.PhaseDuration(phase.Make, start.Add(7*time.Second)))
	assert.Equal(t, 7*time.Second, timer.ElapsedInPhase(start.Add(7*time.Second)))
}

func TestElapsedInPhaseAfterTerminal(t *testing.T) {
	start := time.Now()
	timer := NewHostTimer(start)
	timer.Transition(phase.Failed, start.Add(time.Second))

	// Terminal phases do not keep accruing.
	assert.Equal(t, time.Duration(0), timer.ElapsedInPhase(start.Add(time.Hour)))
}

func TestBuildElapsed(t *testing.T) {
	start := time.Now()
	timer := NewHostTimer(start)
	assert.Equal(t, 90*time.Second, timer.BuildElapsed(start.Add(90*time.Second)))
}

func TestSample(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	timer := NewHostTimer(start)

	timer.Transition(phase.Configure, start.Add(5*time.Second))
	timer.Transition(phase.Make, start.Add(15*time.Second))
	timer.Transition(phase.Check, start.Add(75*time.Second))
	timer.Transition(phase.Install, start.Add(95*time.Second))
	timer.Transition(phase.Completed, start.Add(105*time.Second))

	s := timer.Sample(true)
	assert.Equal(t, 10*time.Second, s.Configure)
	assert.Equal(t, 60*time.Second, s.Make)
	assert.Equal(t, 20*time.Second, s.Check)
	assert.Equal(t, 10*time.Second, s.Install)
	assert.Equal(t, 105*time.Second, s.Total)
	assert.True(t, s.Success)
}

func TestManagerTrackReusesTimers(t *testing.T) {
	m := NewManager()
	first := m.Track("h")
	require.NotNil(t, first)
	assert.Same(t, first, m.Track("h"))
	assert.Same(t, first, m.Timer("h"))
	assert.Nil(t, m.Timer("other"))
}

func TestManagerRunElapsed(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := newManagerAt(func() time.Time { return now })

	now = now.Add(42 * time.Second)
	assert.Equal(t, 42*time.Second, m.RunElapsed())
}

func TestManagerOnTransition(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := newManagerAt(func() time.Time { return now })

	m.OnTransition("h", phase.Connecting)
	now = now.Add(3 * time.Second)
	m.OnTransition("h", phase.Configure)

	timer := m.Timer("h")
	require.NotNil(t, timer)
	assert.Equal(t, phase.Configure, timer.Current())
	assert.Equal(t, 3*time.Second, timer.PhaseDuration(phase.Connecting, now))
}
