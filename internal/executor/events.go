// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"time"

	"redland-forge/internal/builderr"
	"redland-forge/internal/phase"
)

// EventKind discriminates executor events.
type EventKind int

const (
	// EventLine carries one line of remote build output.
	EventLine EventKind = iota
	// EventPhase reports a phase transition, including the terminal ones.
	EventPhase
)

// Event is one progress notification from a worker. Events from a single
// worker arrive in emission order; events from different workers interleave
// and are keyed by Host.
type Event struct {
	Kind EventKind
	Host string // host key, user@hostname
	Time time.Time

	Line string // EventLine only

	Phase    phase.Phase          // EventPhase only
	ExitCode int                  // EventPhase, terminal phases; -1 when unknown
	Err      *builderr.BuildError // EventPhase with Phase == Failed
}

// Terminal reports whether the event ends its host's build.
func (e Event) Terminal() bool {
	return e.Kind == EventPhase && e.Phase.Terminal()
}
