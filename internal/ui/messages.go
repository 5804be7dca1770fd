// SPDX-License-Identifier: Apache-2.0

// Message types for the Bubble Tea update loop. Executor progress arrives
// as buildEventMsg, pumped one event per command so the update loop stays
// responsive; the tick drives timers, ETA refresh and auto-exit.

package ui

import (
	"time"

	"redland-forge/internal/executor"
)

type buildEventMsg struct{ event executor.Event }

// eventsClosedMsg is sent once the executor's event channel closes: every
// host has reached a terminal state.
type eventsClosedMsg struct{}

type tickMsg time.Time
