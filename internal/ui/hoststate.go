// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"time"

	"redland-forge/internal/builderr"
	"redland-forge/internal/config"
	"redland-forge/internal/outputbuf"
	"redland-forge/internal/phase"
)

// followTail makes a host's log view stick to the newest line.
const followTail = -1

// hostState is the controller-owned state of one build host. Workers never
// touch it; every mutation happens on the update loop.
type hostState struct {
	host         config.Host
	status       phase.Phase
	buf          *outputbuf.Buffer
	exitCode     int
	err          *builderr.BuildError
	lastActivity time.Time
	terminalAt   time.Time

	// scroll is the absolute index of the first visible log line, or
	// followTail to track the end of the buffer.
	scroll    int
	minimized bool
}

func newHostState(h config.Host, bufferCap int) *hostState {
	return &hostState{
		host:     h,
		status:   phase.Queued,
		buf:      outputbuf.New(bufferCap),
		exitCode: -1,
		scroll:   followTail,
	}
}

// applyStatus advances the host's phase, ignoring regressions so stale or
// duplicated events cannot move a host backwards.
func (h *hostState) applyStatus(p phase.Phase) bool {
	if p <= h.status {
		return false
	}
	h.status = p
	return true
}

func (h *hostState) terminal() bool { return h.status.Terminal() }

// scrollBy moves the scroll window, clamping to the buffer and switching
// back to tail-follow when scrolled past the end.
func (h *hostState) scrollBy(delta, page int) {
	total := h.buf.Total()
	cur := h.scroll
	if cur == followTail {
		cur = total - page
	}
	cur += delta
	if cur < h.buf.Base() {
		cur = h.buf.Base()
	}
	if cur >= total-page {
		h.scroll = followTail
		return
	}
	h.scroll = cur
}

// visibleLines returns the log window for a content area of the given height.
func (h *hostState) visibleLines(height int) []string {
	if height <= 0 {
		return nil
	}
	if h.scroll == followTail {
		return h.buf.Tail(height)
	}
	return h.buf.Snapshot(h.scroll, height)
}
