// SPDX-License-Identifier: Apache-2.0

package phase

import (
	"regexp"
	"strings"
)

// rule is one (phase, matcher, priority) row of the detection table.
// Priority follows canonical phase order so a line matching several rules
// advances to the latest phase it names.
type rule struct {
	phase    Phase
	priority int
	match    func(line string) bool
}

var makeEnterRe = regexp.MustCompile(`^make\[`)

func substr(needle string) func(string) bool {
	return func(line string) bool { return strings.Contains(line, needle) }
}

func prefix(p string) func(string) bool {
	return func(line string) bool { return strings.HasPrefix(line, p) }
}

func anyOf(fns ...func(string) bool) func(string) bool {
	return func(line string) bool {
		for _, fn := range fns {
			if fn(line) {
				return true
			}
		}
		return false
	}
}

// Detector classifies trimmed output lines into monotonic phase
// transitions. It never regresses: a rule for an earlier phase than the
// current one is ignored.
type Detector struct {
	current Phase
	rules   []rule
}

// NewDetector returns a detector positioned at Queued. installPrefix, when
// non-empty, additionally treats lines beginning with that path as install
// activity (the agent prints installed file paths during make install).
func NewDetector(installPrefix string) *Detector {
	installMatch := anyOf(substr("make install"), substr("installing "))
	if installPrefix != "" {
		installMatch = anyOf(installMatch, prefix(installPrefix))
	}
	return &Detector{
		current: Queued,
		rules: []rule{
			{Preparing, int(Preparing), anyOf(substr("Uploading"), substr("Extracting"), prefix("tar: "))},
			{Configure, int(Configure), anyOf(substr("configure:"), substr("./configure"), substr("checking for"))},
			{Make, int(Make), anyOf(makeEnterRe.MatchString, substr("make: Entering directory"))},
			{Check, int(Check), anyOf(substr("make check"), substr("Testsuite summary"), prefix("PASS:"), prefix("FAIL:"))},
			{Install, int(Install), installMatch},
			{Completed, int(Completed), func(line string) bool { return line == "BUILD OK" }},
			{Failed, int(Failed), func(line string) bool { return line == "BUILD FAILED" }},
		},
	}
}

// Current returns the detector's present phase.
func (d *Detector) Current() Phase { return d.current }

// Advance moves the detector forward without a matching line, used for
// transitions driven by the worker itself (connecting, preparing) or by the
// remote exit status (failed). Regressions are ignored; the new phase is
// returned together with whether a transition happened.
func (d *Detector) Advance(p Phase) (Phase, bool) {
	if d.current.Terminal() || p <= d.current {
		return d.current, false
	}
	d.current = p
	return d.current, true
}

// Feed classifies one output line. It returns the new phase and true when a
// transition fired, otherwise the current phase and false. Unknown lines
// leave the phase unchanged. Among multiple matching rules the highest
// priority advancing rule wins.
func (d *Detector) Feed(line string) (Phase, bool) {
	if d.current.Terminal() {
		return d.current, false
	}
	line = strings.TrimSpace(line)

	best := -1
	bestPhase := d.current
	for _, r := range d.rules {
		if r.phase <= d.current || r.priority <= best {
			continue
		}
		if r.match(line) {
			best = r.priority
			bestPhase = r.phase
		}
	}
	if best < 0 {
		return d.current, false
	}
	d.current = bestPhase
	return d.current, true
}
