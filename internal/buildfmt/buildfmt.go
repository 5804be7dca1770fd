// SPDX-License-Identifier: Apache-2.0

// Package buildfmt provides the small text helpers shared by the TUI and the
// summary printer: duration formatting, display-width-aware truncation and
// sanitization of remote output before it reaches the terminal.
package buildfmt

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Duration renders a duration the way the summary and host tiles show it:
// "42s", "3m12s", "1h04m".
func Duration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second).Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh%02dm", secs/3600, (secs%3600)/60)
	}
}

// ApproxDuration renders "~4s" style durations used next to host names.
func ApproxDuration(d time.Duration) string {
	return "~" + Duration(d)
}

// Truncate shortens s to fit within width terminal cells, appending an
// ellipsis when anything was cut. Width accounting uses display width, not
// byte or rune counts, so wide runes do not overflow tiles.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(s, width-1, "") + "…"
}

// Sanitize replaces bytes outside printable/whitespace ranges with the
// replacement glyph so remote output cannot inject escape sequences into the
// terminal. Tabs survive; other control characters do not.
func Sanitize(s string) string {
	if isClean(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('�')
		}
	}
	return b.String()
}

func isClean(s string) bool {
	for _, r := range s {
		if r != '\t' && !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Percent formats a ratio as "66.7%".
func Percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}
