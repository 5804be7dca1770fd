// SPDX-License-Identifier: Apache-2.0

// Package summary prints the end-of-run report to stdout once the TUI has
// released the terminal.
package summary

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"redland-forge/internal/buildfmt"
)

// Result is the final outcome of one host's build.
type Result struct {
	Host     string
	Success  bool
	Duration time.Duration
	Err      error
}

const banner = "============"

// Print writes the build summary. Color is controlled globally via
// color.NoColor, which the CLI sets from the --color flag.
func Print(w io.Writer, results []Result, wallClock time.Duration) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	fmt.Fprintln(w, banner)
	bold.Fprintln(w, "BUILD SUMMARY")
	fmt.Fprintln(w, banner)
	fmt.Fprintf(w, "Total time: %s\n", buildfmt.Duration(wallClock))

	var ok, failed []Result
	for _, r := range results {
		if r.Success {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}

	if len(ok) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "SUCCESSFUL BUILDS")
		for _, r := range ok {
			green.Fprintf(w, "  ✓ %s (%s)\n", r.Host, buildfmt.ApproxDuration(r.Duration))
		}
	}

	if len(failed) > 0 {
		fmt.Fprintln(w)
		bold.Fprintln(w, "FAILED BUILDS")
		for _, r := range failed {
			red.Fprintf(w, "  ✗ %s (%s)\n", r.Host, buildfmt.ApproxDuration(r.Duration))
			if r.Err != nil {
				fmt.Fprintf(w, "    Error: %v\n", r.Err)
			}
		}
	}

	fmt.Fprintln(w)
	pct := 0.0
	if len(results) > 0 {
		pct = float64(len(ok)) / float64(len(results))
	}
	fmt.Fprintf(w, "Overall: %d/%d builds successful (%s)\n", len(ok), len(results), buildfmt.Percent(pct))
}
