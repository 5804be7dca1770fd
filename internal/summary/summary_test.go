// SPDX-License-Identifier: Apache-2.0

package summary

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func printPlain(t *testing.T, results []Result, wallClock time.Duration) string {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	Print(&buf, results, wallClock)
	return buf.String()
}

func TestPrintMixedResults(t *testing.T) {
	results := []Result{
		{Host: "alice@a.example", Success: true, Duration: 95 * time.Second},
		{Host: "bob@b.example", Success: false, Duration: 12 * time.Second, Err: errors.New("build failed with exit status 2")},
		{Host: "carol@c.example", Success: true, Duration: 2 * time.Minute},
	}

	out := printPlain(t, results, 3*time.Minute)

	assert.Contains(t, out, "BUILD SUMMARY")
	assert.Contains(t, out, "Total time: 3m00s")
	assert.Contains(t, out, "SUCCESSFUL BUILDS")
	assert.Contains(t, out, "✓ alice@a.example (~1m35s)")
	assert.Contains(t, out, "✓ carol@c.example (~2m00s)")
	assert.Contains(t, out, "FAILED BUILDS")
	assert.Contains(t, out, "✗ bob@b.example (~12s)")
	assert.Contains(t, out, "Error: build failed with exit status 2")
	assert.Contains(t, out, "Overall: 2/3 builds successful (66.7%)")

	// Successes print before failures.
	require.Less(t, strings.Index(out, "alice@"), strings.Index(out, "bob@"))
}

func TestPrintAllSuccessful(t *testing.T) {
	out := printPlain(t, []Result{
		{Host: "h1", Success: true, Duration: time.Second},
	}, time.Second)

	assert.NotContains(t, out, "FAILED BUILDS")
	assert.Contains(t, out, "Overall: 1/1 builds successful (100.0%)")
}

func TestPrintFailureWithoutError(t *testing.T) {
	out := printPlain(t, []Result{
		{Host: "h1", Success: false, Duration: time.Second},
	}, time.Second)

	assert.Contains(t, out, "✗ h1")
	assert.NotContains(t, out, "Error:")
	assert.NotContains(t, out, "SUCCESSFUL BUILDS")
}

func TestPrintNoResults(t *testing.T) {
	out := printPlain(t, nil, 0)
	assert.Contains(t, out, "Overall: 0/0 builds successful (0.0%)")
}
