// SPDX-License-Identifier: Apache-2.0

// Plain progress mode: one line per event, suitable for pipes, dumb
// terminals and --no-progress. Shares the executor and cache plumbing with
// the dashboard; only the presentation differs.

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"redland-forge/internal/buildfmt"
	"redland-forge/internal/builderr"
	"redland-forge/internal/config"
	"redland-forge/internal/executor"
	"redland-forge/internal/logger"
	"redland-forge/internal/phase"
	"redland-forge/internal/stats"
	"redland-forge/internal/summary"
	"redland-forge/internal/timing"
)

var (
	hostColor    = color.New(color.FgCyan)
	phaseColor   = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
)

type outcome struct {
	success  bool
	err      error
	duration time.Duration
}

// runPlain drains the executor to stdout until every host is terminal or
// the user interrupts.
func runPlain(settings config.Settings, hosts []config.Host, exec *executor.Executor, cache *timing.Cache) ([]summary.Result, time.Duration, bool) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	statsMgr := stats.NewManager()
	outcomes := make(map[string]*outcome, len(hosts))
	for _, h := range hosts {
		statsMgr.Track(h.Key)
		outcomes[h.Key] = &outcome{}
	}

	var spin *spinner.Spinner
	if term.IsTerminal(int(os.Stdout.Fd())) {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = " waiting for hosts..."
		spin.Start()
	}
	stopSpinner := func() {
		if spin != nil {
			spin.Stop()
			spin = nil
		}
	}
	defer stopSpinner()

	interrupted := false
	events := exec.Events()
	for {
		select {
		case sig := <-sigCh:
			stopSpinner()
			logger.Info("Received signal, cancelling builds", "signal", sig.String())
			fmt.Println("Interrupted, cancelling builds...")
			interrupted = true
			exec.CancelAll()
		case ev, ok := <-events:
			if !ok {
				stopSpinner()
				results := make([]summary.Result, 0, len(hosts))
				for _, h := range hosts {
					o := outcomes[h.Key]
					results = append(results, summary.Result{
						Host: h.Key, Success: o.success, Duration: o.duration, Err: o.err,
					})
				}
				return results, statsMgr.RunElapsed(), interrupted
			}
			stopSpinner()
			o := outcomes[ev.Host]
			if o == nil {
				logger.Warnf("Dropping event for unknown host %q", ev.Host)
				continue
			}
			handlePlainEvent(ev, statsMgr, cache, o)
		}
	}
}

func handlePlainEvent(ev executor.Event, statsMgr *stats.Manager, cache *timing.Cache, o *outcome) {
	switch ev.Kind {
	case executor.EventLine:
		fmt.Printf("%s %s\n", hostColor.Sprintf("[%s]", ev.Host), buildfmt.Sanitize(ev.Line))

	case executor.EventPhase:
		statsMgr.OnTransition(ev.Host, ev.Phase)
		timer := statsMgr.Track(ev.Host)
		switch ev.Phase {
		case phase.Completed:
			o.success = true
			o.duration = timer.Sample(true).Total
			successColor.Printf("=== %s completed in %s ===\n", ev.Host, buildfmt.Duration(o.duration))
			recordPlain(cache, ev.Host, timer, true, nil)
		case phase.Failed:
			o.err = ev.Err
			o.duration = timer.Sample(false).Total
			failureColor.Printf("=== %s failed", ev.Host)
			if ev.Err != nil {
				failureColor.Printf(": %v", ev.Err)
			}
			failureColor.Println(" ===")
			recordPlain(cache, ev.Host, timer, false, ev.Err)
		default:
			phaseColor.Printf("--- %s: %s ---\n", ev.Host, ev.Phase)
		}
	}
}

// recordPlain mirrors the dashboard's cache recording for the plain path.
func recordPlain(cache *timing.Cache, host string, timer *stats.HostTimer, success bool, buildErr *builderr.BuildError) {
	if cache == nil {
		return
	}
	if buildErr != nil && buildErr.Kind == builderr.KindCancelled {
		return
	}
	sample := timer.Sample(success)
	if sample.Total == 0 {
		return
	}
	if err := cache.Record(host, sample); err != nil {
		logger.Warnf("Failed to record build timing for %s: %v", host, err)
	}
}
