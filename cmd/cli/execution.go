// SPDX-License-Identifier: Apache-2.0

// The build run itself: resolve hosts, start the executor and hand the
// event stream to the dashboard or the plain progress printer.

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"redland-forge/cmd/tui"
	"redland-forge/internal/config"
	"redland-forge/internal/executor"
	"redland-forge/internal/logger"
	"redland-forge/internal/sshexec"
	"redland-forge/internal/summary"
	"redland-forge/internal/timing"
	"redland-forge/internal/ui"
)

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }

func runBuild(cmd *cobra.Command, args []string) error {
	settings, err := mergedSettings(cmd)
	if err != nil {
		return &exitError{code: ExitUsage, msg: err.Error()}
	}
	applyColorMode(settings.Color)

	settings.Tarball = args[0]
	if info, statErr := os.Stat(settings.Tarball); statErr != nil {
		return &exitError{code: ExitUsage, msg: fmt.Sprintf("cannot read tarball %s: %v", settings.Tarball, statErr)}
	} else if info.IsDir() {
		return &exitError{code: ExitUsage, msg: fmt.Sprintf("%s is a directory, not a tarball", settings.Tarball)}
	}

	entries := args[1:]
	if flags.hostsFile != "" {
		fileEntries, loadErr := config.LoadHostsFile(flags.hostsFile)
		if loadErr != nil {
			return &exitError{code: ExitUsage, msg: loadErr.Error()}
		}
		entries = append(entries, fileEntries...)
	}
	hosts, err := config.ParseHostArgs(entries)
	if err != nil {
		return &exitError{code: ExitUsage, msg: err.Error()}
	}
	if len(hosts) == 0 {
		return &exitError{code: ExitUsage, msg: "no hosts given (pass user@hostname arguments or --hosts-file)"}
	}

	useTUI := !settings.NoProgress && term.IsTerminal(int(os.Stdout.Fd()))
	initLogging(settings, useTUI)

	if settings.MaxConcurrent == 0 {
		settings.MaxConcurrent = deriveMaxConcurrent()
	}
	logger.Info("Starting build run",
		"tarball", settings.Tarball, "hosts", len(hosts), "max_concurrent", settings.MaxConcurrent)

	var cache *timing.Cache
	if !settings.NoCache {
		path := settings.CacheFile
		if path == "" {
			if path, err = timing.DefaultPath(); err != nil {
				logger.Warnf("Timing cache disabled: %v", err)
			}
		}
		if path != "" {
			cache = timing.Load(path,
				timing.WithRetention(settings.CacheRetention),
				timing.WithKeepBuilds(settings.CacheKeep),
				timing.WithDemoPrefixes(settings.DemoPrefixes))
		}
	}

	exec := executor.New(sshexec.NewDialer(settings.ConnectTimeout), executor.Options{
		MaxConcurrent:  settings.MaxConcurrent,
		ConnectTimeout: settings.ConnectTimeout,
		BuildTimeout:   settings.BuildTimeout,
		IdleTimeout:    settings.IdleTimeout,
	})
	exec.Start(hosts, settings.Tarball)

	var results []summary.Result
	var wallClock time.Duration
	interrupted := false

	if useTUI {
		final, runErr := tui.Run(settings, hosts, exec, cache)
		if runErr != nil {
			// The dashboard could not keep the terminal; degrade to plain
			// output for the rest of the run instead of abandoning it.
			logger.Errorf("Dashboard failed, falling back to plain output: %v", runErr)
			results, wallClock, interrupted = runPlain(settings, hosts, exec, cache)
		} else {
			results = final.Results()
			wallClock = final.RunElapsed()
			interrupted = final.Interrupted()
		}
	} else {
		results, wallClock, interrupted = runPlain(settings, hosts, exec, cache)
	}

	summary.Print(os.Stdout, results, wallClock)

	if interrupted {
		return &exitError{code: ExitInterrupted}
	}
	for _, r := range results {
		if !r.Success {
			return &exitError{code: ExitBuildFailed}
		}
	}
	return nil
}

// deriveMaxConcurrent sizes the pool from the terminal height: one build
// per tile row that fits, never less than one.
func deriveMaxConcurrent() int {
	_, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || rows <= 0 {
		return 4
	}
	n := rows / (ui.MinTileHeight + 2)
	if n < 1 {
		n = 1
	}
	return n
}
