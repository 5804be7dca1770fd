// SPDX-License-Identifier: Apache-2.0

// Package cli wires the command line: flag parsing, settings merging, host
// resolution and the choice between the TUI and the plain line-oriented
// progress mode.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"redland-forge/internal/config"
	"redland-forge/internal/logger"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitBuildFailed = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

var flags struct {
	hostsFile       string
	maxConcurrent   int
	autoExitDelay   int
	noAutoExit      bool
	cacheFile       string
	cacheRetention  int
	cacheKeepBuilds int
	noCache         bool
	noProgress      bool
	colorMode       string
	debug           bool
}

var rootCmd = &cobra.Command{
	Use:   "redland-forge [flags] TARBALL [HOST...]",
	Short: "Run autoconf builds on many hosts in parallel",
	Long: `Uploads a source tarball to each host over SSH, runs the configure/make/
check/install cycle there through a small build agent, and shows live
progress for every host in a terminal dashboard.

Hosts are given as user@hostname entries (comma-separated or repeated) or
via a hosts file. Historical build times are cached per host to estimate
time remaining.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBuild,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&flags.hostsFile, "hosts-file", "f", "", "file with one user@hostname per line (# comments allowed)")
	f.IntVar(&flags.maxConcurrent, "max-concurrent", 0, "maximum simultaneous builds (0 = derive from terminal height)")
	f.IntVar(&flags.autoExitDelay, "auto-exit-delay", 0, "seconds to wait after the last build before exiting (default 300)")
	f.BoolVar(&flags.noAutoExit, "no-auto-exit", false, "stay open until quit manually")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the timing cache for this run")
	f.BoolVar(&flags.noProgress, "no-progress", false, "plain line output instead of the dashboard")

	// Shared with the cache subcommand.
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.cacheFile, "cache-file", "", "timing cache location (default: user config dir)")
	pf.IntVar(&flags.cacheRetention, "cache-retention", 0, "days to keep cached timings (default 30)")
	pf.IntVar(&flags.cacheKeepBuilds, "cache-keep-builds", 0, "recent builds kept per host (default 5)")
	pf.StringVar(&flags.colorMode, "color", "", "color output: auto, always or never")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(cacheCmd)
}

// RunCLI parses arguments and runs the requested command, returning the
// process exit code.
func RunCLI() int {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if asExitError(err, &ee) {
			if ee.msg != "" {
				fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			}
			return ee.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitUsage
	}
	return ExitOK
}

// exitError carries an explicit process exit code out of a RunE.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func asExitError(err error, target **exitError) bool {
	ee, ok := err.(*exitError)
	if ok {
		*target = ee
	}
	return ok
}

// mergedSettings loads the settings file and applies flag overrides on top.
func mergedSettings(cmd *cobra.Command) (config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return settings, err
	}

	changed := cmd.Flags().Changed
	if changed("max-concurrent") {
		settings.MaxConcurrent = flags.maxConcurrent
	}
	if changed("auto-exit-delay") {
		settings.AutoExitDelay = secondsToDuration(flags.autoExitDelay)
	}
	if changed("no-auto-exit") {
		settings.NoAutoExit = flags.noAutoExit
	}
	if changed("cache-file") {
		settings.CacheFile = flags.cacheFile
	}
	if changed("cache-retention") {
		settings.CacheRetention = flags.cacheRetention
	}
	if changed("cache-keep-builds") {
		settings.CacheKeep = flags.cacheKeepBuilds
	}
	if changed("no-cache") {
		settings.NoCache = flags.noCache
	}
	if changed("no-progress") {
		settings.NoProgress = flags.noProgress
	}
	if changed("color") {
		settings.Color = config.ColorMode(flags.colorMode)
	}
	if changed("debug") {
		settings.Debug = flags.debug
	}

	if err := settings.Normalize(); err != nil {
		return settings, err
	}
	return settings, nil
}

// applyColorMode configures global color output. Auto is the library
// default: on only for terminals that are not dumb.
func applyColorMode(mode config.ColorMode) {
	switch mode {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	}
}

func initLogging(settings config.Settings, tui bool) {
	logger.Init(tui, settings.Debug)
}
