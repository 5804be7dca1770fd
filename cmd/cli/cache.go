// SPDX-License-Identifier: Apache-2.0

// The cache subcommand: inspect and prune the timing cache without
// starting a build run.

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"redland-forge/internal/buildfmt"
	"redland-forge/internal/config"
	"redland-forge/internal/timing"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the build timing cache",
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheClearDemoCmd)
}

// openCache loads the cache for the CLI subcommands, honoring --cache-file
// and the retention settings from the config file.
func openCache(cmd *cobra.Command) (*timing.Cache, error) {
	settings, err := mergedSettings(cmd)
	if err != nil {
		return nil, err
	}
	initLogging(settings, false)
	applyColorMode(settings.Color)

	path := settings.CacheFile
	if path == "" {
		if path, err = timing.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return timing.Load(path,
		timing.WithRetention(settings.CacheRetention),
		timing.WithKeepBuilds(settings.CacheKeep),
		timing.WithDemoPrefixes(settings.DemoPrefixes)), nil
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cached hosts and their average build times",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(cmd)
		if err != nil {
			return err
		}
		path, hostCount, buildCount := cache.Info()
		fmt.Printf("Cache file: %s\n", path)
		fmt.Printf("Hosts: %d, recorded builds: %d\n", hostCount, buildCount)

		for _, host := range cache.Hosts() {
			entry := cache.Entry(host)
			if entry == nil {
				continue
			}
			fmt.Printf("\n%s (%d builds, last %s)\n", host, entry.TotalBuilds,
				time.Unix(entry.LastUpdated, 0).Format("2006-01-02 15:04"))
			avg := entry.AverageTimes
			fmt.Printf("  configure %s  make %s  check %s  install %s  total %s\n",
				buildfmt.Duration(secondsDur(avg.Configure)),
				buildfmt.Duration(secondsDur(avg.Make)),
				buildfmt.Duration(secondsDur(avg.Check)),
				buildfmt.Duration(secondsDur(avg.Install)),
				buildfmt.Duration(secondsDur(avg.Total)))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [HOST...]",
	Short: "Remove cached timings for the given hosts, or all hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(cmd)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			cleared := 0
			for _, host := range cache.Hosts() {
				if ok, clearErr := cache.ClearHost(host); clearErr != nil {
					return clearErr
				} else if ok {
					cleared++
				}
			}
			fmt.Printf("Cleared %d host entries\n", cleared)
			return nil
		}
		hosts, err := config.ParseHostArgs(args)
		if err != nil {
			return &exitError{code: ExitUsage, msg: err.Error()}
		}
		for _, h := range hosts {
			ok, clearErr := cache.ClearHost(h.Key)
			if clearErr != nil {
				return clearErr
			}
			if ok {
				fmt.Printf("Cleared %s\n", h.Key)
			} else {
				fmt.Printf("No cache entry for %s\n", h.Key)
			}
		}
		return nil
	},
}

var cacheClearDemoCmd = &cobra.Command{
	Use:   "clear-demo",
	Short: "Remove cached timings for demo/test hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache(cmd)
		if err != nil {
			return err
		}
		n, clearErr := cache.ClearDemoHosts()
		if clearErr != nil {
			return clearErr
		}
		fmt.Printf("Cleared %d demo host entries\n", n)
		return nil
	},
}

func secondsDur(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
