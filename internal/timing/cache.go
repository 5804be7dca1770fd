// SPDX-License-Identifier: Apache-2.0

// Package timing persists historical per-host build durations across runs
// and derives progress estimates for in-flight builds from them.
package timing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"redland-forge/internal/logger"
	"redland-forge/internal/phase"
)

// Version is the cache file schema version. Files with any other version are
// treated as empty and rewritten on the next save.
const Version = "1.0"

const (
	DefaultRetentionDays = 30
	DefaultKeepBuilds    = 5
	demoRetention        = time.Hour
)

// DefaultDemoPrefixes marks throwaway hosts that get the short TTL.
var DefaultDemoPrefixes = []string{"test-", "demo-"}

// Averages holds rolling per-phase averages in seconds.
type Averages struct {
	Configure float64 `json:"configure"`
	Make      float64 `json:"make"`
	Check     float64 `json:"check"`
	Install   float64 `json:"install"`
	Total     float64 `json:"total"`
}

// Record is one completed build's timing sample.
type Record struct {
	Timestamp     int64   `json:"timestamp"`
	ConfigureTime float64 `json:"configure_time"`
	MakeTime      float64 `json:"make_time"`
	CheckTime     float64 `json:"check_time"`
	InstallTime   float64 `json:"install_time"`
	TotalTime     float64 `json:"total_time"`
	Success       bool    `json:"success"`
}

// Entry is the cached history for one host key.
type Entry struct {
	LastUpdated  int64    `json:"last_updated"`
	TotalBuilds  int      `json:"total_builds"`
	AverageTimes Averages `json:"average_times"`
	RecentBuilds []Record `json:"recent_builds"`
}

type fileFormat struct {
	Version            string            `json:"version"`
	CacheRetentionDays int               `json:"cache_retention_days"`
	Hosts              map[string]*Entry `json:"hosts"`
}

// Sample carries the per-phase durations of one finished build into Record.
type Sample struct {
	Configure time.Duration
	Make      time.Duration
	Check     time.Duration
	Install   time.Duration
	Total     time.Duration
	Success   bool
}

// Cache is the persistent timing store. It is owned by the controller
// goroutine; methods are not safe for concurrent use.
type Cache struct {
	path          string
	retentionDays int
	keepBuilds    int
	demoPrefixes  []string
	hosts         map[string]*Entry
	now           func() time.Time
}

// Option tweaks cache construction.
type Option func(*Cache)

// WithRetention overrides the time-based retention in days.
func WithRetention(days int) Option {
	return func(c *Cache) { c.retentionDays = days }
}

// WithKeepBuilds overrides the per-host recent record cap.
func WithKeepBuilds(n int) Option {
	return func(c *Cache) { c.keepBuilds = n }
}

// WithDemoPrefixes overrides the demo-host prefix set.
func WithDemoPrefixes(prefixes []string) Option {
	return func(c *Cache) { c.demoPrefixes = prefixes }
}

// withClock is used by tests to pin time.
func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// DefaultPath returns the cache location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "redland-forge", "timing-cache.json"), nil
}

// Load reads the cache file at path, starting fresh (with a warning, never
// an error) on missing files, parse failures or unknown versions. Cleanup
// runs immediately after load.
func Load(path string, opts ...Option) *Cache {
	c := &Cache{
		path:          path,
		retentionDays: DefaultRetentionDays,
		keepBuilds:    DefaultKeepBuilds,
		demoPrefixes:  DefaultDemoPrefixes,
		hosts:         make(map[string]*Entry),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Failed to read timing cache %s: %v. Starting fresh.", path, err)
		}
		return c
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		logger.Warnf("Failed to parse timing cache %s: %v. Starting fresh.", path, err)
		return c
	}
	if ff.Version != Version {
		logger.Warnf("Timing cache %s has unknown version %q. Starting fresh.", path, ff.Version)
		return c
	}
	if ff.Hosts != nil {
		c.hosts = ff.Hosts
	}
	c.Cleanup()
	return c
}

// Record folds one finished build into the host's entry: averages update
// incrementally, the recent ring is capped at keepBuilds, and the cache is
// saved atomically.
func (c *Cache) Record(host string, s Sample) error {
	entry, ok := c.hosts[host]
	if !ok {
		entry = &Entry{}
		c.hosts[host] = entry
	}

	now := c.now()
	entry.LastUpdated = now.Unix()
	entry.TotalBuilds++
	n := float64(entry.TotalBuilds)

	roll := func(avg, sample float64) float64 {
		return avg*(n-1)/n + sample/n
	}
	entry.AverageTimes.Configure = roll(entry.AverageTimes.Configure, s.Configure.Seconds())
	entry.AverageTimes.Make = roll(entry.AverageTimes.Make, s.Make.Seconds())
	entry.AverageTimes.Check = roll(entry.AverageTimes.Check, s.Check.Seconds())
	entry.AverageTimes.Install = roll(entry.AverageTimes.Install, s.Install.Seconds())
	entry.AverageTimes.Total = roll(entry.AverageTimes.Total, s.Total.Seconds())

	entry.RecentBuilds = append(entry.RecentBuilds, Record{
		Timestamp:     now.Unix(),
		ConfigureTime: s.Configure.Seconds(),
		MakeTime:      s.Make.Seconds(),
		CheckTime:     s.Check.Seconds(),
		InstallTime:   s.Install.Seconds(),
		TotalTime:     s.Total.Seconds(),
		Success:       s.Success,
	})
	if len(entry.RecentBuilds) > c.keepBuilds {
		entry.RecentBuilds = entry.RecentBuilds[len(entry.RecentBuilds)-c.keepBuilds:]
	}

	logger.Debugf("Recorded timing for %s: configure=%.1fs make=%.1fs check=%.1fs install=%.1fs total=%.1fs success=%v",
		host, s.Configure.Seconds(), s.Make.Seconds(), s.Check.Seconds(), s.Install.Seconds(), s.Total.Seconds(), s.Success)

	return c.Save()
}

// Estimate returns the remaining-time estimate and overall progress fraction
// for a host currently in phase current with elapsed time in that phase.
// The bool result is false when no history exists for the host or the
// averages cannot support an estimate.
func (c *Cache) Estimate(host string, current phase.Phase, elapsedInPhase time.Duration) (time.Duration, float64, bool) {
	entry, ok := c.hosts[host]
	if !ok || entry.TotalBuilds == 0 {
		return 0, 0, false
	}
	avg := entry.AverageTimes
	phaseAvg := map[phase.Phase]float64{
		phase.Configure: avg.Configure,
		phase.Make:      avg.Make,
		phase.Check:     avg.Check,
		phase.Install:   avg.Install,
	}

	if current == phase.Completed {
		return 0, 1, true
	}
	if !current.Running() {
		// Not yet in a remote build phase: the whole average total remains.
		if avg.Total <= 0 {
			return 0, 0, false
		}
		return time.Duration(avg.Total * float64(time.Second)), 0, true
	}

	cur := phaseAvg[current]
	if cur <= 0 {
		return 0, 0, false
	}
	remaining := cur * max64(0, 1-elapsedInPhase.Seconds()/cur)
	for p := current + 1; p <= phase.Install; p++ {
		remaining += phaseAvg[p]
	}

	fraction := 0.0
	if avg.Total > 0 {
		fraction = clamp01((avg.Total - remaining) / avg.Total)
	}
	return time.Duration(remaining * float64(time.Second)), fraction, true
}

// Entry returns the cached entry for host, or nil.
func (c *Cache) Entry(host string) *Entry {
	return c.hosts[host]
}

// Hosts returns every host key present in the cache.
func (c *Cache) Hosts() []string {
	keys := make([]string, 0, len(c.hosts))
	for k := range c.hosts {
		keys = append(keys, k)
	}
	return keys
}

// ClearHost drops one host's history. It reports whether anything was
// removed; the file is saved only when it was.
func (c *Cache) ClearHost(host string) (bool, error) {
	if _, ok := c.hosts[host]; !ok {
		return false, nil
	}
	delete(c.hosts, host)
	return true, c.Save()
}

// ClearDemoHosts drops all demo-host entries.
func (c *Cache) ClearDemoHosts() (int, error) {
	removed := 0
	for host := range c.hosts {
		if c.isDemoHost(host) {
			delete(c.hosts, host)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, c.Save()
}

// Cleanup drops entries past retention: retentionDays for regular hosts, one
// hour for demo hosts. It is idempotent.
func (c *Cache) Cleanup() {
	now := c.now()
	cutoff := now.Add(-time.Duration(c.retentionDays) * 24 * time.Hour).Unix()
	demoCutoff := now.Add(-demoRetention).Unix()

	for host, entry := range c.hosts {
		limit := cutoff
		if c.isDemoHost(host) {
			limit = demoCutoff
		}
		if entry.LastUpdated < limit {
			delete(c.hosts, host)
			logger.Debugf("Dropped stale timing entry for %s", host)
		}
	}
}

// Save writes the cache atomically: temp file in the same directory, fsync,
// rename. Cleanup runs first so stale entries never persist.
func (c *Cache) Save() error {
	c.Cleanup()

	ff := fileFormat{
		Version:            Version,
		CacheRetentionDays: c.retentionDays,
		Hosts:              c.hosts,
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal timing cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".timing-cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file %s: %w", c.path, err)
	}
	return nil
}

// Info summarizes the cache for the `cache info` subcommand.
func (c *Cache) Info() (path string, hosts, builds int) {
	for _, entry := range c.hosts {
		builds += entry.TotalBuilds
	}
	return c.path, len(c.hosts), builds
}

func (c *Cache) isDemoHost(host string) bool {
	name := host
	if i := strings.IndexByte(host, '@'); i >= 0 {
		name = host[i+1:]
	}
	for _, p := range c.demoPrefixes {
		if strings.HasPrefix(name, p) || strings.HasPrefix(host, p) {
			return true
		}
	}
	return false
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
