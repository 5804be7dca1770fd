// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	var s Settings
	require.NoError(t, s.Normalize())

	assert.Equal(t, DefaultAutoExitDelay, s.AutoExitDelay)
	assert.Equal(t, DefaultConnectTimeout, s.ConnectTimeout)
	assert.Equal(t, DefaultBuildTimeout, s.BuildTimeout)
	assert.Equal(t, DefaultIdleTimeout, s.IdleTimeout)
	assert.Equal(t, DefaultCacheRetention, s.CacheRetention)
	assert.Equal(t, DefaultCacheKeepBuilds, s.CacheKeep)
	assert.Equal(t, DefaultOutputBufferCap, s.OutputBufferCap)
	assert.Equal(t, DefaultMinimizeTimeout, s.MinimizeTimeout)
	assert.Equal(t, ColorAuto, s.Color)
	assert.Equal(t, []string{"test-", "demo-"}, s.DemoPrefixes)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	s := Settings{
		MaxConcurrent:  8,
		AutoExitDelay:  10 * time.Second,
		Color:          ColorNever,
		CacheRetention: 7,
	}
	require.NoError(t, s.Normalize())

	assert.Equal(t, 8, s.MaxConcurrent)
	assert.Equal(t, 10*time.Second, s.AutoExitDelay)
	assert.Equal(t, ColorNever, s.Color)
	assert.Equal(t, 7, s.CacheRetention)
}

func TestNormalizeRejectsBadValues(t *testing.T) {
	s := Settings{Color: "sometimes"}
	assert.Error(t, s.Normalize())

	s = Settings{MaxConcurrent: -1}
	assert.Error(t, s.Normalize())
}

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ResolvePath("~/keys/id_ed25519")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "keys", "id_ed25519"), got)

	got, err = ResolvePath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = ResolvePath("relative/path")
	require.NoError(t, err)
	assert.Equal(t, "relative/path", got)
}

func TestParseHostUserAndName(t *testing.T) {
	h, err := ParseHost("alice@build1.example.org")
	require.NoError(t, err)
	assert.Equal(t, "alice@build1.example.org", h.Key)
	assert.Equal(t, "alice", h.User)
	assert.Equal(t, "build1.example.org", h.Hostname)
	assert.Equal(t, 22, h.Port)
}

func TestParseHostBareNameUsesEnvUser(t *testing.T) {
	t.Setenv("USER", "bob")
	h, err := ParseHost("build2.example.org")
	require.NoError(t, err)
	assert.Equal(t, "bob@build2.example.org", h.Key)
	assert.Equal(t, "bob", h.User)
}

func TestParseHostRejectsMalformed(t *testing.T) {
	for _, entry := range []string{"", "  ", "@host", "user@", "a@b@c", "user@ho st"} {
		_, err := ParseHost(entry)
		assert.Error(t, err, "entry %q", entry)
	}
}

func TestParseHostArgsSplitsAndDedupes(t *testing.T) {
	hosts, err := ParseHostArgs([]string{"alice@a.example,bob@b.example", "alice@a.example", " , "})
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "alice@a.example", hosts[0].Key)
	assert.Equal(t, "bob@b.example", hosts[1].Key)
}

func TestParseHostArgsPropagatesErrors(t *testing.T) {
	_, err := ParseHostArgs([]string{"alice@a.example", "@bad"})
	assert.Error(t, err)
}

func TestLoadHostsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	content := "# build fleet\nalice@a.example\n\n  bob@b.example  \n# trailing comment\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := LoadHostsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@a.example", "bob@b.example"}, entries)
}

func TestLoadHostsFileMissing(t *testing.T) {
	_, err := LoadHostsFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
