// SPDX-License-Identifier: Apache-2.0

package buildfmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"zero", 0, "0s"},
		{"negative clamps to zero", -5 * time.Second, "0s"},
		{"seconds", 42 * time.Second, "42s"},
		{"rounds subsecond", 41*time.Second + 700*time.Millisecond, "42s"},
		{"minutes", 3*time.Minute + 12*time.Second, "3m12s"},
		{"minutes pad seconds", 3*time.Minute + 2*time.Second, "3m02s"},
		{"hours", time.Hour + 4*time.Minute, "1h04m"},
		{"hours drop seconds", 2*time.Hour + 30*time.Minute + 59*time.Second, "2h30m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Duration(tt.in))
		})
	}
}

func TestApproxDuration(t *testing.T) {
	assert.Equal(t, "~4s", ApproxDuration(4*time.Second))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 8, "hello w…"},
		{"width one", "hello", 1, "…"},
		{"width zero", "hello", 0, ""},
		{"wide runes", "日本語テスト", 7, "日本語…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.width))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean passes through", "checking for gcc... yes", "checking for gcc... yes"},
		{"tab survives", "a\tb", "a\tb"},
		{"escape replaced", "red\x1b[31mtext", "red�[31mtext"},
		{"carriage return replaced", "progress\r", "progress�"},
		{"bell replaced", "ding\a", "ding�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "66.7%", Percent(2.0/3.0))
	assert.Equal(t, "100.0%", Percent(1))
	assert.Equal(t, "0.0%", Percent(0))
}
