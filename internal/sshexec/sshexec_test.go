// SPDX-License-Identifier: Apache-2.0

package sshexec

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"econnrefused", syscall.ECONNREFUSED, true},
		{"econnreset wrapped", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"net timeout", timeoutErr{}, true},
		{"refused by message", errors.New("dial tcp 10.0.0.1:22: connection refused"), true},
		{"reset by message", errors.New("read: connection reset by peer"), true},
		{"auth failure", errors.New("ssh: handshake failed: no supported methods remain"), false},
		{"unknown host key", errors.New("ssh: host key mismatch"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestNewDialerTimeout(t *testing.T) {
	d := NewDialer(3 * time.Second)
	assert.Equal(t, 3*time.Second, d.Timeout)
}
