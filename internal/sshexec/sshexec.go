// SPDX-License-Identifier: Apache-2.0

// Package sshexec provides the SSH transport used by the build executor:
// dialing hosts with key, agent and known_hosts handling, uploading files
// over SFTP and running remote commands with streamed output.
//
// The executor depends on the Transport and Conn interfaces only, so tests
// can substitute an in-memory fake for the network.
package sshexec

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"

	"redland-forge/internal/config"
)

// Transport dials build hosts.
type Transport interface {
	// Dial opens a connection to the host. The context bounds the TCP
	// connect; the handshake is bounded by the dialer's timeout.
	Dial(ctx context.Context, host config.Host) (Conn, error)
}

// Conn is one established connection to a build host.
type Conn interface {
	// MkdirAll creates the remote directory and any missing parents.
	MkdirAll(path string) error

	// Upload writes contents to the remote path with the given mode,
	// replacing any existing file.
	Upload(remotePath string, contents io.Reader, mode os.FileMode) error

	// Run executes the command remotely, sending each combined
	// stdout+stderr line to out as it arrives. It returns the remote exit
	// status once the command finishes. A non-zero status is not an
	// error; err reports transport failures and context cancellation.
	// Run never closes out.
	Run(ctx context.Context, command string, out chan<- string) (int, error)

	// Close tears down the connection.
	Close() error
}

// IsTransient reports whether a dial error is worth a retry: the kind of
// refusal or reset a host answers with while sshd is still coming up.
func IsTransient(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}
