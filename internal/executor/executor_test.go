// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redland-forge/internal/builderr"
	"redland-forge/internal/config"
	"redland-forge/internal/phase"
	"redland-forge/internal/sshexec"
)

// fakeConn scripts one host's remote session for tests.
type fakeConn struct {
	lines  []string
	status int
	runErr error
	hang   bool // emit nothing, wait for ctx cancellation

	mkdirErr  error
	uploadErr error

	mu       sync.Mutex
	commands []string
	uploads  []string
	closed   bool
}

func (c *fakeConn) MkdirAll(string) error { return c.mkdirErr }

func (c *fakeConn) Upload(remotePath string, contents io.Reader, _ os.FileMode) error {
	if c.uploadErr != nil {
		return c.uploadErr
	}
	if _, err := io.Copy(io.Discard, contents); err != nil {
		return err
	}
	c.mu.Lock()
	c.uploads = append(c.uploads, remotePath)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Run(ctx context.Context, command string, out chan<- string) (int, error) {
	c.mu.Lock()
	c.commands = append(c.commands, command)
	c.mu.Unlock()

	if strings.HasPrefix(command, "rm -rf ") {
		return 0, nil
	}
	if c.hang {
		<-ctx.Done()
		return -1, ctx.Err()
	}
	for _, line := range c.lines {
		select {
		case out <- line:
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
	return c.status, c.runErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// fakeTransport hands out scripted connections and records dial order.
type fakeTransport struct {
	mu        sync.Mutex
	conns     map[string]*fakeConn
	dialErrs  map[string][]error // consumed one per attempt
	dialOrder []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		conns:    make(map[string]*fakeConn),
		dialErrs: make(map[string][]error),
	}
}

func (t *fakeTransport) Dial(_ context.Context, host config.Host) (sshexec.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialOrder = append(t.dialOrder, host.Key)
	if errs := t.dialErrs[host.Key]; len(errs) > 0 {
		err := errs[0]
		t.dialErrs[host.Key] = errs[1:]
		return nil, err
	}
	conn, ok := t.conns[host.Key]
	if !ok {
		conn = &fakeConn{}
		t.conns[host.Key] = conn
	}
	return conn, nil
}

func (t *fakeTransport) dials() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.dialOrder...)
}

func testHosts(keys ...string) []config.Host {
	hosts := make([]config.Host, 0, len(keys))
	for _, k := range keys {
		user, name, _ := strings.Cut(k, "@")
		hosts = append(hosts, config.Host{Key: k, User: user, Hostname: name, Port: 22})
	}
	return hosts
}

func makeTarball(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raptor2-2.0.16.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("tarball contents"), 0o644))
	return path
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(got))
		}
	}
}

func terminalFor(events []Event, host string) (Event, bool) {
	for _, ev := range events {
		if ev.Host == host && ev.Terminal() {
			return ev, true
		}
	}
	return Event{}, false
}

func phasesFor(events []Event, host string) []phase.Phase {
	var out []phase.Phase
	for _, ev := range events {
		if ev.Host == host && ev.Kind == EventPhase {
			out = append(out, ev.Phase)
		}
	}
	return out
}

func fastOpts() Options {
	return Options{
		MaxConcurrent:  4,
		ConnectTimeout: time.Second,
		ConnectRetries: 1,
		ConnectBackoff: time.Millisecond,
		BuildTimeout:   5 * time.Second,
		IdleTimeout:    5 * time.Second,
		CleanupGrace:   time.Second,
	}
}

func TestSuccessfulBuildEmitsPhasesAndTerminal(t *testing.T) {
	transport := newFakeTransport()
	transport.conns["alice@a"] = &fakeConn{
		lines: []string{
			"Extracting tarball...",
			"checking for gcc... gcc",
			"make[1]: Entering directory '/tmp/x'",
			"PASS: check-1",
			"make install-am",
			"BUILD OK",
		},
		status: 0,
	}

	exec := New(transport, fastOpts())
	exec.Start(testHosts("alice@a"), makeTarball(t))
	events := collect(t, exec.Events())
	exec.Wait()

	assert.Equal(t, []phase.Phase{
		phase.Connecting, phase.Preparing, phase.Configure,
		phase.Make, phase.Check, phase.Install, phase.Completed,
	}, phasesFor(events, "alice@a"))

	term, ok := terminalFor(events, "alice@a")
	require.True(t, ok)
	assert.Equal(t, phase.Completed, term.Phase)
	assert.Equal(t, 0, term.ExitCode)
	assert.Nil(t, term.Err)

	// Sentinel lines still stream as output even though their phase is
	// attributed from the exit status.
	var lines []string
	for _, ev := range events {
		if ev.Kind == EventLine {
			lines = append(lines, ev.Line)
		}
	}
	assert.Contains(t, lines, "BUILD OK")
}

func TestFailedBuildCarriesStatusAndLastLine(t *testing.T) {
	transport := newFakeTransport()
	transport.conns["alice@a"] = &fakeConn{
		lines: []string{
			"./configure --prefix=/usr/local",
			"configure: error: no acceptable C compiler found",
			"",
			"BUILD FAILED",
		},
		status: 2,
	}

	exec := New(transport, fastOpts())
	exec.Start(testHosts("alice@a"), makeTarball(t))
	events := collect(t, exec.Events())

	term, ok := terminalFor(events, "alice@a")
	require.True(t, ok)
	assert.Equal(t, phase.Failed, term.Phase)
	assert.Equal(t, 2, term.ExitCode)
	require.NotNil(t, term.Err)
	assert.Equal(t, builderr.KindExecute, term.Err.Kind)
	assert.Contains(t, term.Err.Error(), "build failed with exit status 2")
	assert.Contains(t, term.Err.Error(), "BUILD FAILED")
}

func TestSequentialAdmissionOrder(t *testing.T) {
	transport := newFakeTransport()
	keys := []string{"u@h1", "u@h2", "u@h3"}
	for _, k := range keys {
		transport.conns[k] = &fakeConn{lines: []string{"BUILD OK"}, status: 0}
	}

	opts := fastOpts()
	opts.MaxConcurrent = 1
	exec := New(transport, opts)
	exec.Start(testHosts(keys...), makeTarball(t))
	events := collect(t, exec.Events())

	// With a single slot hosts are admitted strictly in the order given.
	assert.Equal(t, keys, transport.dials())

	var terminalOrder []string
	for _, ev := range events {
		if ev.Terminal() {
			terminalOrder = append(terminalOrder, ev.Host)
		}
	}
	assert.Equal(t, keys, terminalOrder)
}

func TestConnectRetriesTransientFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.dialErrs["u@h1"] = []error{errors.New("dial tcp 10.0.0.1:22: connection refused")}
	transport.conns["u@h1"] = &fakeConn{status: 0}

	exec := New(transport, fastOpts())
	exec.Start(testHosts("u@h1"), makeTarball(t))
	events := collect(t, exec.Events())

	assert.Len(t, transport.dials(), 2)
	term, ok := terminalFor(events, "u@h1")
	require.True(t, ok)
	assert.Equal(t, phase.Completed, term.Phase)
}

func TestConnectGivesUpOnPermanentFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.dialErrs["u@h1"] = []error{
		errors.New("ssh: handshake failed: no supported methods remain"),
		errors.New("ssh: handshake failed: no supported methods remain"),
		errors.New("ssh: handshake failed: no supported methods remain"),
	}

	opts := fastOpts()
	opts.ConnectRetries = 2
	exec := New(transport, opts)
	exec.Start(testHosts("u@h1"), makeTarball(t))
	events := collect(t, exec.Events())

	// Non-transient errors are not retried.
	assert.Len(t, transport.dials(), 1)
	term, ok := terminalFor(events, "u@h1")
	require.True(t, ok)
	assert.Equal(t, phase.Failed, term.Phase)
	require.NotNil(t, term.Err)
	assert.Equal(t, builderr.KindConnect, term.Err.Kind)
}

func TestUploadFailureIsTransferError(t *testing.T) {
	transport := newFakeTransport()
	transport.conns["u@h1"] = &fakeConn{uploadErr: errors.New("sftp: permission denied")}

	exec := New(transport, fastOpts())
	exec.Start(testHosts("u@h1"), makeTarball(t))
	events := collect(t, exec.Events())

	term, ok := terminalFor(events, "u@h1")
	require.True(t, ok)
	require.NotNil(t, term.Err)
	assert.Equal(t, builderr.KindTransfer, term.Err.Kind)
}

func TestStalledBuild(t *testing.T) {
	transport := newFakeTransport()
	transport.conns["u@h1"] = &fakeConn{hang: true}

	opts := fastOpts()
	opts.IdleTimeout = 50 * time.Millisecond
	exec := New(transport, opts)
	exec.Start(testHosts("u@h1"), makeTarball(t))
	events := collect(t, exec.Events())

	term, ok := terminalFor(events, "u@h1")
	require.True(t, ok)
	require.NotNil(t, term.Err)
	assert.Equal(t, builderr.KindStalled, term.Err.Kind)
	assert.Contains(t, term.Err.Error(), "no output for")
}

func TestBuildTimeout(t *testing.T) {
	transport := newFakeTransport()
	transport.conns["u@h1"] = &fakeConn{hang: true}

	opts := fastOpts()
	opts.BuildTimeout = 50 * time.Millisecond
	opts.IdleTimeout = 5 * time.Second
	exec := New(transport, opts)
	exec.Start(testHosts("u@h1"), makeTarball(t))
	events := collect(t, exec.Events())

	term, ok := terminalFor(events, "u@h1")
	require.True(t, ok)
	require.NotNil(t, term.Err)
	assert.Equal(t, builderr.KindExecute, term.Err.Kind)
	assert.Contains(t, term.Err.Error(), "time limit")
}

func TestCancelAllFailsRunningAndQueuedHosts(t *testing.T) {
	transport := newFakeTransport()
	transport.conns["u@h1"] = &fakeConn{hang: true}
	transport.conns["u@h2"] = &fakeConn{status: 0}

	opts := fastOpts()
	opts.MaxConcurrent = 1
	exec := New(transport, opts)
	exec.Start(testHosts("u@h1", "u@h2"), makeTarball(t))

	// Wait for the first host to be admitted, then cancel the run.
	require.Eventually(t, func() bool {
		return len(transport.dials()) == 1
	}, 5*time.Second, 5*time.Millisecond)
	exec.CancelAll()

	events := collect(t, exec.Events())
	exec.Wait()

	for _, host := range []string{"u@h1", "u@h2"} {
		term, ok := terminalFor(events, host)
		require.True(t, ok, "missing terminal event for %s", host)
		assert.Equal(t, phase.Failed, term.Phase)
		require.NotNil(t, term.Err)
		assert.Equal(t, builderr.KindCancelled, term.Err.Kind)
	}
	// The queued host was never dialed.
	assert.Len(t, transport.dials(), 1)
}

func TestWorkdirCleanedUpAndConnectionClosed(t *testing.T) {
	transport := newFakeTransport()
	conn := &fakeConn{lines: []string{"BUILD OK"}, status: 0}
	transport.conns["u@h1"] = conn

	exec := New(transport, fastOpts())
	exec.Start(testHosts("u@h1"), makeTarball(t))
	collect(t, exec.Events())
	exec.Wait()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.commands, 2)
	assert.Contains(t, conn.commands[0], "./build-agent.sh")
	assert.True(t, strings.HasPrefix(conn.commands[1], "rm -rf '/tmp/build-"))
	assert.True(t, conn.closed)

	// Tarball and agent both land in the per-build workdir.
	require.Len(t, conn.uploads, 2)
	assert.Contains(t, conn.uploads[0], "/tmp/build-")
	assert.Contains(t, conn.uploads[0], "raptor2-2.0.16.tar.gz")
	assert.Contains(t, conn.uploads[1], "build-agent.sh")
}
