// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"redland-forge/internal/agent"
	"redland-forge/internal/builderr"
	"redland-forge/internal/config"
	"redland-forge/internal/logger"
	"redland-forge/internal/phase"
	"redland-forge/internal/sshexec"
	"redland-forge/internal/util"
)

// runWorker drives one host from connecting to a terminal event. Errors
// never escape: every exit path emits exactly one terminal event.
func (e *Executor) runWorker(host config.Host, tarballPath string) {
	key := host.Key
	det := phase.NewDetector(e.opts.InstallPrefix)

	det.Advance(phase.Connecting)
	e.emitPhase(key, phase.Connecting)

	conn, err := e.dialWithRetry(host)
	if err != nil {
		if e.ctx.Err() != nil {
			e.emitTerminal(key, phase.Failed, -1, builderr.New(builderr.KindCancelled, key, context.Canceled))
			return
		}
		e.emitTerminal(key, phase.Failed, -1, builderr.New(builderr.KindConnect, key, err))
		return
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Debugf("Error closing connection to %s: %v", key, closeErr)
		}
	}()

	det.Advance(phase.Preparing)
	e.emitPhase(key, phase.Preparing)

	workdir := "/tmp/build-" + uuid.NewString()
	remoteTarball := path.Join(workdir, filepath.Base(tarballPath))
	if err := e.prepare(conn, workdir, remoteTarball, tarballPath); err != nil {
		e.cleanupRemote(conn, key, workdir)
		if e.ctx.Err() != nil {
			e.emitTerminal(key, phase.Failed, -1, builderr.New(builderr.KindCancelled, key, context.Canceled))
			return
		}
		e.emitTerminal(key, phase.Failed, -1, builderr.New(builderr.KindTransfer, key, err))
		return
	}
	defer e.cleanupRemote(conn, key, workdir)

	command := "cd " + util.QuoteArgForShell(workdir) +
		" && ./" + agent.ScriptName + " " + util.QuoteArgForShell(remoteTarball)

	runCtx, cancelRun := context.WithTimeout(e.ctx, e.opts.BuildTimeout)
	defer cancelRun()

	lines := make(chan string, 64)
	type runResult struct {
		status int
		err    error
	}
	resCh := make(chan runResult, 1)
	go func() {
		status, runErr := conn.Run(runCtx, command, lines)
		resCh <- runResult{status, runErr}
	}()

	idle := time.NewTimer(e.opts.IdleTimeout)
	defer idle.Stop()

	var lastLine string
	stalled := false
	var res runResult

	handleLine := func(line string) {
		if strings.TrimSpace(line) != "" {
			lastLine = line
		}
		e.emitLine(key, line, time.Now())
		// Terminal phases are attributed from the exit status below so the
		// run ends with exactly one terminal event.
		if p, ok := det.Feed(line); ok && !p.Terminal() {
			e.emitPhase(key, p)
		}
	}

pump:
	for {
		select {
		case line := <-lines:
			handleLine(line)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(e.opts.IdleTimeout)
		case <-idle.C:
			stalled = true
			cancelRun()
		case r := <-resCh:
			res = r
			break pump
		}
	}

	// Lines buffered before the command finished are still pending.
drain:
	for {
		select {
		case line := <-lines:
			handleLine(line)
		default:
			break drain
		}
	}

	switch {
	case e.ctx.Err() != nil:
		e.emitTerminal(key, phase.Failed, -1, builderr.New(builderr.KindCancelled, key, context.Canceled))
	case stalled:
		e.emitTerminal(key, phase.Failed, -1,
			builderr.Newf(builderr.KindStalled, key, "no output for %s", e.opts.IdleTimeout))
	case res.err != nil:
		if errors.Is(res.err, context.DeadlineExceeded) {
			e.emitTerminal(key, phase.Failed, -1,
				builderr.Newf(builderr.KindExecute, key, "build exceeded the %s time limit", e.opts.BuildTimeout))
			return
		}
		e.emitTerminal(key, phase.Failed, -1, builderr.New(builderr.KindExecute, key, res.err))
	case res.status == 0:
		det.Advance(phase.Completed)
		e.emitTerminal(key, phase.Completed, 0, nil)
	default:
		msg := fmt.Sprintf("build failed with exit status %d", res.status)
		if lastLine != "" {
			msg += ": " + strings.TrimSpace(lastLine)
		}
		e.emitTerminal(key, phase.Failed, res.status,
			builderr.Newf(builderr.KindExecute, key, "%s", msg))
	}
}

// dialWithRetry opens the SSH connection, retrying transient failures with
// a fixed backoff.
func (e *Executor) dialWithRetry(host config.Host) (sshexec.Conn, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.ConnectRetries; attempt++ {
		if attempt > 0 {
			logger.Infof("Retrying connection to %s in %s", host.Key, e.opts.ConnectBackoff)
			select {
			case <-time.After(e.opts.ConnectBackoff):
			case <-e.ctx.Done():
				return nil, e.ctx.Err()
			}
		}
		dialCtx, cancel := context.WithTimeout(e.ctx, e.opts.ConnectTimeout)
		conn, err := e.transport.Dial(dialCtx, host)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if !sshexec.IsTransient(err) {
			break
		}
	}
	return nil, lastErr
}

// prepare creates the remote working directory and uploads the tarball and
// the build agent into it.
func (e *Executor) prepare(conn sshexec.Conn, workdir, remoteTarball, tarballPath string) error {
	if err := conn.MkdirAll(workdir); err != nil {
		return err
	}

	f, err := os.Open(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to open tarball %s: %w", tarballPath, err)
	}
	defer f.Close()
	if err := conn.Upload(remoteTarball, f, 0o644); err != nil {
		return err
	}

	return conn.Upload(path.Join(workdir, agent.ScriptName), bytes.NewReader(agent.Script()), 0o755)
}

// cleanupRemote removes the working directory, bounded by the cleanup grace
// period. Best-effort: failures are logged and otherwise ignored.
func (e *Executor) cleanupRemote(conn sshexec.Conn, key, workdir string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.CleanupGrace)
	defer cancel()
	sink := make(chan string, 32)
	if _, err := conn.Run(ctx, "rm -rf "+util.QuoteArgForShell(workdir), sink); err != nil {
		logger.Debugf("Remote cleanup of %s on %s failed: %v", workdir, key, err)
	}
}
