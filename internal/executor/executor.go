// SPDX-License-Identifier: Apache-2.0

// Package executor runs builds on remote hosts: a bounded pool admits hosts
// in FIFO order, one worker per admitted host drives the SSH transport and
// the remote build agent, and progress flows to the consumer over a single
// bounded event channel. Workers never touch shared state; the channel is
// the only coupling.
package executor

import (
	"context"
	"sync"
	"time"

	"redland-forge/internal/builderr"
	"redland-forge/internal/config"
	"redland-forge/internal/phase"
	"redland-forge/internal/sshexec"
)

// Options tune the pool and the per-worker protocol. Zero values take the
// defaults from the config package.
type Options struct {
	MaxConcurrent  int
	ConnectTimeout time.Duration
	ConnectRetries int
	ConnectBackoff time.Duration
	BuildTimeout   time.Duration
	IdleTimeout    time.Duration
	CleanupGrace   time.Duration
	EventBuffer    int
	InstallPrefix  string // passed to each worker's phase detector
}

func (o *Options) normalize() {
	if o.MaxConcurrent < 1 {
		o.MaxConcurrent = 1
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = config.DefaultConnectTimeout
	}
	if o.ConnectRetries == 0 {
		o.ConnectRetries = config.DefaultConnectRetries
	}
	if o.ConnectBackoff == 0 {
		o.ConnectBackoff = config.DefaultConnectBackoff
	}
	if o.BuildTimeout == 0 {
		o.BuildTimeout = config.DefaultBuildTimeout
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = config.DefaultIdleTimeout
	}
	if o.CleanupGrace == 0 {
		o.CleanupGrace = config.DefaultCleanupGrace
	}
	if o.EventBuffer == 0 {
		o.EventBuffer = config.DefaultEventChannelSize
	}
}

// Executor owns the worker pool for one run.
type Executor struct {
	transport sshexec.Transport
	opts      Options

	events chan Event
	done   chan struct{}

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once

	wg sync.WaitGroup
}

// New creates an executor over the given transport. Start must be called
// exactly once.
func New(transport sshexec.Transport, opts Options) *Executor {
	opts.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		transport: transport,
		opts:      opts,
		events:    make(chan Event, opts.EventBuffer),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Events returns the event channel. It is closed after the last worker has
// emitted its terminal event; consumers should drain until closed.
func (e *Executor) Events() <-chan Event { return e.events }

// Start admits hosts into the pool in the order given, up to MaxConcurrent
// at a time, and returns immediately. Completion is signalled by the event
// channel closing.
func (e *Executor) Start(hosts []config.Host, tarballPath string) {
	sem := make(chan struct{}, e.opts.MaxConcurrent)

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for _, host := range hosts {
			select {
			case sem <- struct{}{}:
			case <-e.ctx.Done():
				// Never-admitted hosts still need a terminal event so the
				// run can be summarized.
				e.emitTerminal(host.Key, phase.Failed, -1,
					builderr.New(builderr.KindCancelled, host.Key, context.Canceled))
				continue
			}
			e.wg.Add(1)
			go func(h config.Host) {
				defer e.wg.Done()
				defer func() { <-sem }()
				e.runWorker(h, tarballPath)
			}(host)
		}
	}()

	go func() {
		<-dispatched
		e.wg.Wait()
		close(e.events)
		close(e.done)
	}()
}

// CancelAll requests cooperative shutdown of all workers. Idempotent.
func (e *Executor) CancelAll() {
	e.cancelOnce.Do(e.cancel)
}

// Wait blocks until every host has reached a terminal event and the event
// channel has been closed.
func (e *Executor) Wait() { <-e.done }

// emitLine sends an output line event, giving up if the run is cancelled.
func (e *Executor) emitLine(host, line string, now time.Time) {
	select {
	case e.events <- Event{Kind: EventLine, Host: host, Time: now, Line: line}:
	case <-e.ctx.Done():
	}
}

// emitPhase sends a non-terminal phase transition.
func (e *Executor) emitPhase(host string, p phase.Phase) {
	select {
	case e.events <- Event{Kind: EventPhase, Host: host, Time: time.Now(), Phase: p, ExitCode: -1}:
	case <-e.ctx.Done():
	}
}

// emitTerminal sends a terminal event. The send never races a channel
// close: the channel closes only after all workers have returned, and every
// worker emits its terminal event before returning.
func (e *Executor) emitTerminal(host string, p phase.Phase, exitCode int, berr *builderr.BuildError) {
	e.events <- Event{Kind: EventPhase, Host: host, Time: time.Now(), Phase: p, ExitCode: exitCode, Err: berr}
}
