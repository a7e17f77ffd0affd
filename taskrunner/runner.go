// Package taskrunner implements the Container Task Runner (spec.md §3, §5):
// a single non-interactive command executed to completion inside an
// existing Docker container, its output accumulated in an append-only
// buffer that is returned whole on each read, with a monotonic status machine and a
// graceful-then-forceful interrupt.
//
// It is grounded on the original Python implementation's DockerTaskRunner
// (original_source/devops_agents/docker/utils/manager.py), generalized
// from a threading.Thread into a goroutine and from a module-level
// RUNNER_REGISTRY dict into shellmux.Registry[*Runner].
package taskrunner

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mahdi-A98/shellmux"
)

// Transport is the pluggable way a Runner actually executes its command:
// either the Docker Engine API (SDK transport) or a spawned `docker exec`
// subprocess (spec.md §5, "either transport"). It plays the role the
// teacher's invoke.Process plays for one-shot commands.
type Transport interface {
	// Start launches the command and returns immediately; output is
	// delivered to onChunk as it arrives, from a transport-owned goroutine.
	Start(ctx context.Context, onChunk func([]byte)) error
	// Wait blocks until the command exits and returns its exit code.
	Wait() (exitCode int, err error)
	// Interrupt sends SIGINT (or its closest transport-specific analogue).
	Interrupt() error
	// Kill forcibly terminates the command.
	Kill() error
}

// RunOption configures a Runner.
type RunOption func(*runConfig)

type runConfig struct {
	forceTimeout  time.Duration
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

// WithForceTimeout overrides how long Interrupt waits after SIGINT before
// escalating to SIGKILL (default 3s, matching the original's force_timeout).
func WithForceTimeout(d time.Duration) RunOption {
	return func(c *runConfig) { c.forceTimeout = d }
}

// WithRetryAttempts retries only the launch step (Transport.Start), not a
// command that started and then failed mid-stream — a launch failure (the
// container not existing yet, a transient daemon hiccup) is the only
// failure mode a retry can meaningfully paper over.
func WithRetryAttempts(n int) RunOption {
	return func(c *runConfig) { c.retryAttempts = n }
}

// WithRetryDelay sets the pause between launch retries.
func WithRetryDelay(d time.Duration) RunOption {
	return func(c *runConfig) { c.retryDelay = d }
}

// WithLogger attaches a *zap.Logger.
func WithLogger(l *zap.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// Runner is one in-flight or completed task execution.
type Runner struct {
	id            string
	containerName string
	command       *shellmux.Command
	transport     Transport
	forceTimeout  time.Duration
	retryAttempts int
	retryDelay    time.Duration
	log           *zap.Logger

	mu         sync.Mutex
	status     shellmux.RunnerStatus
	buf        bytes.Buffer
	exitCode   int
	err        error
	stopFlag   bool
	done       chan struct{}
	onClose    func(id string)
}

// New creates a Runner bound to transport, in NOT_STARTED status. Run
// must be called to actually launch the command.
func New(containerName string, command *shellmux.Command, transport Transport, opts ...RunOption) *Runner {
	cfg := runConfig{
		forceTimeout:  3 * time.Second,
		retryAttempts: 1,
		retryDelay:    200 * time.Millisecond,
		logger:        zap.NewNop(),
	}

	for _, o := range opts {
		o(&cfg)
	}

	return &Runner{
		id:            uuid.NewString(),
		containerName: containerName,
		command:       command,
		transport:     transport,
		forceTimeout:  cfg.forceTimeout,
		retryAttempts: cfg.retryAttempts,
		retryDelay:    cfg.retryDelay,
		log:           cfg.logger.Named("taskrunner"),
		status:        shellmux.RunnerNotStarted,
		done:          make(chan struct{}),
	}
}

// ID returns the runner's opaque identifier.
func (r *Runner) ID() string { return r.id }

// SetOnClose registers the registry-detach callback; see shellmux.Registry.
func (r *Runner) SetOnClose(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onClose = fn
}

// Status implements check_task_status.
func (r *Runner) Status() shellmux.RunnerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// Output implements get_task_output: the accumulated output so far,
// regardless of whether the task has finished.
func (r *Runner) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.buf.String()
}

// Result returns (output, exit code, error), valid once Status is DONE or FAILED.
func (r *Runner) Result() (output string, exitCode int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.buf.String(), r.exitCode, r.err
}

// Run implements run_task: launches the command (retrying only the launch
// step per WithRetryAttempts) and returns immediately; the command
// continues in a background goroutine. Status moves NOT_STARTED ->
// PROCESSING synchronously, so a caller that immediately calls
// check_task_status never observes NOT_STARTED again after Run returns
// without error.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.status != shellmux.RunnerNotStarted {
		r.mu.Unlock()

		return fmt.Errorf("runner %s already started", r.id)
	}
	r.mu.Unlock()

	var startErr error

	for attempt := 0; attempt < maxInt(r.retryAttempts, 1); attempt++ {
		startErr = r.transport.Start(ctx, r.appendChunk)
		if startErr == nil {
			break
		}

		r.log.Warn("task launch failed, retrying",
			zap.Int("attempt", attempt+1), zap.Error(startErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retryDelay):
		}
	}

	if startErr != nil {
		r.mu.Lock()
		r.status = shellmux.RunnerFailed
		r.err = startErr
		r.mu.Unlock()
		close(r.done)

		return startErr
	}

	r.mu.Lock()
	r.status = shellmux.RunnerProcessing
	r.mu.Unlock()

	go r.awaitCompletion()

	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}

func (r *Runner) appendChunk(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf.Write(chunk)
}

func (r *Runner) awaitCompletion() {
	exitCode, err := r.transport.Wait()

	r.mu.Lock()
	r.exitCode = exitCode

	if err != nil {
		r.status = shellmux.RunnerFailed
		r.err = err
	} else {
		r.status = shellmux.RunnerDone
	}

	r.mu.Unlock()

	close(r.done)
}

// Interrupt implements stop_task: SIGINT, then poll every 100ms for up to
// forceTimeout, then SIGKILL if still running (spec.md §5, mirroring the
// original's interrupt()). Idempotent: a second call after the task has
// already finished is a no-op returning true.
func (r *Runner) Interrupt() (stopped bool) {
	r.mu.Lock()
	if r.status == shellmux.RunnerDone || r.status == shellmux.RunnerFailed {
		r.mu.Unlock()

		return true
	}

	r.stopFlag = true
	r.mu.Unlock()

	if err := r.transport.Interrupt(); err != nil {
		r.log.Warn("SIGINT failed, escalating to kill", zap.Error(err))

		_ = r.transport.Kill()

		return false
	}

	deadline := time.Now().Add(r.forceTimeout)

	for time.Now().Before(deadline) {
		select {
		case <-r.done:
			return true
		case <-time.After(100 * time.Millisecond):
		}
	}

	select {
	case <-r.done:
		return true
	default:
		_ = r.transport.Kill()

		return false
	}
}

// Close releases the runner's resources, interrupting the task if it is
// still running, and invokes the registry-detach callback. Implements
// io.Closer so Runner can live in a shellmux.Registry[*Runner].
func (r *Runner) Close() error {
	r.Interrupt()

	r.mu.Lock()
	onClose := r.onClose
	r.mu.Unlock()

	if onClose != nil {
		onClose(r.id)
	}

	return nil
}
