//go:build !windows

package shellmux

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/google/shlex"
)

// ptyChild is the POSIX pipeChild: cmd's stdio is a real pseudo-terminal,
// so interactive programs (bash, psql, redis-cli, python) see a TTY and
// behave the way they do in a real terminal (prompts, line editing,
// readline history).
//
// Its lifecycle mirrors the teacher's providers/local Process: a process
// group is established at spawn so Close can kill the whole tree, not just
// the direct child (providers/local/process_unix.go).
type ptyChild struct {
	cmd *exec.Cmd
	pty *os.File

	mu     sync.Mutex
	closed bool
}

func spawnChild(cmdline string) (pipeChild, error) {
	parts, err := shlex.Split(cmdline)
	if err != nil || len(parts) == 0 {
		return nil, fmt.Errorf("invalid shell command %q", cmdline)
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pty for %q: %w", cmdline, err)
	}

	return &ptyChild{cmd: cmd, pty: f}, nil
}

func (c *ptyChild) Read(p []byte) (int, error)  { return c.pty.Read(p) }
func (c *ptyChild) Write(p []byte) (int, error) { return c.pty.Write(p) }

func (c *ptyChild) Signal(sig os.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.cmd.Process == nil {
		return fmt.Errorf("cannot signal: %w", ErrClosed)
	}

	return c.cmd.Process.Signal(sig)
}

func (c *ptyChild) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}

	c.closed = true
	pid := 0

	if c.cmd.Process != nil {
		pid = c.cmd.Process.Pid
	}

	c.mu.Unlock()

	if pid > 0 {
		// Negative pid targets the whole process group, killing any
		// children the shell itself spawned (e.g. a client it execs into).
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}

	_ = c.pty.Close()

	if c.cmd.Process != nil {
		_, _ = c.cmd.Process.Wait()
	}

	return nil
}
