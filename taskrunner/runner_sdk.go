package taskrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// sdkTransport runs the task via the Docker Engine API directly, grounded
// on the teacher's providers/docker Process (ContainerExecCreate /
// ContainerExecAttach / polling ContainerExecInspect), generalized from
// "wait once and report exit code" to the Task Runner's interrupt-aware
// lifecycle.
type sdkTransport struct {
	cli         *client.Client
	containerID string
	argv        []string

	mu       sync.Mutex
	execID   string
	stream   dockertypes.HijackedResponse
	attached bool
}

// NewSDKTransport builds a Transport that execs argv inside containerID
// over cli, the SDK half of spec.md §5's "either transport" choice.
func NewSDKTransport(cli *client.Client, containerID string, argv []string) Transport {
	return &sdkTransport{cli: cli, containerID: containerID, argv: argv}
}

func (t *sdkTransport) Start(ctx context.Context, onChunk func([]byte)) error {
	execCfg := container.ExecOptions{
		Cmd:          t.argv,
		Tty:          true,
		AttachStdout: true,
		AttachStderr: true,
	}

	created, err := t.cli.ContainerExecCreate(ctx, t.containerID, execCfg)
	if err != nil {
		return fmt.Errorf("exec create failed: %w", err)
	}

	stream, err := t.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{Tty: true})
	if err != nil {
		return fmt.Errorf("exec attach failed: %w", err)
	}

	t.mu.Lock()
	t.execID = created.ID
	t.stream = stream
	t.attached = true
	t.mu.Unlock()

	go func() {
		buf := make([]byte, 4096)

		for {
			n, err := stream.Reader.Read(buf)
			if n > 0 {
				onChunk(append([]byte(nil), buf[:n]...))
			}

			if err != nil {
				return
			}
		}
	}()

	return nil
}

func (t *sdkTransport) Wait() (int, error) {
	for {
		t.mu.Lock()
		execID := t.execID
		t.mu.Unlock()

		inspect, err := t.cli.ContainerExecInspect(context.Background(), execID)
		if err != nil {
			return -1, err
		}

		if !inspect.Running {
			return inspect.ExitCode, nil
		}

		time.Sleep(100 * time.Millisecond)
	}
}

// Interrupt writes a Ctrl-C byte (0x03) to the exec's TTY, which the TTY
// delivers as SIGINT to the foreground process. It does not use an Engine
// API kill endpoint. If the write fails, the hijacked stream is closed and
// the write error is returned.
func (t *sdkTransport) Interrupt() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.attached {
		return fmt.Errorf("transport not started")
	}

	if _, err := t.stream.Conn.Write([]byte{0x03}); err != nil { // Ctrl-C over the tty
		t.stream.Close()

		return err
	}

	return nil
}

func (t *sdkTransport) Kill() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.attached {
		t.stream.Close()
	}

	return nil
}
