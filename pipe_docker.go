package shellmux

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/docker/docker/api/types/container"
	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

// dockerPTYChild runs the Pipe's child as a TTY-attached `docker exec`
// inside an existing container, using the Engine API directly rather than
// shelling out. Grounded on the teacher's providers/docker Process
// (ContainerExecCreate/ContainerExecAttach), generalized from "run once and
// wait for exit" to "keep the hijacked connection open for the session's
// whole lifetime".
type dockerPTYChild struct {
	cli    *client.Client
	execID string
	stream dockertypes.HijackedResponse

	mu     sync.Mutex
	closed bool
}

// NewDockerPipe implements create_shell's docker-backed case: it execs cmd
// with a TTY inside containerID on the daemon reachable via cli, and wraps
// the result as a Pipe.
func NewDockerPipe(ctx context.Context, cli *client.Client, containerID, cmd string, opts ...PipeOption) (*Pipe, error) {
	child, err := spawnDockerChild(ctx, cli, containerID, cmd)
	if err != nil {
		return nil, err
	}

	return newPipeFromChild(ctx, child, opts...)
}

func spawnDockerChild(ctx context.Context, cli *client.Client, containerID, cmdline string) (pipeChild, error) {
	execCfg := container.ExecOptions{
		Cmd:          []string{"/bin/sh", "-lc", cmdline},
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	}

	created, err := cli.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		return nil, &DockerOpFailedError{Op: "exec create", Err: err}
	}

	stream, err := cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{Tty: true})
	if err != nil {
		return nil, &DockerOpFailedError{Op: "exec attach", Err: err}
	}

	return &dockerPTYChild{cli: cli, execID: created.ID, stream: stream}, nil
}

func (c *dockerPTYChild) Read(p []byte) (int, error)  { return c.stream.Reader.Read(p) }
func (c *dockerPTYChild) Write(p []byte) (int, error) { return c.stream.Conn.Write(p) }

func (c *dockerPTYChild) Signal(_ os.Signal) error {
	// The Engine API has no POSIX-signal primitive for exec sessions;
	// closing the hijacked connection is the closest available analogue,
	// same tradeoff the teacher's docker provider documents.
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("cannot signal: %w", ErrClosed)
	}

	c.stream.Close()

	return nil
}

func (c *dockerPTYChild) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.stream.Close()

	return nil
}
