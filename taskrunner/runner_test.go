package taskrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahdi-A98/shellmux"
)

type fakeTransport struct {
	mu          sync.Mutex
	startErr    error
	onChunk     func([]byte)
	interrupted bool
	killed      bool
	exitCode    int
	waitErr     error
	finished    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{finished: make(chan struct{})}
}

func (f *fakeTransport) Start(ctx context.Context, onChunk func([]byte)) error {
	if f.startErr != nil {
		return f.startErr
	}

	f.mu.Lock()
	f.onChunk = onChunk
	f.mu.Unlock()

	return nil
}

func (f *fakeTransport) Wait() (int, error) {
	<-f.finished

	return f.exitCode, f.waitErr
}

func (f *fakeTransport) Interrupt() error {
	f.mu.Lock()
	f.interrupted = true
	f.mu.Unlock()

	close(f.finished)

	return nil
}

func (f *fakeTransport) Kill() error {
	f.mu.Lock()
	f.killed = true
	f.mu.Unlock()

	return nil
}

func (f *fakeTransport) emit(s string) {
	f.mu.Lock()
	cb := f.onChunk
	f.mu.Unlock()

	cb([]byte(s))
}

func TestRunner_RunCompletesSuccessfully(t *testing.T) {
	tr := newFakeTransport()
	cmd := &shellmux.Command{Cmd: "echo", Args: []string{"hi"}}
	r := New("mycontainer", cmd, tr)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, shellmux.RunnerProcessing, r.Status())

	tr.emit("hello\n")
	close(tr.finished)

	require.Eventually(t, func() bool {
		return r.Status() == shellmux.RunnerDone
	}, time.Second, time.Millisecond)

	out, code, err := r.Result()
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, 0, code)
	assert.NoError(t, err)
}

func TestRunner_RunRetriesLaunchFailures(t *testing.T) {
	tr := newFakeTransport()
	tr.startErr = errors.New("daemon unreachable")
	cmd := &shellmux.Command{Cmd: "echo"}
	r := New("mycontainer", cmd, tr, WithRetryAttempts(2), WithRetryDelay(time.Millisecond))

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, shellmux.RunnerFailed, r.Status())
}

func TestRunner_InterruptStopsRunningTask(t *testing.T) {
	tr := newFakeTransport()
	cmd := &shellmux.Command{Cmd: "sleep", Args: []string{"100"}}
	r := New("mycontainer", cmd, tr, WithForceTimeout(50*time.Millisecond))

	require.NoError(t, r.Run(context.Background()))

	stopped := r.Interrupt()
	assert.True(t, stopped)
	assert.True(t, tr.interrupted)
}

func TestRunner_InterruptAfterDoneIsNoop(t *testing.T) {
	tr := newFakeTransport()
	cmd := &shellmux.Command{Cmd: "echo"}
	r := New("mycontainer", cmd, tr)

	require.NoError(t, r.Run(context.Background()))
	close(tr.finished)

	require.Eventually(t, func() bool {
		return r.Status() == shellmux.RunnerDone
	}, time.Second, time.Millisecond)

	assert.True(t, r.Interrupt())
	assert.False(t, tr.interrupted)
}
