package shellmux

import (
	"bufio"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahdi-A98/shellmux/marker"
)

// fakeChild is an in-memory pipeChild standing in for a real PTY: the test
// plays the role of the child process, reading whatever Write sends and
// writing back whatever output it wants the Pipe to observe. Every line
// the Pipe writes (including the "exit" Close sends) is continuously
// drained into lines so Write never blocks, the way a real PTY's kernel
// buffer would absorb it.
type fakeChild struct {
	outR *io.PipeReader
	outW *io.PipeWriter
	inR  *io.PipeReader
	inW  *io.PipeWriter

	lines chan string

	signals []os.Signal
}

func newFakeChild() *fakeChild {
	outR, outW := io.Pipe()
	inR, inW := io.Pipe()

	f := &fakeChild{outR: outR, outW: outW, inR: inR, inW: inW, lines: make(chan string, 64)}

	go func() {
		scanner := bufio.NewScanner(f.inR)
		for scanner.Scan() {
			f.lines <- scanner.Text()
		}
	}()

	return f
}

func (f *fakeChild) Read(p []byte) (int, error)  { return f.outR.Read(p) }
func (f *fakeChild) Write(p []byte) (int, error) { return f.inW.Write(p) }

func (f *fakeChild) Signal(sig os.Signal) error {
	f.signals = append(f.signals, sig)

	return nil
}

func (f *fakeChild) Close() error {
	_ = f.outW.Close()
	_ = f.inW.Close()

	return nil
}

// readLine returns the next full line the Pipe wrote.
func (f *fakeChild) readLine(t *testing.T) string {
	t.Helper()

	select {
	case line := <-f.lines:
		return line + "\n"
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipe to write a line")

		return ""
	}
}

func newTestPipe(t *testing.T, child *fakeChild) *Pipe {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_, _ = child.outW.Write([]byte("$ "))
	}()

	p, err := newPipeFromChild(ctx, child, WithPromptTimeout(time.Second))
	require.NoError(t, err)

	return p
}

func TestPipe_WriteAndReadOutput(t *testing.T) {
	child := newFakeChild()
	p := newTestPipe(t, child)

	defer p.Close()

	go func() {
		_ = p.Write("echo hello", marker.Bash, true)
	}()

	line := child.readLine(t)

	tok := marker.Pattern.FindString(line)
	require.NotEmpty(t, tok, "composed line should contain a marker token: %q", line)

	go func() {
		_, _ = child.outW.Write([]byte("hello\n" + tok + "\n"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out, err := p.ReadOutput(ctx, time.Second)
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, tok)
	assert.Equal(t, PipeCompleted, p.Status())
}

func TestPipe_ReadOutputTimesOut(t *testing.T) {
	child := newFakeChild()
	p := newTestPipe(t, child)

	defer p.Close()

	go func() {
		_ = p.Write("sleep 100", marker.Bash, true)
	}()

	child.readLine(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := p.ReadOutput(ctx, 50*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, PipeTimedOut, p.Status())
}

func TestPipe_Interrupt(t *testing.T) {
	child := newFakeChild()
	p := newTestPipe(t, child)

	defer p.Close()

	require.NoError(t, p.Interrupt())
	require.Len(t, child.signals, 1)
	assert.Equal(t, os.Interrupt, child.signals[0])
}

func TestPipe_StreamOutputEmitsPartialThenCompletion(t *testing.T) {
	child := newFakeChild()
	p := newTestPipe(t, child)

	defer p.Close()

	go func() {
		_ = p.Write("echo hi", marker.Bash, true)
	}()

	line := child.readLine(t)
	tok := marker.Pattern.FindString(line)
	require.NotEmpty(t, tok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events := p.StreamOutput(ctx)

	go func() {
		_, _ = child.outW.Write([]byte("hi\n"))
		time.Sleep(10 * time.Millisecond)
		_, _ = child.outW.Write([]byte(tok + "\n"))
	}()

	var saw []StreamEvent

	for ev := range events {
		saw = append(saw, ev)
	}

	require.NotEmpty(t, saw)
	last := saw[len(saw)-1]
	assert.Equal(t, EventCompletion, last.Type)
	assert.Equal(t, tok, last.CommandMarkerID)
}
