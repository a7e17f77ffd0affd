package shellmux

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mahdi-A98/shellmux/marker"
)

// pipeChild is the minimal surface a Pipe needs from its underlying child
// process, regardless of whether it is a local PTY, a Docker exec stream,
// or (on Windows) a plain os/exec pipe pair. It plays the role the
// teacher's invoke.Process plays for one-shot commands, generalized to a
// long-lived interactive session.
type pipeChild interface {
	// Read pulls up to len(p) bytes already produced by the child. Blocking;
	// the reader goroutine owns calling this.
	Read(p []byte) (int, error)
	// Write sends bytes to the child's stdin.
	Write(p []byte) (int, error)
	// Signal delivers an OS signal (SIGINT for interrupt).
	Signal(sig os.Signal) error
	// Close terminates the child and releases its OS resources.
	Close() error
}

// Pipe is one PTY-wrapped interactive child process forming a stateful
// shell session (spec.md §3). At most one reader goroutine ever reads from
// child; output_buffer is append-only and read_cursor <= len(output_buffer).
type Pipe struct {
	id        string
	child     pipeChild
	onClose   func(id string) // detaches this pipe from its registry

	log *zap.Logger

	mu             sync.Mutex // guards shellType, markerTok, status, outputBuffer, readCursor, lastCommand together
	shellType      marker.ShellType
	markerTok      string
	status         PipeStatus
	outputBuffer   strings.Builder
	readCursor     int
	lastCommand    string

	queue      *chunkQueue
	stopSignal chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

// PipeOption configures Pipe construction.
type PipeOption func(*pipeConfig)

type pipeConfig struct {
	timeout   time.Duration
	shellType marker.ShellType
	logger    *zap.Logger
}

// WithPromptTimeout overrides the default 3s wait for the child's initial prompt (spec.md §4.2).
func WithPromptTimeout(d time.Duration) PipeOption {
	return func(c *pipeConfig) { c.timeout = d }
}

// WithInitialShellType sets the dialect used to detect the first prompt; defaults to Bash.
func WithInitialShellType(s marker.ShellType) PipeOption {
	return func(c *pipeConfig) { c.shellType = s }
}

// WithLogger attaches a *zap.Logger; defaults to zap.NewNop() if omitted.
func WithLogger(l *zap.Logger) PipeOption {
	return func(c *pipeConfig) { c.logger = l }
}

// defaultShellCmd mirrors spec.md §6's create_shell default: "powershell" on
// Windows, else "bash".
func defaultShellCmd() string {
	if DetectLocalOS() == OSWindows {
		return "powershell"
	}

	return "bash"
}

// NewPipe implements create_shell: spawns cmd under a PTY (or, on Windows, a
// plain pipe pair), waits for the initial prompt, starts the reader
// goroutine, and returns a READY Pipe.
func NewPipe(ctx context.Context, cmd string, opts ...PipeOption) (*Pipe, error) {
	cfg := pipeConfig{
		timeout:   3 * time.Second,
		shellType: marker.Bash,
		logger:    zap.NewNop(),
	}

	for _, o := range opts {
		o(&cfg)
	}

	if strings.TrimSpace(cmd) == "" {
		cmd = defaultShellCmd()
	}

	child, err := spawnChild(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn pipe child %q: %w", cmd, err)
	}

	return newPipeFromChild(ctx, child, withResolvedConfig(cfg))
}

// withResolvedConfig re-wraps an already-resolved pipeConfig as a single
// PipeOption, so both NewPipe and NewDockerPipe can share newPipeFromChild.
func withResolvedConfig(cfg pipeConfig) PipeOption {
	return func(c *pipeConfig) { *c = cfg }
}

// newPipeFromChild finishes construction common to every transport: start
// the reader goroutine, wait for the initial prompt, return a READY Pipe.
func newPipeFromChild(ctx context.Context, child pipeChild, opts ...PipeOption) (*Pipe, error) {
	cfg := pipeConfig{
		timeout:   3 * time.Second,
		shellType: marker.Bash,
		logger:    zap.NewNop(),
	}

	for _, o := range opts {
		o(&cfg)
	}

	p := &Pipe{
		id:         uuid.NewString(),
		child:      child,
		log:        cfg.logger.Named("pipe"),
		shellType:  cfg.shellType,
		status:     PipeReady,
		queue:      newChunkQueue(),
		stopSignal: make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	go p.readerLoop()

	if err := p.waitForPrompt(ctx, cfg.shellType, cfg.timeout); err != nil {
		_ = p.Close()

		return nil, fmt.Errorf("pipe %s did not see an initial prompt: %w", p.id, err)
	}

	return p, nil
}

// ID returns the pipe's opaque identifier.
func (p *Pipe) ID() string { return p.id }

// SetOnClose registers a callback invoked exactly once, when Close runs.
// The process-wide pipe Registry uses this to detach a Pipe from itself
// without requiring every caller to remember to do so.
func (p *Pipe) SetOnClose(fn func(id string)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onClose = fn
}

// Status returns the pipe's current lifecycle state (check_pipe_status).
func (p *Pipe) Status() PipeStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status
}

// waitForPrompt blocks until the child's output contains a prompt matching
// shellType's pattern, or ctx/timeout elapses.
func (p *Pipe) waitForPrompt(ctx context.Context, shellType marker.ShellType, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	re := promptRegexp(shellType)

	for {
		p.mu.Lock()
		seen := re.MatchString(p.outputBuffer.String())
		p.mu.Unlock()

		if seen {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no prompt seen within %s", context.DeadlineExceeded, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.readerDone:
			return fmt.Errorf("child exited before showing a prompt")
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Write implements run_command: regenerates the marker, composes the final
// line per the Marker Protocol, records last_command, sends it to the
// child, and marks the pipe PROCESSING. It does not block on completion.
func (p *Pipe) Write(command string, shellType marker.ShellType, appendMarker bool) error {
	p.mu.Lock()
	if p.status == PipeProcessing {
		p.mu.Unlock()

		return fmt.Errorf("pipe %s: %w: a command is already processing", p.id, ErrNotSupported)
	}
	p.mu.Unlock()

	var line string

	if appendMarker {
		tok, err := marker.New()
		if err != nil {
			return err
		}

		redisLine, echoLine, ok := marker.Compose(command, shellType, tok)
		if !ok {
			return &UnknownShellError{ShellType: string(shellType)}
		}

		p.mu.Lock()
		p.markerTok = tok
		p.shellType = shellType
		p.mu.Unlock()

		if redisLine != "" {
			if err := p.sendLine(redisLine); err != nil {
				return err
			}
		}

		line = echoLine
	} else {
		line = command
		p.mu.Lock()
		p.shellType = shellType
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.lastCommand = line
	p.status = PipeProcessing
	p.mu.Unlock()

	return p.sendLine(line)
}

func (p *Pipe) sendLine(line string) error {
	_, err := p.child.Write([]byte(line + "\n"))
	if err != nil {
		return &TransportError{Err: err}
	}

	return nil
}

// Interrupt implements interrupt_pipe_execution: sends SIGINT to the child.
// Non-blocking; does not itself change status (a subsequent read observes
// whatever the child does in response).
func (p *Pipe) Interrupt() error {
	if err := p.child.Signal(os.Interrupt); err != nil {
		return &InterruptFailedError{Target: p.id, Err: err}
	}

	return nil
}

// Close implements close: sets the stop signal, attempts a graceful
// "exit" for the current dialect, sends SIGTERM, and detaches from the
// registry. Safe under repeated invocation.
func (p *Pipe) Close() error {
	var err error

	p.closeOnce.Do(func() {
		close(p.stopSignal)

		p.mu.Lock()
		shellType := p.shellType
		p.mu.Unlock()

		_ = p.sendLine(exitCommand(shellType))
		_ = p.child.Signal(syscall.SIGTERM)

		err = p.child.Close()

		if p.onClose != nil {
			p.onClose(p.id)
		}
	})

	return err
}

func exitCommand(s marker.ShellType) string {
	switch s {
	case marker.Redis:
		return "QUIT"
	case marker.Python, marker.Mongo:
		return "exit()"
	default:
		return "exit"
	}
}
