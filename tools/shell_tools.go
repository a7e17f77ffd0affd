package tools

import (
	"context"
	"strings"
	"time"

	"github.com/Mahdi-A98/shellmux"
	"github.com/Mahdi-A98/shellmux/marker"
)

// shellTools builds the create_shell / run_command / read_* / check_pipe_status /
// interrupt_pipe_execution / detect_os / close entries (spec.md §6).
func (s *Surface) shellTools() []Tool {
	return []Tool{
		{
			Name:        "create_shell",
			Description: `create_shell(cmd?, timeout?) -> pipe_id. cmd defaults to "powershell" on Windows else "bash".`,
			Handler:     s.createShell,
		},
		{
			Name:        "run_command",
			Description: "run_command(pipe_id, command, shell_type=BASH) -> true. Raises not_found on bad id.",
			Handler:     s.runCommand,
		},
		{
			Name:        "read_output",
			Description: "read_output(pipe_id, timeout=5) -> string. Blocking until marker or timeout. Returns only output not returned by an earlier read; there is no include_past option.",
			Handler:     s.readOutput,
		},
		{
			Name:        "read_output_from_queue",
			Description: `read_output_from_queue(pipe_id, timeout=5) -> string. Drains queue, joins on "\n".`,
			Handler:     s.readOutputFromQueue,
		},
		{
			Name:        "read_output_streaming",
			Description: "read_output_streaming(pipe_id, timeout=5) -> list of {type, content, marker_id}.",
			Handler:     s.readOutputStreaming,
		},
		{
			Name:        "check_pipe_status",
			Description: "check_pipe_status(pipe_id) -> one of {READY, PROCESSING, COMPLETED, FAILED, TIMED_OUT}.",
			Handler:     s.checkPipeStatus,
		},
		{
			Name:        "interrupt_pipe_execution",
			Description: "interrupt_pipe_execution(pipe_id) -> null.",
			Handler:     s.interruptPipe,
		},
		{
			Name:        "detect_os",
			Description: "detect_os(pipe_id) -> string.",
			Handler:     s.detectOS,
		},
		{
			Name:        "close_shell",
			Description: "close_shell(pipe_id) -> null. Terminates the child and removes the pipe from the registry.",
			Handler:     s.closeShell,
		},
	}
}

func (s *Surface) lookupPipe(args Args) (*shellmux.Pipe, error) {
	id, err := argString(args, "pipe_id")
	if err != nil {
		return nil, err
	}

	return s.pipes.Get(id)
}

func (s *Surface) createShell(ctx context.Context, args Args) (any, error) {
	cmd := argStringDefault(args, "cmd", "")
	timeout := argDuration(args, "timeout", 5*time.Second)

	p, err := shellmux.NewPipe(ctx, cmd, shellmux.WithPromptTimeout(timeout), shellmux.WithLogger(s.log))
	if err != nil {
		return nil, err
	}

	p.SetOnClose(func(id string) { s.pipes.Remove(id) })
	s.pipes.Insert(p.ID(), p)

	return p.ID(), nil
}

func parseShellType(raw string) marker.ShellType {
	if raw == "" {
		return marker.Bash
	}

	return marker.ShellType(strings.ToUpper(raw))
}

func (s *Surface) runCommand(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	command, err := argString(args, "command")
	if err != nil {
		return nil, err
	}

	shellType := parseShellType(argStringDefault(args, "shell_type", ""))

	if err := p.Write(command, shellType, true); err != nil {
		return nil, err
	}

	return true, nil
}

func (s *Surface) readOutput(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	timeout := argDuration(args, "timeout", 5*time.Second)

	out, err := p.ReadOutput(ctx, timeout)
	if err != nil {
		// A timeout/eof still returns the partial output the caller wants to see.
		return out, err
	}

	return out, nil
}

func (s *Surface) readOutputFromQueue(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	timeout := argDuration(args, "timeout", 5*time.Second)

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lines []string

	events := p.StreamOutput(readCtx)
	for ev := range events {
		if ev.Content != "" {
			lines = append(lines, ev.Content)
		}

		if ev.Type == shellmux.EventCompletion {
			break
		}
	}

	return strings.Join(lines, "\n"), nil
}

// streamEventDTO is the plain-data shape handed back across the tool
// boundary, per spec.md §9's resolved "yield elements, not a generator"
// open question.
type streamEventDTO struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	MarkerID string `json:"marker_id"`
}

func (s *Surface) readOutputStreaming(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	timeout := argDuration(args, "timeout", 5*time.Second)

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out []streamEventDTO

	for ev := range p.StreamOutput(readCtx) {
		out = append(out, streamEventDTO{
			Type:     string(ev.Type),
			Content:  ev.Content,
			MarkerID: ev.CommandMarkerID,
		})
	}

	return out, nil
}

func (s *Surface) checkPipeStatus(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	return string(p.Status()), nil
}

func (s *Surface) interruptPipe(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	return nil, p.Interrupt()
}

func (s *Surface) detectOS(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	return p.DetectOS(ctx), nil
}

func (s *Surface) closeShell(ctx context.Context, args Args) (any, error) {
	p, err := s.lookupPipe(args)
	if err != nil {
		return nil, err
	}

	return nil, p.Close()
}
