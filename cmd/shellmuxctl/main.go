// Command shellmuxctl is a small interactive front-end over the Tool
// Surface, standing in for the upstream LLM agent (explicitly out of
// scope per the system this module implements) so a human can exercise
// create_shell/run_command/run_task/etc. directly from a terminal.
//
// Grounded on the chzyer/readline usage in the example pack's CLI runner
// (EskoDijk-ot-ns's cli/runcli package) for the read-eval-print loop shape,
// with go-wordwrap used to keep long tool output readable in a narrow
// terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mitchellh/go-wordwrap"
	"go.uber.org/zap"

	"github.com/Mahdi-A98/shellmux"
	"github.com/Mahdi-A98/shellmux/dockerfacade"
	"github.com/Mahdi-A98/shellmux/tools"
)

const wrapWidth = 100

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}

	defer func() { _ = logger.Sync() }()

	docker, err := dockerfacade.New("", logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to reach docker:", err)
		os.Exit(1)
	}

	defer func() { _ = docker.Close() }()

	pipes := shellmux.NewRegistry[*shellmux.Pipe]("pipe")
	defer func() { _ = pipes.Shutdown(context.Background()) }()

	surface := tools.NewSurface(pipes, docker, logger)

	if err := run(surface); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintln(os.Stderr, "shellmuxctl:", err)
		os.Exit(1)
	}
}

func run(surface *tools.Surface) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "shellmux> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}

	defer func() { _ = rl.Close() }()

	ctx := context.Background()

	for {
		line, err := rl.Readline()

		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}

		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line == "help" || line == "tools" {
			printTools(rl.Stdout(), surface)

			continue
		}

		handleLine(ctx, surface, rl.Stdout(), line)
	}
}

func printTools(w io.Writer, surface *tools.Surface) {
	for _, t := range surface.Tools() {
		fmt.Fprintf(w, "%-28s %s\n", t.Name, wordwrap.WrapString(t.Description, wrapWidth))
	}
}

// handleLine parses "<tool_name> key=value key=value ..." and dispatches it.
func handleLine(ctx context.Context, surface *tools.Surface, w io.Writer, line string) {
	fields := strings.Fields(line)
	name := fields[0]

	args := tools.Args{}

	for _, kv := range fields[1:] {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}

		args[parts[0]] = parts[1]
	}

	result, err := surface.Dispatch(ctx, name, args)
	if err != nil {
		fmt.Fprintln(w, "error:", err)

		return
	}

	fmt.Fprintln(w, wordwrap.WrapString(fmt.Sprint(result), wrapWidth))
}
