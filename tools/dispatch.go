// Package tools implements the Tool Surface (spec.md §4's leaf tool list;
// §9's "Polymorphic tool dispatch" redesign): the externally addressable
// operations an upstream LLM agent invokes, expressed as a table of
// {name, description, handler} entries plus a Dispatch routine, replacing
// the original's decorator-wrapped Python callables
// (original_source/devops_agents/docker/tools/{shell_tools,container_tools}.py,
// core/utils.create_structured_tool).
package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Mahdi-A98/shellmux"
	"github.com/Mahdi-A98/shellmux/dockerfacade"
)

// Args is the loosely-typed argument bag a Handler receives, mirroring the
// kwargs a Python structured tool would be called with. Handlers type-assert
// the keys they need.
type Args map[string]any

// Handler executes one tool call and returns its result (a string,
// envelope, or other JSON-marshalable value) or an error.
type Handler func(ctx context.Context, args Args) (any, error)

// Tool is one entry in the dispatch table.
type Tool struct {
	Name        string
	Description string
	Handler     Handler
}

// Surface holds the registries and facade every handler needs, and owns
// the dispatch table built from them.
type Surface struct {
	pipes  *shellmux.Registry[*shellmux.Pipe]
	docker *dockerfacade.Facade
	log    *zap.Logger
	table  map[string]Tool
}

// NewSurface wires a Surface over an existing pipe registry and Docker
// facade, and builds its dispatch table.
func NewSurface(pipes *shellmux.Registry[*shellmux.Pipe], docker *dockerfacade.Facade, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Surface{pipes: pipes, docker: docker, log: logger.Named("tools")}
	s.table = s.buildTable()

	return s
}

// Tools returns every registered tool, for presenting a schema to an agent.
func (s *Surface) Tools() []Tool {
	out := make([]Tool, 0, len(s.table))
	for _, t := range s.table {
		out = append(out, t)
	}

	return out
}

// Dispatch looks up name in the table and invokes its handler.
func (s *Surface) Dispatch(ctx context.Context, name string, args Args) (any, error) {
	tool, ok := s.table[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}

	return tool.Handler(ctx, args)
}

func (s *Surface) buildTable() map[string]Tool {
	tools := append(s.shellTools(), s.containerTools()...)

	table := make(map[string]Tool, len(tools))
	for _, t := range tools {
		table[t.Name] = t
	}

	return table
}

// argString extracts a required string argument.
func argString(args Args, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}

	return s, nil
}

// argStringDefault extracts an optional string argument, falling back to def.
func argStringDefault(args Args, key, def string) string {
	v, ok := args[key]
	if !ok {
		return def
	}

	s, ok := v.(string)
	if !ok {
		return def
	}

	return s
}

// argDuration extracts an optional number-of-seconds argument as a
// time.Duration, falling back to def.
func argDuration(args Args, key string, def time.Duration) time.Duration {
	v, ok := args[key]
	if !ok {
		return def
	}

	switch n := v.(type) {
	case float64:
		return time.Duration(n * float64(time.Second))
	case int:
		return time.Duration(n) * time.Second
	case time.Duration:
		return n
	default:
		return def
	}
}

func argBoolDefault(args Args, key string, def bool) bool {
	v, ok := args[key]
	if !ok {
		return def
	}

	b, ok := v.(bool)
	if !ok {
		return def
	}

	return b
}
