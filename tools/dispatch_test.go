package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahdi-A98/shellmux"
	"github.com/Mahdi-A98/shellmux/dockerfacade"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()

	pipes := shellmux.NewRegistry[*shellmux.Pipe]("pipe")

	facade, err := dockerfacade.New("", nil)
	require.NoError(t, err)

	return NewSurface(pipes, facade, nil)
}

func TestDispatch_UnknownTool(t *testing.T) {
	s := newTestSurface(t)

	_, err := s.Dispatch(context.Background(), "not_a_real_tool", Args{})
	assert.Error(t, err)
}

func TestDispatch_MissingRequiredArgument(t *testing.T) {
	s := newTestSurface(t)

	_, err := s.Dispatch(context.Background(), "run_command", Args{"command": "ls"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required argument")
}

func TestDispatch_PipeNotFound(t *testing.T) {
	s := newTestSurface(t)

	_, err := s.Dispatch(context.Background(), "check_pipe_status", Args{"pipe_id": "does-not-exist"})
	require.Error(t, err)

	var nfErr *shellmux.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestToStringSlice(t *testing.T) {
	out, err := toStringSlice([]any{"sh", "-c", "echo hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sh", "-c", "echo hi"}, out)

	_, err = toStringSlice("not a list")
	assert.Error(t, err)

	_, err = toStringSlice([]any{"ok", 5})
	assert.Error(t, err)
}

func TestSpecFromArgs(t *testing.T) {
	spec := specFromArgs(Args{
		"image": "redis:7",
		"name":  "cache",
		"env":   []any{"FOO=bar"},
	})

	assert.Equal(t, "redis:7", spec.Image)
	assert.Equal(t, "cache", spec.Name)
	assert.Equal(t, []string{"FOO=bar"}, spec.Env)
	assert.True(t, spec.Detach)
}

func TestTools_ListsEveryEntry(t *testing.T) {
	s := newTestSurface(t)

	names := make(map[string]bool)
	for _, tool := range s.Tools() {
		names[tool.Name] = true
	}

	for _, want := range []string{
		"create_shell", "run_command", "read_output", "read_output_from_queue",
		"read_output_streaming", "check_pipe_status", "interrupt_pipe_execution",
		"detect_os", "close_shell", "run_task", "get_task_runner_output",
		"check_task_runner_status", "stop_task_runner", "run_container",
		"list_available_containers", "pull_image", "get_list_of_images",
		"start_container", "stop_container", "create_container",
	} {
		assert.True(t, names[want], "missing tool %q", want)
	}
}
