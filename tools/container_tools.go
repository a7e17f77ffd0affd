package tools

import (
	"context"
	"fmt"

	"github.com/Mahdi-A98/shellmux/dockerfacade"
)

// containerTools builds the Task Runner entries plus container/image CRUD
// (spec.md §4.5, §6), all routed through the shared dockerfacade.Facade.
func (s *Surface) containerTools() []Tool {
	return []Tool{
		{
			Name:        "run_task",
			Description: "run_task(container_name, command) -> runner_id.",
			Handler:     s.runTask,
		},
		{
			Name:        "get_task_runner_output",
			Description: "get_task_runner_output(runner_id) -> string.",
			Handler:     s.getTaskRunnerOutput,
		},
		{
			Name:        "check_task_runner_status",
			Description: "check_task_runner_status(runner_id) -> status.",
			Handler:     s.checkTaskRunnerStatus,
		},
		{
			Name:        "stop_task_runner",
			Description: "stop_task_runner(runner_id) -> human-readable confirmation string.",
			Handler:     s.stopTaskRunner,
		},
		{
			Name:        "run_container",
			Description: "run_container(image, name?, ports?, env?, volumes?, detach=true) -> envelope.",
			Handler:     s.runContainer,
		},
		{
			Name:        "list_available_containers",
			Description: "list_available_containers(all=true) -> envelope.",
			Handler:     s.listAvailableContainers,
		},
		{
			Name:        "pull_image",
			Description: "pull_image(image) -> envelope with tag list.",
			Handler:     s.pullImage,
		},
		{
			Name:        "get_list_of_images",
			Description: "get_list_of_images(repo?, all=true) -> envelope.",
			Handler:     s.getListOfImages,
		},
		{
			Name:        "start_container",
			Description: "start_container(name) -> envelope.",
			Handler:     s.startContainer,
		},
		{
			Name:        "stop_container",
			Description: "stop_container(name) -> envelope.",
			Handler:     s.stopContainer,
		},
		{
			Name:        "create_container",
			Description: "create_container(image, name, ...) -> envelope.",
			Handler:     s.createContainer,
		},
	}
}

func (s *Surface) runTask(ctx context.Context, args Args) (any, error) {
	containerName, err := argString(args, "container_name")
	if err != nil {
		return nil, err
	}

	rawCmd, ok := args["command"]
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", "command")
	}

	command, err := toStringSlice(rawCmd)
	if err != nil {
		return nil, err
	}

	useSDK := argBoolDefault(args, "use_sdk", true)

	return s.docker.RunTask(ctx, containerName, command, useSDK)
}

func toStringSlice(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command must be a list of strings")
			}

			out = append(out, str)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("command must be a list of strings")
	}
}

func (s *Surface) lookupRunner(args Args) (string, error) {
	return argString(args, "runner_id")
}

func (s *Surface) getTaskRunnerOutput(ctx context.Context, args Args) (any, error) {
	id, err := s.lookupRunner(args)
	if err != nil {
		return nil, err
	}

	runner, err := s.docker.Runners().Get(id)
	if err != nil {
		return nil, err
	}

	return runner.Output(), nil
}

func (s *Surface) checkTaskRunnerStatus(ctx context.Context, args Args) (any, error) {
	id, err := s.lookupRunner(args)
	if err != nil {
		return nil, err
	}

	runner, err := s.docker.Runners().Get(id)
	if err != nil {
		return nil, err
	}

	return string(runner.Status()), nil
}

func (s *Surface) stopTaskRunner(ctx context.Context, args Args) (any, error) {
	id, err := s.lookupRunner(args)
	if err != nil {
		return nil, err
	}

	runner, err := s.docker.Runners().Get(id)
	if err != nil {
		return nil, err
	}

	if runner.Interrupt() {
		return fmt.Sprintf("runner %q stopped successfully", id), nil
	}

	return fmt.Sprintf("failed to stop runner %q", id), nil
}

func specFromArgs(args Args) *dockerfacade.ContainerSpec {
	spec := &dockerfacade.ContainerSpec{
		Image:  argStringDefault(args, "image", ""),
		Name:   argStringDefault(args, "name", ""),
		Detach: argBoolDefault(args, "detach", true),
	}

	if rawEnv, ok := args["env"]; ok {
		if envSlice, err := toStringSlice(rawEnv); err == nil {
			spec.Env = envSlice
		}
	}

	if rawVolumes, ok := args["volumes"]; ok {
		if volSlice, err := toStringSlice(rawVolumes); err == nil {
			spec.Volumes = volSlice
		}
	}

	if rawPorts, ok := args["ports"].(map[string]string); ok {
		spec.Ports = rawPorts
	}

	return spec
}

func (s *Surface) runContainer(ctx context.Context, args Args) (any, error) {
	return s.docker.RunContainer(ctx, specFromArgs(args)), nil
}

func (s *Surface) listAvailableContainers(ctx context.Context, args Args) (any, error) {
	all := argBoolDefault(args, "all", true)

	return s.docker.ListAvailableContainers(ctx, all), nil
}

func (s *Surface) pullImage(ctx context.Context, args Args) (any, error) {
	imageRef, err := argString(args, "image")
	if err != nil {
		return nil, err
	}

	return s.docker.PullImage(ctx, imageRef, nil), nil
}

func (s *Surface) getListOfImages(ctx context.Context, args Args) (any, error) {
	repo := argStringDefault(args, "repo", "")
	all := argBoolDefault(args, "all", true)

	return s.docker.GetListOfImages(ctx, repo, all), nil
}

func (s *Surface) startContainer(ctx context.Context, args Args) (any, error) {
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}

	return s.docker.StartContainer(ctx, name), nil
}

func (s *Surface) stopContainer(ctx context.Context, args Args) (any, error) {
	name, err := argString(args, "name")
	if err != nil {
		return nil, err
	}

	return s.docker.StopContainer(ctx, name), nil
}

func (s *Surface) createContainer(ctx context.Context, args Args) (any, error) {
	return s.docker.CreateContainer(ctx, specFromArgs(args)), nil
}
