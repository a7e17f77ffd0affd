// Package dockerfacade implements the Docker Facade (spec.md §4.5): thin,
// uniform-return wrappers over the Docker Engine API for container and
// image lifecycle management, and the entry point that constructs and
// registers Task Runners.
//
// Grounded on the original Python implementation's DockerManager static
// facade (original_source/devops_agents/docker/utils/manager.py) and on
// the teacher's providers/docker package for Engine API client usage
// idioms (ContainerExecCreate/Attach, client.NewClientWithOpts).
package dockerfacade

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"go.uber.org/zap"

	"github.com/Mahdi-A98/shellmux"
	"github.com/Mahdi-A98/shellmux/taskrunner"
)

// Facade wraps a Docker Engine API client with the spec's uniform-envelope
// operation set, plus the Task Runner registry run_task populates.
type Facade struct {
	cli     *client.Client
	runners *shellmux.Registry[*taskrunner.Runner]
	log     *zap.Logger
}

// New dials the Docker daemon at the given host ("" uses the platform
// default: unix:///var/run/docker.sock on Linux, npipe:////./pipe/docker_engine
// on Windows, both handled by client.FromEnv when DOCKER_HOST is unset).
func New(host string, logger *zap.Logger) (*Facade, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, &shellmux.DockerUnavailableError{Host: host, Err: err}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Facade{
		cli:     cli,
		runners: shellmux.NewRegistry[*taskrunner.Runner]("runner"),
		log:     logger.Named("dockerfacade"),
	}, nil
}

// Runners exposes the Task Runner registry so the Tool Surface can look
// runners up by id for get_task_runner_output / check_task_runner_status /
// stop_task_runner.
func (f *Facade) Runners() *shellmux.Registry[*taskrunner.Runner] {
	return f.runners
}

// Close releases the underlying client and interrupts every in-flight
// task runner.
func (f *Facade) Close() error {
	_ = f.runners.Shutdown(context.Background())

	return f.cli.Close()
}

// RunContainer implements run_container: creates and starts a container
// from spec, binding spec.Volumes as host:container mounts. The call never
// waits for the container to exit, whatever spec.Detach says.
func (f *Facade) RunContainer(ctx context.Context, spec *ContainerSpec) Envelope {
	exposedPorts, portBindings, err := parsePorts(spec.Ports)
	if err != nil {
		return fail(err)
	}

	created, err := f.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        spec.Image,
			Env:          spec.Env,
			ExposedPorts: exposedPorts,
		},
		&container.HostConfig{PortBindings: portBindings, Binds: spec.Volumes},
		&network.NetworkingConfig{},
		nil,
		spec.Name,
	)
	if err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "container create", Err: err})
	}

	if err := f.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "container start", Err: err})
	}

	return ok(fmt.Sprintf("container %s started", created.ID))
}

// ListAvailableContainers implements list_available_containers.
func (f *Facade) ListAvailableContainers(ctx context.Context, all bool) Envelope {
	containers, err := f.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "container list", Err: err})
	}

	var b strings.Builder

	for _, c := range containers {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", shortID(c.ID), strings.Join(c.Names, ","), c.Status, strings.Join(c.Names, ","))
	}

	return ok(b.String())
}

// PullImage implements pull_image, reporting progress through an adapted
// fileutil.ProgressReader rather than discarding the pull's progress stream.
func (f *Facade) PullImage(ctx context.Context, imageRef string, onProgress func(int64)) Envelope {
	rc, err := f.cli.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "image pull", Err: err})
	}
	defer rc.Close()

	reader := newProgressReader(rc, onProgress)

	buf := make([]byte, 32*1024)
	for {
		n, err := reader.Read(buf)
		if n == 0 && err != nil {
			break
		}
	}

	tags, err := f.imageTags(ctx, imageRef)
	if err != nil {
		return fail(err)
	}

	return ok(strings.Join(tags, ","))
}

// GetListOfImages implements get_list_of_images. Per spec.md §9's first
// open question, this uses the Engine client's canonical images-list call
// (ImageList + image.Summary.RepoTags) rather than any client-specific
// convenience attribute that may not exist across client versions.
func (f *Facade) GetListOfImages(ctx context.Context, repo string, all bool) Envelope {
	summaries, err := f.cli.ImageList(ctx, image.ListOptions{All: all})
	if err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "image list", Err: err})
	}

	var b strings.Builder

	for _, s := range summaries {
		if repo != "" && !containsRepo(s.RepoTags, repo) {
			continue
		}

		fmt.Fprintf(&b, "%s\t%s\n", shortID(s.ID), strings.Join(s.RepoTags, ","))
	}

	return ok(b.String())
}

func containsRepo(tags []string, repo string) bool {
	for _, t := range tags {
		if strings.HasPrefix(t, repo) {
			return true
		}
	}

	return false
}

// StartContainer implements start_container.
func (f *Facade) StartContainer(ctx context.Context, name string) Envelope {
	if err := f.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "container start", Err: err})
	}

	return ok(fmt.Sprintf("container %s started", name))
}

// StopContainer implements stop_container.
func (f *Facade) StopContainer(ctx context.Context, name string) Envelope {
	timeout := 10

	if err := f.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "container stop", Err: err})
	}

	return ok(fmt.Sprintf("container %s stopped", name))
}

// CreateContainer implements create_container: creates without starting.
func (f *Facade) CreateContainer(ctx context.Context, spec *ContainerSpec) Envelope {
	created, err := f.cli.ContainerCreate(ctx,
		&container.Config{Image: spec.Image, Env: spec.Env},
		&container.HostConfig{},
		&network.NetworkingConfig{},
		nil,
		spec.Name,
	)
	if err != nil {
		return fail(&shellmux.DockerOpFailedError{Op: "container create", Err: err})
	}

	return ok(created.ID)
}

// RunTask implements run_task: constructs a Task Runner for command inside
// containerName, registers it, launches it on a background goroutine, and
// returns its id immediately without waiting for completion.
func (f *Facade) RunTask(ctx context.Context, containerName string, command []string, useSDK bool) (string, error) {
	var transport taskrunner.Transport

	if useSDK {
		transport = taskrunner.NewSDKTransport(f.cli, containerName, command)
	} else {
		transport = taskrunner.NewSubprocessTransport(containerName, command)
	}

	cmd := &shellmux.Command{}
	if len(command) > 0 {
		cmd = &shellmux.Command{Cmd: command[0], Args: command[1:]}
	}

	runner := taskrunner.New(containerName, cmd, transport, taskrunner.WithLogger(f.log))
	runner.SetOnClose(func(id string) { f.runners.Remove(id) })

	f.runners.Insert(runner.ID(), runner)

	if err := runner.Run(ctx); err != nil {
		f.runners.Remove(runner.ID())

		return "", err
	}

	return runner.ID(), nil
}

func (f *Facade) imageTags(ctx context.Context, imageRef string) ([]string, error) {
	summaries, err := f.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, &shellmux.DockerOpFailedError{Op: "image list", Err: err}
	}

	for _, s := range summaries {
		for _, t := range s.RepoTags {
			if t == imageRef || strings.HasPrefix(t, imageRef+":") {
				return s.RepoTags, nil
			}
		}
	}

	return []string{imageRef}, nil
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}

	return id
}
