package dockerfacade

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ContainerSpec mirrors the original Python implementation's pydantic
// ContainerSpec (original_source/devops_agents/docker/schemas.py),
// generalized into a YAML-loadable struct so container definitions can
// live in version-controlled files rather than only inline tool calls —
// a natural fit given the rest of the pack's fondness for declarative
// YAML configuration.
type ContainerSpec struct {
	Image   string            `yaml:"image"`
	Name    string            `yaml:"name,omitempty"`
	Ports   map[string]string `yaml:"ports,omitempty"`
	Env     []string          `yaml:"env,omitempty"`
	Volumes []string          `yaml:"volumes,omitempty"`
	Detach  bool              `yaml:"detach"`
}

// LoadContainerSpec reads and parses a ContainerSpec from a YAML file.
func LoadContainerSpec(path string) (*ContainerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read container spec %s: %w", path, err)
	}

	spec := &ContainerSpec{Detach: true}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse container spec %s: %w", path, err)
	}

	if spec.Image == "" {
		return nil, fmt.Errorf("container spec %s: image is required", path)
	}

	return spec, nil
}

// ContainerTask mirrors the original's ContainerTask: a container name plus
// the argv to execute inside it (run_task's arguments).
type ContainerTask struct {
	ContainerName string   `yaml:"container_name"`
	Command       []string `yaml:"command"`
}
