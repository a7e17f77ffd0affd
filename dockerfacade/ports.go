package dockerfacade

import (
	"fmt"

	"github.com/docker/go-connections/nat"
)

// parsePorts turns spec.Ports ({"host_port": "container_port/proto"}) into
// the exposed-ports set and port-bindings map ContainerCreate expects.
func parsePorts(ports map[string]string) (map[nat.Port]struct{}, nat.PortMap, error) {
	exposed := make(map[nat.Port]struct{})
	bindings := make(nat.PortMap)

	for hostPort, containerPort := range ports {
		proto, portNum := nat.SplitProtoPort(containerPort)

		port, err := nat.NewPort(proto, portNum)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid container port %q: %w", containerPort, err)
		}

		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: hostPort}}
	}

	return exposed, bindings, nil
}
