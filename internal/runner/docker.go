package runner

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Docker runs commands inside a named container via the Docker API. The
// container carries the backup tool; the agent itself stays tool-free.
type Docker struct {
	cli       *client.Client
	container string
}

// NewDocker creates a Docker runner and verifies the target container exists
// and is running. A missing or stopped container is a startup failure.
func NewDocker(ctx context.Context, containerName string) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	inspect, err := cli.ContainerInspect(ctx, containerName)
	if err != nil {
		return nil, fmt.Errorf("backup tool container %q not found: %w", containerName, err)
	}
	if inspect.State == nil || !inspect.State.Running {
		return nil, fmt.Errorf("backup tool container %q is not running", containerName)
	}

	return &Docker{cli: cli, container: containerName}, nil
}

func (d *Docker) Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	created, err := d.cli.ContainerExecCreate(ctx, d.container, container.ExecOptions{
		Cmd:          append([]string{name}, args...),
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create exec in %q: %w", d.container, err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return fmt.Errorf("failed to attach exec in %q: %w", d.container, err)
	}
	defer attach.Close()

	// The attached stream multiplexes stdout and stderr.
	if _, err := stdcopy.StdCopy(stdout, stderr, attach.Reader); err != nil {
		return fmt.Errorf("failed to read exec output from %q: %w", d.container, err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return fmt.Errorf("failed to inspect exec in %q: %w", d.container, err)
	}
	if inspect.ExitCode != 0 {
		return fmt.Errorf("%s exited with status %d", name, inspect.ExitCode)
	}
	return nil
}

func (d *Docker) Host() string { return "container:" + d.container }
