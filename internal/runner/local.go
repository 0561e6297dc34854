package runner

import (
	"context"
	"io"
	"os/exec"
)

// Local runs commands directly on the agent host.
type Local struct{}

func NewLocal() Local { return Local{} }

func (Local) Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func (Local) Host() string { return "local" }
