package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Runner executes the backup tool and its helper commands on whichever host
// carries the tool, streaming stdout and stderr into caller-supplied writers.
// An error is returned when the command cannot be started or exits non-zero.
type Runner interface {
	Run(ctx context.Context, stdout, stderr io.Writer, name string, args ...string) error
	Host() string
}

// Processors queries the runner's host for its available processor count by
// running nproc. The count is resolved once at startup and treated as
// immutable for the process lifetime.
func Processors(ctx context.Context, r Runner) (int, error) {
	var stdout, stderr bytes.Buffer
	if err := r.Run(ctx, &stdout, &stderr, "nproc"); err != nil {
		return 0, fmt.Errorf("failed to run nproc on %s: %w", r.Host(), err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(stdout.String()))
	if err != nil {
		return 0, fmt.Errorf("unparseable nproc output %q: %w", strings.TrimSpace(stdout.String()), err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("nproc reported %d processors", n)
	}
	return n, nil
}
