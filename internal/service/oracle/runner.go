package oracle

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrTimeout marks an invocation killed by its deadline; it is the
	// only retryable failure.
	ErrTimeout = errors.New("oracle invocation timed out")

	// ErrUnavailable marks a missing CLI binary.
	ErrUnavailable = errors.New("oracle command not available")
)

// commandRunner is the process-boundary seam. Tests substitute a fake.
type commandRunner interface {
	Run(ctx context.Context, timeout time.Duration, args ...string) (string, error)
}

type execRunner struct {
	command string
}

func (r execRunner) Run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.command, args...)
	var out strings.Builder
	cmd.Stdout = &out

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", ErrTimeout
	}
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return "", ErrUnavailable
		}
		return "", err
	}

	return strings.TrimSpace(out.String()), nil
}
