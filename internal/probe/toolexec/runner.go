package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/prototypedave/hybridTool/internal/model"
)

// ErrNonZeroExit is returned when a command ran but exited with a non-zero code.
var ErrNonZeroExit = fmt.Errorf("%w: non-zero exit", model.ErrExternalTool)

// Result holds the captured output of one command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts name with args and waits for it to exit or ctx to end.
// A non-zero exit returns both the Result and ErrNonZeroExit, because some
// tools (ping on packet loss) still print useful output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // commands come from operator config
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("%w: %s: %w", model.ErrExternalTool, name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, fmt.Errorf("%w: %s exited with %d", ErrNonZeroExit, name, res.ExitCode)
	}
	return nil, fmt.Errorf("%w: failed to start %s: %w", model.ErrExternalTool, name, err)
}
