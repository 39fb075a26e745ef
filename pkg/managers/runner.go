package managers

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/logging"
)

// Runner executes one external command and returns its standard output
type Runner interface {
	Run(ctx context.Context, argv []string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// NewExecRunner creates the production runner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes argv and wraps a failure with its stderr. Stdin is
// inherited so sudo can prompt.
func (r *ExecRunner) Run(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "empty command")
	}
	logging.LogCommand(logging.GetLogger("managers"), argv[0], argv[1:])

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), errors.Wrapf(err, errors.ErrCommandFailed, "%s failed: %s",
			strings.Join(argv, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
