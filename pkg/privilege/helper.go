package privilege

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/arthur-debert/declarix/pkg/errors"
	"github.com/arthur-debert/declarix/pkg/filesystem"
	"github.com/arthur-debert/declarix/pkg/logging"
)

// Exit codes of the helper binary
const (
	ExitOK        = 0
	ExitFailed    = 1
	ExitProtocol  = 2
	DefaultHelper = "declarix-helper"
)

// DefaultCommand is the command prefix used to reach the helper
func DefaultCommand() []string {
	return []string{"sudo", "--", DefaultHelper}
}

// HelperEscalator spawns the helper once per request and waits for it
type HelperEscalator struct {
	// Command is the prefix the encoded request is appended to,
	// e.g. ["sudo", "--", "declarix-helper"].
	Command []string
}

// NewHelperEscalator returns an escalator using command, or DefaultCommand when empty
func NewHelperEscalator(command []string) *HelperEscalator {
	if len(command) == 0 {
		command = DefaultCommand()
	}
	return &HelperEscalator{Command: command}
}

// Escalate runs the helper synchronously. A non-zero exit is a failure
// and carries the helper's output.
func (h *HelperEscalator) Escalate(ctx context.Context, r Request) error {
	argv, err := r.Encode()
	if err != nil {
		return err
	}

	args := append(append([]string{}, h.Command[1:]...), argv...)
	logging.LogCommand(logging.GetLogger("privilege"), h.Command[0], args)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, h.Command[0], args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "helper %s: %s", r.Op, strings.TrimSpace(out.String()))
	}
	return nil
}

// Serve is the whole of the helper binary: decode one request from argv,
// perform it and return the process exit code.
func Serve(argv []string, fsys filesystem.FS, stderr io.Writer) int {
	r, err := Decode(argv)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", DefaultHelper, err)
		return ExitProtocol
	}
	if err := Execute(fsys, r); err != nil {
		fmt.Fprintf(stderr, "%s: %s: %v\n", DefaultHelper, r.Op, err)
		return ExitFailed
	}
	return ExitOK
}
