// Package runner provides the os/exec implementation of core.CommandRunner.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/core"
)

const (
	// exitCodeFailure is used for errors that carry no child exit status.
	exitCodeFailure = 1
	// exitCodeSignalBase follows the shell convention for children killed by a signal.
	exitCodeSignalBase = 128
)

// ErrEmptyCommand is returned when a command has no executable name.
var ErrEmptyCommand = errors.New("command name cannot be empty")

// ExecRunner runs commands as child processes with the configured standard streams.
type ExecRunner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *logger.Logger
}

// New creates an ExecRunner attached to the terminal of the current process.
func New(log *logger.Logger) *ExecRunner {
	return NewWithStreams(log, os.Stdin, os.Stdout, os.Stderr)
}

// NewWithStreams creates an ExecRunner with explicit standard streams.
func NewWithStreams(log *logger.Logger, stdin io.Reader, stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    log,
	}
}

// Run starts the command and waits for it. A non-zero exit is returned wrapped,
// so callers can recover the *exec.ExitError with errors.As.
func (r *ExecRunner) Run(ctx context.Context, command core.Command) error {
	if command.Name == "" {
		return ErrEmptyCommand
	}

	// #nosec G204 -- commands are assembled from validated configuration
	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Dir
	cmd.Env = command.Env
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	r.log.Info("Running '%s' (dir: %s)", command.String(), displayDir(command.Dir))

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("command '%s' failed: %w", command.String(), err)
	}

	return nil
}

// ExitCode maps an error chain to a process exit status: 0 for nil, the child's
// status for an *exec.ExitError, 128+signal for a signalled child and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return exitCodeFailure
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if ok && status.Signaled() {
		return exitCodeSignalBase + int(status.Signal())
	}

	code := exitErr.ExitCode()
	if code < 0 {
		return exitCodeFailure
	}

	return code
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}

	return dir
}
