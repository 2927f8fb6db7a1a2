// Package runner_test tests the os/exec command runner.
package runner_test

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/book-expert/tts-bootstrap/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*runner.ExecRunner, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("Skipping test: sh is not available")
	}

	testLogger, err := logger.New(t.TempDir(), "runner-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	var stdout, stderr bytes.Buffer

	return runner.NewWithStreams(testLogger, strings.NewReader(""), &stdout, &stderr), &stdout, &stderr
}

func TestExecRunner_Success(t *testing.T) {
	t.Parallel()

	execRunner, stdout, _ := newTestRunner(t)

	err := execRunner.Run(context.Background(), core.Command{
		Name: "sh",
		Args: []string{"-c", "printf hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", stdout.String())
}

func TestExecRunner_DirAndEnv(t *testing.T) {
	t.Parallel()

	execRunner, stdout, _ := newTestRunner(t)
	workDir := t.TempDir()

	err := execRunner.Run(context.Background(), core.Command{
		Name: "sh",
		Args: []string{"-c", `printf '%s|%s' "$DEMO_VALUE" "$(pwd -P)"`},
		Dir:  workDir,
		Env:  []string{"DEMO_VALUE=scoped"},
	})
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(workDir)
	require.NoError(t, err)
	assert.Equal(t, "scoped|"+resolved, stdout.String())
}

func TestExecRunner_NonZeroExitPropagates(t *testing.T) {
	t.Parallel()

	execRunner, _, stderr := newTestRunner(t)

	err := execRunner.Run(context.Background(), core.Command{
		Name: "sh",
		Args: []string{"-c", "echo broken >&2; exit 3"},
	})
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, runner.ExitCode(err))
	assert.Equal(t, "broken\n", stderr.String())
	assert.Contains(t, err.Error(), "exit 3")
}

func TestExecRunner_SignalledChildExitCode(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("Skipping test: POSIX signals are not available")
	}

	execRunner, _, _ := newTestRunner(t)

	err := execRunner.Run(context.Background(), core.Command{
		Name: "sh",
		Args: []string{"-c", "kill -TERM $$"},
	})
	require.Error(t, err)
	assert.Equal(t, 143, runner.ExitCode(err))
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	t.Parallel()

	execRunner, _, _ := newTestRunner(t)

	err := execRunner.Run(context.Background(), core.Command{})
	require.ErrorIs(t, err, runner.ErrEmptyCommand)
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, runner.ExitCode(nil))
	assert.Equal(t, 1, runner.ExitCode(errors.New("plain failure")))
}
