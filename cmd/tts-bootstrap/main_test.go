package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/bootstrap"
	"github.com/book-expert/tts-bootstrap/internal/config"
	"github.com/book-expert/tts-bootstrap/internal/notify"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	testLogger, err := setupLogger(t.TempDir(), "main-test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = testLogger.Close() })

	return testLogger
}

func TestSetupNotifier_Disabled(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	notifier, closeNotifier := setupNotifier(cfg, "run", newTestLogger(t))
	defer closeNotifier()

	assert.IsType(t, notify.Nop{}, notifier)
}

func TestSetupNotifier_UnreachableFallsBack(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.NATS.URL = "nats://127.0.0.1:1"

	notifier, closeNotifier := setupNotifier(cfg, "run", newTestLogger(t))
	defer closeNotifier()

	assert.IsType(t, notify.Nop{}, notifier)
}

func TestSetupNotifier_Connected(t *testing.T) {
	t.Parallel()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	natsServer := test.RunServer(&opts)
	defer natsServer.Shutdown()

	cfg := config.Default()
	cfg.NATS.URL = natsServer.ClientURL()

	notifier, closeNotifier := setupNotifier(cfg, "run", newTestLogger(t))
	defer closeNotifier()

	assert.IsType(t, &notify.NATSPublisher{}, notifier)
}

func TestCheckInterpreter(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	err := checkInterpreter(cfg, func(name string) (string, error) { return "/usr/bin/" + name, nil })
	require.NoError(t, err)
}

func TestCheckInterpreter_MissingLeavesLogDirUntouched(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "logs")

	err := checkInterpreter(cfg, func(string) (string, error) { return "", errors.New("not found") })
	require.ErrorIs(t, err, bootstrap.ErrInterpreterNotFound)

	_, statErr := os.Stat(cfg.Logging.Dir)
	assert.True(t, os.IsNotExist(statErr))
}
