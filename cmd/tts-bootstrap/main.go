// main package for tts-bootstrap
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/bootstrap"
	"github.com/book-expert/tts-bootstrap/internal/config"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/book-expert/tts-bootstrap/internal/notify"
	"github.com/book-expert/tts-bootstrap/internal/runner"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const bootstrapLogFile = "tts-bootstrap-startup.log"

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// setupNotifier connects to NATS when a URL is configured. A connection
// failure degrades to the no-op notifier; status events are informational.
func setupNotifier(cfg *config.Config, runID string, log *logger.Logger) (core.StatusNotifier, func()) {
	if cfg.NATS.URL == "" {
		return notify.Nop{}, func() {}
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("tts-bootstrap"))
	if err != nil {
		log.Warn("Status events disabled, cannot connect to NATS at %s: %v", cfg.NATS.URL, err)

		return notify.Nop{}, func() {}
	}

	publisher := notify.NewNATSPublisher(natsConnection, cfg.NATS.StatusSubject, runID, log)

	return publisher, natsConnection.Close
}

// checkInterpreter fails fast when the interpreter is missing, before the final
// logger can create anything under a configured log directory.
func checkInterpreter(cfg *config.Config, lookPath bootstrap.LookPathFunc) error {
	_, err := bootstrap.NewResolver(cfg.Interpreter.Name, lookPath).Resolve()

	return err
}

func run() error {
	// 1. Startup logger, used until configuration is known
	startupLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create startup logger: %v\n", err)

		return err
	}

	defer func() {
		_ = startupLog.Close()
	}()

	// 2. Configuration: defaults, project file, shared configurator, environment
	cfg, err := config.Load(startupLog)
	if err != nil {
		startupLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Interpreter check; nothing outside the temp directory is touched on failure
	err = checkInterpreter(cfg, exec.LookPath)
	if err != nil {
		startupLog.Error("Interpreter check failed: %v", err)

		return err
	}

	// 4. Final logger
	log, err := setupLogger(cfg.Logging.Dir, config.LogFileName)
	if err != nil {
		startupLog.Error("Failed to create final logger: %v", err)

		return err
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	runID := uuid.NewString()

	notifier, closeNotifier := setupNotifier(cfg, runID, log)
	defer closeNotifier()

	log.System("tts-bootstrap run %s: interpreter %s, environment %s, pinned tag %s",
		runID, cfg.Interpreter.Name, cfg.EnvPath(), cfg.Dependency.PinnedTag)

	boot := bootstrap.New(cfg, runner.New(log), notifier, log, runID)

	// Single sequential run, no deadline and default signal handling.
	return boot.Run(context.Background())
}

func main() {
	err := run()
	if err == nil {
		return
	}

	if errors.Is(err, bootstrap.ErrInterpreterNotFound) {
		fmt.Fprintf(os.Stderr, "%v\nInstall it and make sure it is on your PATH, then run tts-bootstrap again.\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "tts-bootstrap exited with error: %v\n", err)
	os.Exit(runner.ExitCode(err))
}
