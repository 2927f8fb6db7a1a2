package bootstrap

import (
	"context"
	"errors"

	"github.com/book-expert/tts-bootstrap/internal/config"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/book-expert/tts-bootstrap/internal/venv"
)

// ErrNotActivated is returned when the demo is launched without an open activation.
var ErrNotActivated = errors.New("environment is not activated")

// Launcher hands control to the demo entry point.
type Launcher struct {
	cfg    *config.Config
	runner core.CommandRunner
	stages *stageTracker
}

func newLauncher(cfg *config.Config, runner core.CommandRunner, stages *stageTracker) *Launcher {
	return &Launcher{
		cfg:    cfg,
		runner: runner,
		stages: stages,
	}
}

// Launch runs the demo inside the activation and waits for it. The demo's
// failure, including its exit status, is returned as is.
func (l *Launcher) Launch(ctx context.Context, activation *venv.Activation) error {
	if !activation.Active() {
		return ErrNotActivated
	}

	return l.stages.run(ctx, core.StageLaunch, func() error {
		return l.runner.Run(ctx, core.Command{
			Name: activation.Executable(pythonCommand),
			Args: l.cfg.Demo.Args,
			Dir:  l.cfg.Paths.Root,
			Env:  activation.Environ(),
		})
	})
}
