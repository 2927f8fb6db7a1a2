package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/config"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/book-expert/tts-bootstrap/internal/venv"
	"github.com/google/uuid"
)

// Bootstrapper runs the full sequence once: resolve the interpreter, reuse or
// provision the environment, then launch the demo.
type Bootstrapper struct {
	cfg         *config.Config
	resolver    *Resolver
	marker      venv.Marker
	provisioner *Provisioner
	launcher    *Launcher
	environ     []string
	stages      *stageTracker
}

// New creates a Bootstrapper that resolves the interpreter on the host PATH and
// derives child environments from the current process environment.
func New(
	cfg *config.Config,
	runner core.CommandRunner,
	notifier core.StatusNotifier,
	log *logger.Logger,
	runID string,
) *Bootstrapper {
	resolver := NewResolver(cfg.Interpreter.Name, exec.LookPath)

	return NewWithResolver(cfg, resolver, runner, notifier, log, runID, os.Environ())
}

// NewWithResolver creates a Bootstrapper with an explicit resolver and base
// environment. An empty runID is replaced with a generated one.
func NewWithResolver(
	cfg *config.Config,
	resolver *Resolver,
	runner core.CommandRunner,
	notifier core.StatusNotifier,
	log *logger.Logger,
	runID string,
	environ []string,
) *Bootstrapper {
	if runID == "" {
		runID = uuid.NewString()
	}

	stages := &stageTracker{
		notifier: notifier,
		log:      log,
		runID:    runID,
	}

	return &Bootstrapper{
		cfg:         cfg,
		resolver:    resolver,
		marker:      venv.NewMarker(cfg.MarkerPath()),
		provisioner: newProvisioner(cfg, runner, environ, stages),
		launcher:    newLauncher(cfg, runner, stages),
		environ:     environ,
		stages:      stages,
	}
}

// Run executes the sequence. ErrInterpreterNotFound is returned before anything
// on disk is touched. Tool failures are returned wrapped with their *exec.ExitError.
func (b *Bootstrapper) Run(ctx context.Context) error {
	var interpreter string

	err := b.stages.run(ctx, core.StageResolve, func() error {
		path, resolveErr := b.resolver.Resolve()
		interpreter = path

		return resolveErr
	})
	if err != nil {
		return err
	}

	activation, err := b.prepare(ctx, interpreter)
	if err != nil {
		return err
	}
	defer activation.Deactivate()

	return b.launcher.Launch(ctx, activation)
}

// prepare activates the existing environment when the marker is present and
// provisions a new one otherwise.
func (b *Bootstrapper) prepare(ctx context.Context, interpreter string) (*venv.Activation, error) {
	ready := b.marker.Ready()
	b.stages.done(ctx, core.StageCheck)

	if !ready {
		b.stages.log.Info("[%s] Marker %s absent, provisioning %s", b.stages.runID, b.marker.Path(), b.cfg.EnvPath())

		return b.provisioner.Provision(ctx, interpreter)
	}

	b.stages.log.Info("[%s] Marker %s present, reusing %s", b.stages.runID, b.marker.Path(), b.cfg.EnvPath())

	activation, err := venv.ActivateWith(b.cfg.EnvPath(), b.environ)
	if err != nil {
		return nil, fmt.Errorf("failed to activate environment: %w", err)
	}

	return activation, nil
}
