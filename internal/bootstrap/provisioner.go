package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/book-expert/tts-bootstrap/internal/config"
	"github.com/book-expert/tts-bootstrap/internal/core"
	"github.com/book-expert/tts-bootstrap/internal/venv"
)

const (
	pythonCommand  = "python"
	gitCommand     = "git"
	legacyResolver = "--use-deprecated=legacy-resolver"
)

// Provisioner rebuilds the virtual environment from scratch. Every step is a
// precondition for the next and the readiness marker is always written last.
type Provisioner struct {
	cfg     *config.Config
	runner  core.CommandRunner
	marker  venv.Marker
	environ []string
	stages  *stageTracker
}

func newProvisioner(cfg *config.Config, runner core.CommandRunner, environ []string, stages *stageTracker) *Provisioner {
	return &Provisioner{
		cfg:     cfg,
		runner:  runner,
		marker:  venv.NewMarker(cfg.MarkerPath()),
		environ: environ,
		stages:  stages,
	}
}

// Provision wipes and recreates the environment with the given interpreter and
// returns its activation. On failure the activation is already closed and the
// marker is absent.
func (p *Provisioner) Provision(ctx context.Context, interpreter string) (activation *venv.Activation, err error) {
	envPath := p.cfg.EnvPath()

	err = p.stages.run(ctx, core.StageClean, func() error {
		removeErr := os.RemoveAll(envPath)
		if removeErr != nil {
			return fmt.Errorf("failed to remove environment '%s': %w", envPath, removeErr)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stages.run(ctx, core.StageCreate, func() error {
		return p.runner.Run(ctx, core.Command{
			Name: interpreter,
			Args: []string{"-m", "venv", envPath},
			Dir:  "",
			Env:  p.environ,
		})
	})
	if err != nil {
		return nil, err
	}

	activation, err = venv.ActivateWith(envPath, p.environ)
	if err != nil {
		return nil, fmt.Errorf("failed to activate environment: %w", err)
	}

	defer func() {
		if err != nil {
			activation.Deactivate()
			activation = nil
		}
	}()

	for _, step := range p.steps(activation) {
		err = p.stages.run(ctx, step.stage, func() error {
			return p.runner.Run(ctx, step.command)
		})
		if err != nil {
			return activation, err
		}
	}

	err = p.stages.run(ctx, core.StageMark, p.marker.Write)
	if err != nil {
		return activation, err
	}

	return activation, nil
}

type provisionStep struct {
	stage   core.Stage
	command core.Command
}

// steps lists the tool invocations that run inside the activated environment.
func (p *Provisioner) steps(activation *venv.Activation) []provisionStep {
	root := p.cfg.Paths.Root
	dependencyDir := p.cfg.DependencyPath()
	environ := activation.Environ()
	python := activation.Executable(pythonCommand)
	git := activation.Executable(gitCommand)

	installArgs := []string{"-m", "pip", "install", "-e", "."}
	if p.cfg.Dependency.LegacyResolver {
		installArgs = append(installArgs, legacyResolver)
	}

	tokenizerArgs := []string{"-m", p.cfg.Tokenizer.Module}
	if p.cfg.Tokenizer.Command != "" {
		tokenizerArgs = append(tokenizerArgs, p.cfg.Tokenizer.Command)
	}

	return []provisionStep{
		{core.StageSubmodules, core.Command{
			Name: git, Args: []string{"submodule", "update", "--init", "--recursive"}, Dir: root, Env: environ,
		}},
		{core.StageFetchTags, core.Command{
			Name: git, Args: []string{"fetch", "--tags"}, Dir: dependencyDir, Env: environ,
		}},
		{core.StageCheckout, core.Command{
			Name: git, Args: []string{"checkout", p.cfg.Dependency.PinnedTag}, Dir: dependencyDir, Env: environ,
		}},
		{core.StageInstallDep, core.Command{
			Name: python, Args: installArgs, Dir: dependencyDir, Env: environ,
		}},
		{core.StageRequirements, core.Command{
			Name: python, Args: []string{"-m", "pip", "install", "-r", p.cfg.Paths.Requirements}, Dir: root, Env: environ,
		}},
		{core.StageTokenizer, core.Command{
			Name: python, Args: tokenizerArgs, Dir: root, Env: environ,
		}},
	}
}
