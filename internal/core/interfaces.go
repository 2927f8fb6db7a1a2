// Package core defines the types and interfaces shared by the bootstrap components.
package core

import (
	"context"
	"strings"
)

// Command describes a single external tool invocation.
// An empty Dir runs in the current directory; a nil Env inherits the process environment.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandRunner executes external tools and blocks until they exit.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// Stage identifies a step of the bootstrap sequence.
type Stage string

// Bootstrap stages in execution order.
const (
	StageResolve      Stage = "resolve_interpreter"
	StageCheck        Stage = "check_marker"
	StageClean        Stage = "remove_environment"
	StageCreate       Stage = "create_environment"
	StageSubmodules   Stage = "sync_submodules"
	StageFetchTags    Stage = "fetch_tags"
	StageCheckout     Stage = "checkout_pinned_tag"
	StageInstallDep   Stage = "install_dependency"
	StageRequirements Stage = "install_requirements"
	StageTokenizer    Stage = "download_tokenizer"
	StageMark         Stage = "write_marker"
	StageLaunch       Stage = "launch_demo"
)

// State is the outcome reported for a stage.
type State string

// Reported stage states.
const (
	StateStarted State = "started"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// StatusNotifier receives stage transitions. Implementations must not fail the bootstrap.
type StatusNotifier interface {
	Notify(ctx context.Context, stage Stage, state State, cause error)
}
