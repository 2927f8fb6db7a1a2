// Package bootstrap implements the environment bootstrap sequence for the TTS
// demo: interpreter resolution, readiness check, provisioning and launch.
package bootstrap

import (
	"errors"
	"fmt"
)

// ErrInterpreterNotFound is returned when the required interpreter is not on the host.
var ErrInterpreterNotFound = errors.New("required interpreter not found")

// LookPathFunc resolves a command name the way exec.LookPath does.
type LookPathFunc func(file string) (string, error)

// Resolver locates the interpreter that creates the virtual environment.
type Resolver struct {
	name     string
	lookPath LookPathFunc
}

// NewResolver creates a Resolver for the interpreter called name.
func NewResolver(name string, lookPath LookPathFunc) *Resolver {
	return &Resolver{
		name:     name,
		lookPath: lookPath,
	}
}

// Resolve returns the interpreter path or ErrInterpreterNotFound.
func (r *Resolver) Resolve() (string, error) {
	path, err := r.lookPath(r.name)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%w)", ErrInterpreterNotFound, r.name, err)
	}

	return path, nil
}
