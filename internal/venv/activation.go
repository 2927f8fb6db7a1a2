// Package venv models a Python virtual environment on disk: its scoped
// activation for child processes and its readiness marker.
package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	envVirtualEnv = "VIRTUAL_ENV"
	envPath       = "PATH"
	envPythonHome = "PYTHONHOME"
)

// Activation is the scoped equivalent of sourcing bin/activate. It never touches
// the environment of the current process: commands built while it is active
// receive the derived environment, and Deactivate ends the scope.
type Activation struct {
	dir    string
	binDir string
	base   []string
	active bool
}

// ActivateWith scopes the environment at dir on top of base.
func ActivateWith(dir string, base []string) (*Activation, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve absolute path for %q: %w", dir, err)
	}

	return &Activation{
		dir:    absDir,
		binDir: filepath.Join(absDir, binDirName()),
		base:   append([]string(nil), base...),
		active: true,
	}, nil
}

// Active reports whether the scope is still open.
func (a *Activation) Active() bool {
	return a != nil && a.active
}

// Deactivate closes the scope. It is safe to call more than once.
func (a *Activation) Deactivate() {
	if a != nil {
		a.active = false
	}
}

// Environ returns the child-process environment. Once deactivated, it is the
// unmodified base environment.
func (a *Activation) Environ() []string {
	if !a.Active() {
		return append([]string(nil), a.base...)
	}

	environ := make([]string, 0, len(a.base)+1)
	pathKey := envPath
	hostPath := ""

	for _, entry := range a.base {
		key, value, _ := strings.Cut(entry, "=")

		switch {
		case envKeyEqual(runtime.GOOS, key, envPath):
			pathKey = key
			hostPath = value
		case envKeyEqual(runtime.GOOS, key, envVirtualEnv), envKeyEqual(runtime.GOOS, key, envPythonHome):
		default:
			environ = append(environ, entry)
		}
	}

	path := a.binDir
	if hostPath != "" {
		path += string(os.PathListSeparator) + hostPath
	}

	return append(environ, envVirtualEnv+"="+a.dir, pathKey+"="+path)
}

// envKeyEqual compares environment variable names; they are case-insensitive on windows.
func envKeyEqual(goos, key, name string) bool {
	if goos == "windows" {
		return strings.EqualFold(key, name)
	}

	return key == name
}

// Executable resolves a tool name to the environment's bin directory while the
// scope is active and the tool exists there. Otherwise the name is returned unchanged
// and the host's command resolution applies.
func (a *Activation) Executable(name string) string {
	if !a.Active() {
		return name
	}

	candidate := filepath.Join(a.binDir, name+executableSuffix())

	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return name
	}

	return candidate
}

func binDirName() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}

	return "bin"
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}

	return ""
}
