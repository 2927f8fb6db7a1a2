package venv

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Marker is the empty sentinel file whose presence means the environment was
// provisioned completely.
type Marker struct {
	path string
}

// NewMarker returns the marker stored at path.
func NewMarker(path string) Marker {
	return Marker{path: path}
}

// Path returns the marker location.
func (m Marker) Path() string {
	return m.path
}

// Ready reports whether the marker exists as a regular file. Any stat error,
// including permission problems, counts as not ready.
func (m Marker) Ready() bool {
	info, err := os.Stat(m.path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}

// Write creates the empty marker, creating its directory if needed.
func (m Marker) Write() error {
	dirErr := os.MkdirAll(filepath.Dir(m.path), dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create directory for marker '%s': %w", m.path, dirErr)
	}

	writeErr := os.WriteFile(m.path, nil, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write marker '%s': %w", m.path, writeErr)
	}

	return nil
}
