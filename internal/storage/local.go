package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Local is the staging tier: a flat directory holding one database's backup
// artifacts before they reach the remote store.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Dir() string { return l.dir }

// Ensure creates the staging directory if it does not exist yet.
func (l *Local) Ensure() error {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create staging directory %s: %w", l.dir, err)
	}
	return nil
}

// Path returns the absolute path of a named artifact in the staging directory.
func (l *Local) Path(name string) string {
	return filepath.Join(l.dir, name)
}

// List returns the names of all regular files in the staging directory.
func (l *Local) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging directory %s: %w", l.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Remove deletes a named artifact from the staging directory.
func (l *Local) Remove(name string) error {
	if err := os.Remove(l.Path(name)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", l.Path(name), err)
	}
	return nil
}
