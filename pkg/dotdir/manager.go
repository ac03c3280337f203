// Package dotdir manages the .ideas/ and ~/.ideas directories.
//
// The directory holds config.toml, the stored bearer token in
// credentials.toml and the last idea received by "ideas watch".
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = ".ideas"

// EnvDir names an .ideas/ directory when no override is given.
const EnvDir = "IDEAS_CONFIG_DIR"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .ideas/ directory to use, creating
// it (0700) when missing. The first of these wins:
//  1. overrideDir
//  2. $IDEAS_CONFIG_DIR
//  3. ./.ideas, when it already exists
//  4. ~/.ideas
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving ideas directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating ideas directory %s: %w", dir, err)
	}
	return dir, nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := os.Getenv(EnvDir); env != "" {
		return env, nil
	}

	if local, ok := existingDir(dirName); ok {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// existingDir reports whether path is a directory.
func existingDir(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return path, true
}
