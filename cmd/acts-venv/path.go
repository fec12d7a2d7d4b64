package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPathPattern is returned when an empty path pattern is provided.
	ErrEmptyPathPattern = errors.New("empty path pattern")
	// ErrHomeNotFound is returned when the home directory cannot be determined.
	ErrHomeNotFound = errors.New("cannot determine home directory")
)

// ResolvePath converts a path pattern to an absolute path.
//
// Resolution rules:
//   - ~ at start expands to homeDir
//   - Absolute paths (starting with /) resolve as-is
//   - Relative paths resolve against workDir
//   - Resulting paths are always cleaned (no .., .)
//   - Environment variables ($HOME, $TMPDIR, etc.) are NOT expanded (treated as literal)
func ResolvePath(pattern, homeDir, workDir string) (string, error) {
	if pattern == "" {
		return "", ErrEmptyPathPattern
	}

	var resolved string

	switch {
	case pattern == "~":
		resolved = homeDir
	case strings.HasPrefix(pattern, "~/"):
		resolved = filepath.Join(homeDir, pattern[2:])
	case filepath.IsAbs(pattern):
		resolved = pattern
	default:
		resolved = filepath.Join(workDir, pattern)
	}

	return filepath.Clean(resolved), nil
}

// GetHomeDir returns HOME from env, falling back to os.UserHomeDir.
func GetHomeDir(env map[string]string) (string, error) {
	if home := env["HOME"]; home != "" {
		return home, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHomeNotFound, err)
	}

	if home == "" {
		return "", ErrHomeNotFound
	}

	return home, nil
}

// GetTempDir returns TMPDIR from env when it is absolute, otherwise
// os.TempDir().
func GetTempDir(env map[string]string) string {
	if tmp := env["TMPDIR"]; tmp != "" && filepath.IsAbs(tmp) {
		return filepath.Clean(tmp)
	}

	return os.TempDir()
}
