package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"syscall"
)

// runTool runs argv with the bootstrapper's host environment and returns the
// tool's exit code. The error is non-nil only when the tool could not be
// started or waited on; a non-zero exit is reported through the code.
//
// When ctx is cancelled, SIGTERM is sent to the tool to allow graceful
// shutdown.
func (b *Bootstrapper) runTool(ctx context.Context, argv []string, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 {
		return 1, errors.New("no command provided")
	}

	err := ctx.Err()
	if err != nil {
		return 1, err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = slices.Clone(b.envSlice)

	b.debugf("bootstrap(exec): %s", strings.Join(argv, " "))

	err = cmd.Start()
	if err != nil {
		return 1, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			if cmd.Process != nil {
				_ = cmd.Process.Signal(syscall.SIGTERM)
			}
		case <-done:
		}
	}()

	err = cmd.Wait()

	close(done)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				// Killed by a signal.
				code = 1
			}

			return code, nil
		}

		return 1, fmt.Errorf("waiting for %s: %w", argv[0], err)
	}

	return 0, nil
}

// lookPath resolves name against the directories in pathEnv. Names containing
// a path separator are checked as-is.
func lookPath(name, pathEnv string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if isExecutable(name) {
			return name, nil
		}

		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}

		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	return info.Mode().Perm()&0o111 != 0
}

// envMapToSliceSorted converts a map env to a sorted KEY=VALUE slice.
func envMapToSliceSorted(env map[string]string) []string {
	if len(env) == 0 {
		return []string{}
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}

	return out
}
