package bootstrap

import (
	"fmt"
	"os"
	"strings"
)

// Environment describes the host process environment used to resolve and run
// a bootstrap.
type Environment struct {
	// HomeDir is the host home directory.
	HomeDir string
	// WorkDir is the directory relative defaults (the source tree) resolve
	// against.
	WorkDir string
	// TempDir is the parent of the default environment root.
	TempDir string
	// HostEnv is a snapshot of environment variables passed to every external
	// tool. Its PATH is used to look up [Config.Python]. If HostEnv is nil, an
	// empty environment is used.
	HostEnv map[string]string
}

// DefaultEnvironment returns an Environment derived from the current process.
//
// HomeDir is resolved from os.UserHomeDir(), WorkDir from os.Getwd() and
// TempDir from os.TempDir(). HostEnv is populated from os.Environ(). Invalid
// KEY=VALUE entries are ignored.
func DefaultEnvironment() (Environment, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return Environment{}, fmt.Errorf("get working directory: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, fmt.Errorf("get home directory: %w", err)
	}

	return Environment{
		HomeDir: homeDir,
		WorkDir: workDir,
		TempDir: os.TempDir(),
		HostEnv: ParseEnviron(os.Environ()),
	}, nil
}

// ParseEnviron converts a KEY=VALUE list into a map. Entries without "=" or
// with an empty key are skipped.
func ParseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}

		env[key] = value
	}

	return env
}
