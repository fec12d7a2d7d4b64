// Command acts-venv provisions the Python environment used by the ACTS
// pre-upload hooks.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/acts-tooling/acts-venv/bootstrap"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	env := bootstrap.ParseEnviron(os.Environ())

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env, sigCh))
}
