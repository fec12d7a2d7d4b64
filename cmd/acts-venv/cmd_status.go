package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/acts-tooling/acts-venv/bootstrap"
)

// maxListedDifferences caps the differing paths printed by status.
const maxListedDifferences = 10

// StatusCmd creates the status command for environment inspection.
func StatusCmd(cfg *Config, env map[string]string) *Command {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.BoolP("quiet", "q", false, "Quiet mode, no output")
	flags.String("root", "", "Environment root `dir`")
	flags.String("source", "", "Source `dir` the copy is compared against")

	return &Command{
		Flags: flags,
		Usage: "status [flags]",
		Short: "Report whether the environment is ready",
		Long: "Inspect the environment root, its interpreter and the copied source tree.\n" +
			"Exits 0 if the environment exists and the copy matches the source, 1 otherwise.",
		Aliases: []string{},
		Exec: func(ctx context.Context, _ io.Reader, stdout, _ io.Writer, _ []string) error {
			quiet, _ := flags.GetBool("quiet")

			if flags.Changed("root") {
				cfg.Root, _ = flags.GetString("root")
			}

			if flags.Changed("source") {
				cfg.Source, _ = flags.GetString("source")
			}

			b, err := newBootstrapper(cfg, env, NewDebugLogger(nil))
			if err != nil {
				return err
			}

			st, err := b.Inspect(ctx)
			if err != nil {
				return err
			}

			if !quiet {
				fprintf(stdout, "root:        %s (%s)\n", st.Root, existence(st.RootExists))

				interp := st.Interpreter
				if interp == "" {
					interp = "(none)"
				}

				fprintf(stdout, "interpreter: %s\n", interp)
				fprintf(stdout, "source:      %s (%s)\n", st.Source, existence(st.SourceExists))
				fprintf(stdout, "copy:        %s (%s)\n", st.CopyDir, copyState(&st))

				for i, path := range st.Differences {
					if i == maxListedDifferences {
						fprintf(stdout, "  ... and %d more\n", len(st.Differences)-i)

						break
					}

					fprintf(stdout, "  differs: %s\n", path)
				}

				if st.Ready() {
					fprintln(stdout, "ready")
				} else {
					fprintln(stdout, "not ready")
				}
			}

			if !st.Ready() {
				return ErrSilentExit
			}

			return nil
		},
	}
}

func existence(ok bool) string {
	if ok {
		return "exists"
	}

	return "missing"
}

func copyState(st *bootstrap.Status) string {
	switch {
	case !st.CopyExists:
		return "missing"
	case !st.SourceExists:
		return "source missing"
	case st.InSync:
		return "in sync"
	default:
		return "out of sync"
	}
}
