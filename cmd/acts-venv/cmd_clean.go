package main

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"
)

// CleanCmd creates the clean command, which removes the environment root.
func CleanCmd(cfg *Config, env map[string]string) *Command {
	flags := flag.NewFlagSet("clean", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.BoolP("quiet", "q", false, "Quiet mode, no output")
	flags.String("root", "", "Environment root `dir`")

	return &Command{
		Flags:   flags,
		Usage:   "clean [flags]",
		Short:   "Remove the environment root",
		Long:    "Remove the environment root and everything in it. A missing root is not an error.",
		Aliases: []string{"rm"},
		Exec: func(ctx context.Context, _ io.Reader, stdout, _ io.Writer, _ []string) error {
			if flags.Changed("root") {
				cfg.Root, _ = flags.GetString("root")
			}

			b, err := newBootstrapper(cfg, env, NewDebugLogger(nil))
			if err != nil {
				return err
			}

			err = b.Clean(ctx)
			if err != nil {
				return err
			}

			if quiet, _ := flags.GetBool("quiet"); !quiet {
				fprintf(stdout, "removed %s\n", b.Config().Root)
			}

			return nil
		},
	}
}
