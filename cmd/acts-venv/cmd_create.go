package main

import (
	"context"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/acts-tooling/acts-venv/bootstrap"
)

// CreateCmd creates the create command, which provisions the environment.
func CreateCmd(cfg *Config, env map[string]string) *Command {
	flags := flag.NewFlagSet("create", flag.ContinueOnError)
	flags.BoolP("help", "h", false, "Show help")
	flags.String("root", "", "Environment root `dir` (default $TMPDIR/acts_preupload_virtualenv)")
	flags.String("source", "", "Source `dir` to copy and install (default ./framework)")
	flags.String("python", "", "Interpreter used to create the environment (default python3)")
	flags.String("creator", "", "Environment tool: venv or virtualenv (default venv)")
	flags.String("installer", "", "Install mode: develop or editable (default develop)")
	flags.Bool("fail-fast", false, "Stop at the first failing step")
	flags.Bool("fresh", false, "Remove the environment root before creating it")
	flags.Bool("dry-run", false, "Print the planned commands without executing")
	flags.Bool("debug", false, "Print provisioning details to stderr")

	return &Command{
		Flags: flags,
		Usage: "create [flags]",
		Short: "Create the environment and install the source tree",
		Long: "Create an isolated Python environment, copy the source tree into it, and\n" +
			"run an editable install of the copy with the environment's interpreter.\n" +
			"The working directory is restored afterwards.\n\n" +
			"Steps run best-effort: a failing step does not stop later steps unless\n" +
			"--fail-fast is set. The exit code is the installer's exit status when it\n" +
			"fails, 1 when another step fails, 0 otherwise.",
		Aliases: []string{},
		Exec: func(ctx context.Context, _ io.Reader, stdout, stderr io.Writer, _ []string) error {
			debugEnabled, _ := flags.GetBool("debug")

			var debug *DebugLogger
			if debugEnabled {
				debug = NewDebugLogger(stderr)
			} else {
				debug = NewDebugLogger(nil)
			}

			debugConfigLoading(debug, cfg)
			applyCreateFlags(cfg, flags)
			debugConfigMerge(debug, cfg, flags)

			b, err := newBootstrapper(cfg, env, debug)
			if err != nil {
				return err
			}

			plan := b.Plan()
			DebugPlan(debug, &plan)

			if dryRun, _ := flags.GetBool("dry-run"); dryRun {
				printPlan(stdout, &plan)

				return nil
			}

			if fresh, _ := flags.GetBool("fresh"); fresh {
				err = b.Clean(ctx)
				if err != nil {
					return err
				}
			}

			report, err := b.Run(ctx, stdout, stderr)
			DebugReport(debug, report)

			if err != nil {
				fprintError(stderr, err)

				code := report.ExitCode()
				if code == 0 {
					code = 1
				}

				return &ExitCodeError{Code: code}
			}

			return nil
		},
	}
}

// applyCreateFlags applies explicitly set CLI flags on top of cfg.
func applyCreateFlags(cfg *Config, flags *flag.FlagSet) {
	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	setString("root", &cfg.Root)
	setString("source", &cfg.Source)
	setString("python", &cfg.Python)
	setString("creator", &cfg.Creator)
	setString("installer", &cfg.Installer)

	if flags.Changed("fail-fast") {
		v, _ := flags.GetBool("fail-fast")
		cfg.FailFast = &v
	}
}

// printPlan writes the run as the equivalent shell commands.
func printPlan(output io.Writer, plan *bootstrap.Plan) {
	fprintln(output, shellJoin(plan.CreateArgv))
	fprintln(output, shellJoin([]string{"cp", "-r", plan.Source, plan.CopyDir}))
	fprintln(output, shellJoin([]string{"cd", plan.CopyDir}))
	fprintln(output, shellJoin(plan.InstallArgv))
	fprintln(output, "cd -")
}

// shellJoin quotes argv for display.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))

	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\$`") {
			quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		} else {
			quoted[i] = arg
		}
	}

	return strings.Join(quoted, " ")
}
