package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// defaultCommand runs when acts-venv is invoked without a command, matching
// the zero-argument pre-upload hook.
const defaultCommand = "create"

// interruptGrace is how long an interrupted command gets to stop its running
// tool and restore the working directory.
const interruptGrace = 10 * time.Second

// exitInterrupted is the exit code after SIGINT/SIGTERM.
const exitInterrupted = 130

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	help    bool
	version bool
	cwd     string
	config  string
	rest    []string // command name and its arguments
}

func parseGlobalOptions(args []string) (globalOptions, error) {
	var opts globalOptions

	fs := flag.NewFlagSet("acts-venv", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.BoolVarP(&opts.help, "help", "h", false, "Show help")
	fs.BoolVarP(&opts.version, "version", "v", false, "Show version and exit")
	fs.StringVarP(&opts.cwd, "cwd", "C", "", "Run as if started in `dir`")
	fs.StringVar(&opts.config, "config", "", "Use specified config `file`")

	err := fs.Parse(args)
	if err != nil {
		return opts, err
	}

	opts.rest = fs.Args()

	return opts, nil
}

// Run is the main entry point. Returns exit code.
// sigCh can be nil if signal handling is not needed (e.g., in tests).
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	opts, err := parseGlobalOptions(args[1:])
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printGlobalOptions(stderr)

		return 1
	}

	if opts.version {
		fprintln(stdout, versionString())

		return 0
	}

	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride: opts.cwd,
		ConfigPath:      opts.config,
		Env:             env,
	})
	if err != nil {
		fprintError(stderr, err)

		return 1
	}

	commands := []*Command{
		CreateCmd(&cfg, env),
		StatusCmd(&cfg, env),
		CleanCmd(&cfg, env),
	}

	if opts.help {
		printUsage(stdout, commands)

		return 0
	}

	cmd, cmdArgs, err := selectCommand(commands, opts.rest)
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		printGlobalOptions(stderr)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	return runInterruptible(cancel, sigCh, stderr, func() int {
		return cmd.Run(ctx, stdin, stdout, stderr, cmdArgs)
	})
}

// selectCommand picks the command named by rest[0] (by name or alias), or the
// default command when rest is empty.
func selectCommand(commands []*Command, rest []string) (*Command, []string, error) {
	name := defaultCommand
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}

	for _, cmd := range commands {
		if cmd.Name() == name || slices.Contains(cmd.Aliases, name) {
			return cmd, rest, nil
		}
	}

	return nil, nil, fmt.Errorf("unknown command %q", name)
}

// runInterruptible runs fn, cancelling its context on the first signal. After
// the first signal fn gets interruptGrace to return; a second signal or the
// deadline gives up on it.
func runInterruptible(cancel context.CancelFunc, sigCh <-chan os.Signal, stderr io.Writer, fn func() int) int {
	done := make(chan int, 1)

	go func() {
		done <- fn()
	}()

	if sigCh == nil {
		return <-done
	}

	select {
	case code := <-done:
		return code
	case <-sigCh:
	}

	fprintln(stderr, "acts-venv: interrupted, stopping the running step (interrupt again to exit now)")
	cancel()

	timer := time.NewTimer(interruptGrace)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		fprintf(stderr, "acts-venv: step still running after %s, exiting\n", interruptGrace)
	case <-sigCh:
	}

	return exitInterrupted
}

func versionString() string {
	if commit == "none" && date == "unknown" {
		return "acts-venv " + version + " (built from source)"
	}

	return fmt.Sprintf("acts-venv %s (%s, %s)", version, commit, date)
}

func fprintln(output io.Writer, a ...any) {
	_, _ = fmt.Fprintln(output, a...)
}

func fprintf(output io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(output, format, a...)
}

const (
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// fprintError prints err as "error: ..." lines, one per line of a joined
// error, in red when stdin is a terminal.
func fprintError(output io.Writer, err error) {
	prefix := "error:"
	if IsTerminal() {
		prefix = colorRed + prefix + colorReset
	}

	for line := range strings.SplitSeq(err.Error(), "\n") {
		fprintln(output, prefix, line)
	}
}

const globalOptionsHelp = `  -h, --help             Show help
  -v, --version          Show version and exit
  -C, --cwd <dir>        Run as if started in <dir>
      --config <file>    Use specified config file`

func printGlobalOptions(output io.Writer) {
	fprintln(output, "Usage: acts-venv [flags] [command] [args]")
	fprintln(output)
	fprintln(output, "Global flags:")
	fprintln(output, globalOptionsHelp)
}

func printUsage(output io.Writer, commands []*Command) {
	fprintln(output, "acts-venv - provision the ACTS pre-upload Python environment")
	fprintln(output)
	fprintln(output, "Creates a Python environment, copies the framework tree into it and")
	fprintln(output, "installs the copy in develop mode. Without a command, runs '"+defaultCommand+"'.")
	fprintln(output)
	printGlobalOptions(output)
	fprintln(output)
	fprintln(output, "Commands:")

	for _, cmd := range commands {
		fprintln(output, cmd.HelpLine())
	}
}

// isTerminal reports whether stdin is a terminal. Tests override it.
var isTerminal = func() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}

	return (stat.Mode() & os.ModeCharDevice) != 0
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return isTerminal()
}
