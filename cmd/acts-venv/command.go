package main

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
)

// ErrSilentExit makes a command exit with code 1 without printing an error.
var ErrSilentExit = errors.New("silent exit")

// ExitCodeError makes a command exit with Code without printing an error.
// The command is expected to have reported the failure itself.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// Command is a subcommand with its own flag set.
type Command struct {
	Flags   *flag.FlagSet
	Usage   string // e.g. "create [flags]"
	Short   string // one line for the command list
	Long    string // full description for --help
	Aliases []string
	Exec    func(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error
}

// Name returns the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the command's entry in the global command list.
func (c *Command) HelpLine() string {
	return "  " + padRight(c.Usage, 24) + c.Short
}

// PrintHelp writes usage, description and flags.
func (c *Command) PrintHelp(output io.Writer) {
	fprintln(output, "Usage: acts-venv", c.Usage)
	fprintln(output)

	if c.Long != "" {
		fprintln(output, c.Long)
	} else {
		fprintln(output, c.Short)
	}

	if c.Flags != nil && c.Flags.HasFlags() {
		fprintln(output)
		fprintln(output, "Flags:")
		fprintf(output, "%s", c.Flags.FlagUsages())
	}
}

// Run parses flags and executes the command. Returns the exit code.
func (c *Command) Run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})
	c.Flags.Usage = func() {}

	err := c.Flags.Parse(args)
	if err != nil {
		fprintError(stderr, err)
		fprintln(stderr)
		c.PrintHelp(stderr)

		return 1
	}

	if help, _ := c.Flags.GetBool("help"); help {
		c.PrintHelp(stdout)

		return 0
	}

	err = c.Exec(ctx, stdin, stdout, stderr, c.Flags.Args())
	if err == nil {
		return 0
	}

	if errors.Is(err, ErrSilentExit) {
		return 1
	}

	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	fprintError(stderr, err)

	return 1
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}

	return s + strings.Repeat(" ", width-len(s))
}
