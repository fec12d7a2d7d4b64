// Package bootstrap provisions the isolated Python environment used by the
// ACTS pre-upload hooks.
//
// A run performs four steps in order:
//
//  1. create an interpreter environment at [Config.Root] with
//     `<python> -m venv <root>` (or virtualenv),
//  2. copy [Config.Source] into the environment root,
//  3. change the process working directory into the copy,
//  4. run an editable ("develop") install of the copy with the environment's
//     own interpreter.
//
// The caller's working directory is restored after the run on every exit path.
//
// # Error Policy
//
// By default a run is best-effort: a failing step does not stop later steps
// from running, and all failures are reported together. Set
// [Config.FailFast] to stop at the first failing step instead. Each failure
// is a *[StepError] that matches one of [ErrEnvironmentCreation], [ErrCopy],
// [ErrDirectoryChange] or [ErrInstallation] via errors.Is.
//
// # Process-wide State
//
// Step 3 changes the working directory of the whole process. Runs within one
// process are serialized, and runs across processes are serialized through an
// advisory lock file in [Environment.TempDir] (see [LockPath]). A run that
// cannot take the lock reports it as an environment creation failure and
// continues unlocked under the error policy below.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultRootName is the directory name of the environment root under the
// temp directory.
const DefaultRootName = "acts_preupload_virtualenv"

// DefaultSourceName is the source directory copied into the environment when
// [Config.Source] is empty. It is resolved against [Environment.WorkDir].
const DefaultSourceName = "framework"

// DefaultPython is the interpreter used to create the environment.
const DefaultPython = "python3"

// Debugf receives debug messages from planning and execution.
type Debugf func(format string, args ...any)

// Creator selects the tool used to create the environment.
type Creator string

const (
	// CreatorVenv runs `<python> -m venv <root>`.
	CreatorVenv Creator = "venv"
	// CreatorVirtualenv runs `<python> -m virtualenv -p <python> <root>`.
	CreatorVirtualenv Creator = "virtualenv"
)

// Installer selects how the copied tree is installed into the environment.
type Installer string

const (
	// InstallerDevelop runs `<env-python> setup.py develop` in the copy.
	InstallerDevelop Installer = "develop"
	// InstallerEditable runs `<env-python> -m pip install -e .` in the copy.
	InstallerEditable Installer = "editable"
)

// Config configures a bootstrap run.
//
// The zero value is usable: every empty field is replaced by its default
// during construction.
type Config struct {
	// Root is the environment root. Must be absolute when set.
	// Defaults to <Environment.TempDir>/acts_preupload_virtualenv.
	Root string

	// Source is the directory copied into Root. Must be absolute when set.
	// Defaults to <Environment.WorkDir>/framework.
	Source string

	// Python is the interpreter used to create the environment. A bare name is
	// looked up in the PATH of [Environment.HostEnv].
	Python string

	// Creator defaults to [CreatorVenv].
	Creator Creator

	// Installer defaults to [InstallerDevelop].
	Installer Installer

	// FailFast stops the run at the first failing step.
	FailFast bool

	// Debugf receives debug messages. May be nil.
	Debugf Debugf
}

// Bootstrapper runs the environment bootstrap for one validated Config.
//
// A Bootstrapper must not be copied after first use. It is safe for
// concurrent use; runs are serialized.
type Bootstrapper struct {
	noCopy noCopy

	cfg      Config
	env      Environment
	envSlice []string
}

// New constructs a Bootstrapper using an Environment derived from the current
// process (see [DefaultEnvironment]).
func New(cfg *Config) (*Bootstrapper, error) {
	env, err := DefaultEnvironment()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: creating default environment: %w", err)
	}

	return NewWithEnvironment(cfg, env)
}

// NewWithEnvironment constructs a Bootstrapper using an explicit environment.
//
// cfg and env are copied, so later modifications do not affect the
// Bootstrapper.
func NewWithEnvironment(cfg *Config, env Environment) (*Bootstrapper, error) {
	var resolved Config
	if cfg != nil {
		resolved = *cfg
	}

	env = cloneEnvironment(env)

	err := validateEnvironment(env)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: validating: %w", err)
	}

	applyDefaults(&resolved, env)

	err = validateConfig(&resolved)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: validating: %w", err)
	}

	return &Bootstrapper{
		cfg:      resolved,
		env:      env,
		envSlice: envMapToSliceSorted(env.HostEnv),
	}, nil
}

func applyDefaults(cfg *Config, env Environment) {
	if cfg.Root == "" {
		cfg.Root = filepath.Join(env.TempDir, DefaultRootName)
	}

	if cfg.Source == "" {
		cfg.Source = filepath.Join(env.WorkDir, DefaultSourceName)
	}

	if cfg.Python == "" {
		cfg.Python = DefaultPython
	}

	if cfg.Creator == "" {
		cfg.Creator = CreatorVenv
	}

	if cfg.Installer == "" {
		cfg.Installer = InstallerDevelop
	}

	cfg.Root = filepath.Clean(cfg.Root)
	cfg.Source = filepath.Clean(cfg.Source)
}

// Config returns the resolved configuration (defaults applied).
func (b *Bootstrapper) Config() Config {
	return b.cfg
}

// CopyDir returns the path of the source copy inside the environment root.
func (b *Bootstrapper) CopyDir() string {
	return filepath.Join(b.cfg.Root, filepath.Base(b.cfg.Source))
}

// Plan describes the commands and paths a run would use, without touching
// the filesystem.
type Plan struct {
	Root        string
	Source      string
	CopyDir     string
	LockPath    string
	CreateArgv  []string
	InstallArgv []string
}

// Plan returns the run plan. The install interpreter is the one found in the
// root if present, otherwise the conventional bin/python3 location.
func (b *Bootstrapper) Plan() Plan {
	interp, ok := findInterpreter(b.cfg.Root)
	if !ok {
		interp = filepath.Join(b.cfg.Root, "bin", "python3")
	}

	return Plan{
		Root:        b.cfg.Root,
		Source:      b.cfg.Source,
		CopyDir:     b.CopyDir(),
		LockPath:    b.lockPath(),
		CreateArgv:  b.createArgv(b.cfg.Python),
		InstallArgv: b.installArgv(interp),
	}
}

// Step names one stage of a run.
type Step string

const (
	// StepCreate creates the interpreter environment.
	StepCreate Step = "create"
	// StepCopy copies the source tree into the environment root.
	StepCopy Step = "copy"
	// StepChdir changes into the copied tree.
	StepChdir Step = "chdir"
	// StepInstall runs the editable install.
	StepInstall Step = "install"
)

// Steps lists the run steps in execution order.
var Steps = []Step{StepCreate, StepCopy, StepChdir, StepInstall}

// StepResult is the outcome of a single step.
type StepResult struct {
	Step     Step
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	Root        string
	CopyDir     string
	Interpreter string
	Results     []StepResult

	// InstallExitCode is the installer's exit status, or -1 if the installer
	// did not run to completion.
	InstallExitCode int
}

// Err joins the errors of all failed steps.
func (r *Report) Err() error {
	errs := make([]error, 0, len(r.Results))

	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}

	return errors.Join(errs...)
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	return slices.ContainsFunc(r.Results, func(res StepResult) bool { return res.Err != nil })
}

// ExitCode maps the report to a process exit code: the installer's status if
// it ran and failed, 1 if any other step failed, 0 otherwise.
func (r *Report) ExitCode() int {
	if r.InstallExitCode > 0 {
		return r.InstallExitCode
	}

	if r.Failed() {
		return 1
	}

	return 0
}

// workDirMu serializes runs within the process; the working directory is
// process-wide.
var workDirMu sync.Mutex

// Run executes the bootstrap. Tool output is written to stdout and stderr.
//
// The returned error joins every step failure (see [Report.Err]). Failing to
// take the lock fails the create step; failing to save the working directory
// aborts the run before any step. The report is never nil.
func (b *Bootstrapper) Run(ctx context.Context, stdout, stderr io.Writer) (*Report, error) {
	report := &Report{
		Root:            b.cfg.Root,
		CopyDir:         b.CopyDir(),
		InstallExitCode: -1,
	}

	if stdout == nil {
		stdout = io.Discard
	}

	if stderr == nil {
		stderr = io.Discard
	}

	unlock, lockErr := AcquireLock(ctx, b.lockPath())
	if lockErr == nil {
		defer func() { _ = unlock() }()
	} else {
		b.debugf("bootstrap(run): running unlocked: %v", lockErr)
	}

	workDirMu.Lock()
	defer workDirMu.Unlock()

	restore, err := saveWorkDir()
	if err != nil {
		return report, fmt.Errorf("bootstrap: %w", err)
	}

	defer func() {
		restoreErr := restore()
		if restoreErr != nil {
			b.debugf("bootstrap(run): restoring working directory: %v", restoreErr)
		}
	}()

	steps := []struct {
		step Step
		fn   func(context.Context, io.Writer, io.Writer, *Report) error
	}{
		{StepCreate, func(ctx context.Context, stdout, stderr io.Writer, report *Report) error {
			err := b.create(ctx, stdout, stderr, report)
			if lockErr != nil {
				return errors.Join(&StepError{Step: StepCreate, Err: lockErr}, err)
			}

			return err
		}},
		{StepCopy, b.copy},
		{StepChdir, b.chdir},
		{StepInstall, b.install},
	}

	stopped := false

	for _, s := range steps {
		if stopped {
			report.Results = append(report.Results, StepResult{Step: s.step, Skipped: true})

			continue
		}

		start := time.Now()
		stepErr := s.fn(ctx, stdout, stderr, report)
		res := StepResult{Step: s.step, Duration: time.Since(start)}

		if stepErr != nil {
			res.Err = stepErr
			b.debugf("bootstrap(%s): failed after %s: %v", s.step, res.Duration, stepErr)

			if b.cfg.FailFast || ctx.Err() != nil {
				stopped = true
			}
		} else {
			b.debugf("bootstrap(%s): ok (%s)", s.step, res.Duration)
		}

		report.Results = append(report.Results, res)
	}

	return report, report.Err()
}

func (b *Bootstrapper) create(ctx context.Context, stdout, stderr io.Writer, _ *Report) error {
	err := checkWritable(b.cfg.Root)
	if err != nil {
		return &StepError{Step: StepCreate, Err: err}
	}

	python, err := lookPath(b.cfg.Python, b.env.HostEnv["PATH"])
	if err != nil {
		return &StepError{Step: StepCreate, Err: err}
	}

	code, err := b.runTool(ctx, b.createArgv(python), stdout, stderr)
	if err != nil {
		return &StepError{Step: StepCreate, Err: err}
	}

	if code != 0 {
		return &StepError{Step: StepCreate, ExitCode: code, Err: fmt.Errorf("%s exited with status %d", python, code)}
	}

	if _, ok := findInterpreter(b.cfg.Root); !ok {
		return &StepError{Step: StepCreate, Err: fmt.Errorf("%w in %s", ErrNoInterpreter, b.cfg.Root)}
	}

	return nil
}

func (b *Bootstrapper) copy(ctx context.Context, _, _ io.Writer, _ *Report) error {
	err := copyTree(ctx, b.cfg.Source, b.CopyDir(), b.debugf)
	if err != nil {
		return &StepError{Step: StepCopy, Err: err}
	}

	return nil
}

func (b *Bootstrapper) chdir(_ context.Context, _, _ io.Writer, _ *Report) error {
	err := os.Chdir(b.CopyDir())
	if err != nil {
		return &StepError{Step: StepChdir, Err: err}
	}

	return nil
}

func (b *Bootstrapper) install(ctx context.Context, stdout, stderr io.Writer, report *Report) error {
	interp, ok := findInterpreter(b.cfg.Root)
	if !ok {
		return &StepError{Step: StepInstall, Err: fmt.Errorf("%w in %s", ErrNoInterpreter, b.cfg.Root)}
	}

	report.Interpreter = interp

	code, err := b.runTool(ctx, b.installArgv(interp), stdout, stderr)
	if err != nil {
		return &StepError{Step: StepInstall, Err: err}
	}

	report.InstallExitCode = code

	if code != 0 {
		return &StepError{Step: StepInstall, ExitCode: code, Err: fmt.Errorf("%s exited with status %d", strings.Join(b.installArgv(interp), " "), code)}
	}

	return nil
}

func (b *Bootstrapper) createArgv(python string) []string {
	if b.cfg.Creator == CreatorVirtualenv {
		return []string{python, "-m", "virtualenv", "-p", python, b.cfg.Root}
	}

	return []string{python, "-m", "venv", b.cfg.Root}
}

func (b *Bootstrapper) installArgv(interp string) []string {
	if b.cfg.Installer == InstallerEditable {
		return []string{interp, "-m", "pip", "install", "-e", "."}
	}

	return []string{interp, "setup.py", "develop"}
}

func (b *Bootstrapper) debugf(format string, args ...any) {
	if b.cfg.Debugf != nil {
		b.cfg.Debugf(format, args...)
	}
}

func cloneEnvironment(env Environment) Environment {
	out := env

	if env.HostEnv == nil {
		out.HostEnv = map[string]string{}
	} else {
		out.HostEnv = make(map[string]string, len(env.HostEnv))
		maps.Copy(out.HostEnv, env.HostEnv)
	}

	return out
}

// marker for go vet.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
