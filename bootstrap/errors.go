package bootstrap

import (
	"errors"
	"fmt"
)

// Step failure classes. A *[StepError] matches the sentinel of its step.
var (
	// ErrEnvironmentCreation is returned when the environment cannot be
	// created (tool unavailable, unwritable path, tool failure).
	ErrEnvironmentCreation = errors.New("environment creation failed")
	// ErrCopy is returned when the source tree cannot be copied.
	ErrCopy = errors.New("copy failed")
	// ErrDirectoryChange is returned when the copied tree cannot be entered.
	ErrDirectoryChange = errors.New("directory change failed")
	// ErrInstallation is returned when the installer cannot run or exits
	// non-zero.
	ErrInstallation = errors.New("installation failed")
)

var (
	// ErrNoInterpreter is returned when an environment root holds no
	// interpreter executable.
	ErrNoInterpreter = errors.New("no interpreter found")
	// ErrNotWritable is returned when the environment root cannot be created
	// or written.
	ErrNotWritable = errors.New("path is not writable")
	// ErrNotEnvironment is returned by Clean when the root holds files but does
	// not look like an environment created by a run.
	ErrNotEnvironment = errors.New("not an environment root")
	// ErrToolNotFound is returned when the environment creation tool is not
	// found in PATH.
	ErrToolNotFound = errors.New("tool not found in PATH")
)

// StepError reports the failure of one run step.
type StepError struct {
	Step Step
	// ExitCode is the tool's exit status for tool failures, 0 otherwise.
	ExitCode int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", stepSentinel(e.Step), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the failed step.
func (e *StepError) Is(target error) bool {
	return target != nil && target == stepSentinel(e.Step)
}

func stepSentinel(step Step) error {
	switch step {
	case StepCreate:
		return ErrEnvironmentCreation
	case StepCopy:
		return ErrCopy
	case StepChdir:
		return ErrDirectoryChange
	case StepInstall:
		return ErrInstallation
	default:
		return fmt.Errorf("step %q failed", step)
	}
}
