package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/acts-tooling/acts-venv/bootstrap"
)

// DebugLogger provides structured debug output for environment provisioning.
// It is disabled by default (when output is nil) and outputs to stderr when enabled.
type DebugLogger struct {
	output io.Writer
}

// NewDebugLogger creates a new debug logger.
// If output is nil, the logger is disabled and all methods are no-ops.
func NewDebugLogger(output io.Writer) *DebugLogger {
	return &DebugLogger{output: output}
}

// Enabled returns true if debug logging is enabled.
func (d *DebugLogger) Enabled() bool {
	return d.output != nil
}

// Section outputs a section header.
func (d *DebugLogger) Section(name string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "\n=== %s ===\n", name)
}

// Logf outputs a formatted debug message.
func (d *DebugLogger) Logf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, format+"\n", args...)
}

// Bulletf outputs an indented bullet point item.
func (d *DebugLogger) Bulletf(format string, args ...any) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  • "+format+"\n", args...)
}

// ConfigFile outputs information about a config file.
func (d *DebugLogger) ConfigFile(label, path string, loaded bool) {
	if d.output == nil {
		return
	}

	if loaded {
		_, _ = fmt.Fprintf(d.output, "  %s: %s\n", label, path)
	} else {
		_, _ = fmt.Fprintf(d.output, "  %s: (not found)\n", label)
	}
}

// Setting outputs a setting value with its source.
func (d *DebugLogger) Setting(name, value, source string) {
	if d.output == nil {
		return
	}

	if value == "" {
		value = "(default)"
	}

	_, _ = fmt.Fprintf(d.output, "  %s: %s (%s)\n", name, value, source)
}

// BoolSetting outputs a boolean setting value with its source.
func (d *DebugLogger) BoolSetting(name string, value bool, source string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  %s: %t (%s)\n", name, value, source)
}

// Argv outputs a command line.
func (d *DebugLogger) Argv(label string, argv []string) {
	if d.output == nil {
		return
	}

	_, _ = fmt.Fprintf(d.output, "  %s: %s\n", label, strings.Join(argv, " "))
}

// debugConfigLoading outputs debug information about config file loading.
func debugConfigLoading(debug *DebugLogger, cfg *Config) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Config Loading")

	if len(cfg.LoadedConfigFiles) == 0 {
		debug.Logf("  No config files loaded (using defaults)")

		return
	}

	if path, ok := cfg.LoadedConfigFiles["global"]; ok {
		debug.ConfigFile("Global config", path, true)
	} else {
		debug.ConfigFile("Global config", "", false)
	}

	if path, ok := cfg.LoadedConfigFiles["explicit"]; ok {
		debug.ConfigFile("Explicit config (--config)", path, true)
	} else if path, ok := cfg.LoadedConfigFiles["project"]; ok {
		debug.ConfigFile("Project config", path, true)
	} else {
		debug.ConfigFile("Project config", "", false)
	}
}

// FlagChecker is an interface for checking if CLI flags were set.
type FlagChecker interface {
	Changed(name string) bool
}

// debugConfigMerge outputs debug information about the final merged config.
// This is called after CLI flags have been applied.
func debugConfigMerge(debug *DebugLogger, cfg *Config, flags FlagChecker) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Config Merge")

	debug.Setting("root", cfg.Root, configSource(cfg.LoadedConfigFiles, "root", flags))
	debug.Setting("source", cfg.Source, configSource(cfg.LoadedConfigFiles, "source", flags))
	debug.Setting("python", cfg.Python, configSource(cfg.LoadedConfigFiles, "python", flags))
	debug.Setting("creator", cfg.Creator, configSource(cfg.LoadedConfigFiles, "creator", flags))
	debug.Setting("installer", cfg.Installer, configSource(cfg.LoadedConfigFiles, "installer", flags))

	failFast := cfg.FailFast != nil && *cfg.FailFast
	debug.BoolSetting("fail-fast", failFast, configSource(cfg.LoadedConfigFiles, "fail-fast", flags))
}

// configSource determines the source of a config value.
func configSource(loadedFiles map[string]string, fieldName string, flags FlagChecker) string {
	if flags != nil && flags.Changed(fieldName) {
		return "cli"
	}

	if _, ok := loadedFiles["explicit"]; ok {
		return "explicit config"
	}

	if _, ok := loadedFiles["project"]; ok {
		return "project config"
	}

	if _, ok := loadedFiles["global"]; ok {
		return "global config"
	}

	return "default"
}

// DebugPlan outputs the resolved paths and commands of a run.
func DebugPlan(debug *DebugLogger, plan *bootstrap.Plan) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Plan")
	debug.Bulletf("root: %s", plan.Root)
	debug.Bulletf("source: %s", plan.Source)
	debug.Bulletf("copy: %s", plan.CopyDir)
	debug.Bulletf("lock: %s", plan.LockPath)
	debug.Argv("create", plan.CreateArgv)
	debug.Argv("install", plan.InstallArgv)
}

// DebugReport outputs per-step outcomes of a run.
func DebugReport(debug *DebugLogger, report *bootstrap.Report) {
	if !debug.Enabled() {
		return
	}

	debug.Section("Steps")

	for _, res := range report.Results {
		switch {
		case res.Skipped:
			debug.Bulletf("%s: skipped", res.Step)
		case res.Err != nil:
			debug.Bulletf("%s: failed (%s)", res.Step, res.Duration)
		default:
			debug.Bulletf("%s: ok (%s)", res.Step, res.Duration)
		}
	}
}
