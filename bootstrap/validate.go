package bootstrap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// validateEnvironment checks the invariants the rest of the package relies
// on: WorkDir and TempDir are absolute.
func validateEnvironment(env Environment) error {
	var errs []error

	if strings.TrimSpace(env.WorkDir) == "" {
		errs = append(errs, errors.New("environment WorkDir is empty"))
	} else if !filepath.IsAbs(env.WorkDir) {
		errs = append(errs, fmt.Errorf("environment WorkDir %q is not absolute", env.WorkDir))
	}

	if strings.TrimSpace(env.TempDir) == "" {
		errs = append(errs, errors.New("environment TempDir is empty"))
	} else if !filepath.IsAbs(env.TempDir) {
		errs = append(errs, fmt.Errorf("environment TempDir %q is not absolute", env.TempDir))
	}

	return errors.Join(errs...)
}

// validateConfig runs after defaults are applied.
func validateConfig(cfg *Config) error {
	var errs []error

	if !filepath.IsAbs(cfg.Root) {
		errs = append(errs, fmt.Errorf("root %q is not absolute", cfg.Root))
	} else if cfg.Root == filepath.Dir(cfg.Root) {
		errs = append(errs, fmt.Errorf("root %q is a filesystem root", cfg.Root))
	}

	if !filepath.IsAbs(cfg.Source) {
		errs = append(errs, fmt.Errorf("source %q is not absolute", cfg.Source))
	} else if cfg.Source == filepath.Dir(cfg.Source) {
		errs = append(errs, fmt.Errorf("source %q is a filesystem root", cfg.Source))
	}

	if filepath.IsAbs(cfg.Root) && filepath.IsAbs(cfg.Source) && isWithin(cfg.Root, cfg.Source) {
		errs = append(errs, fmt.Errorf("root %q must not be inside source %q", cfg.Root, cfg.Source))
	}

	// The copy destination is replaced on every run.
	copyDir := filepath.Join(cfg.Root, filepath.Base(cfg.Source))
	if filepath.IsAbs(cfg.Root) && filepath.IsAbs(cfg.Source) && isWithin(cfg.Source, copyDir) {
		errs = append(errs, fmt.Errorf("source %q must not be inside its copy destination %q", cfg.Source, copyDir))
	}

	if strings.TrimSpace(cfg.Python) == "" {
		errs = append(errs, errors.New("python is empty"))
	}

	switch cfg.Creator {
	case CreatorVenv, CreatorVirtualenv:
	default:
		errs = append(errs, fmt.Errorf("unknown creator %q (want %q or %q)", cfg.Creator, CreatorVenv, CreatorVirtualenv))
	}

	switch cfg.Installer {
	case InstallerDevelop, InstallerEditable:
	default:
		errs = append(errs, fmt.Errorf("unknown installer %q (want %q or %q)", cfg.Installer, InstallerDevelop, InstallerEditable))
	}

	return errors.Join(errs...)
}

// isWithin reports whether path equals dir or lies below it. Both must be
// clean absolute paths.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
