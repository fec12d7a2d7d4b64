package main

import (
	"fmt"

	"github.com/acts-tooling/acts-venv/bootstrap"
)

// newBootstrapper resolves cfg against env and builds a Bootstrapper.
// Root and Source accept "~" and paths relative to the effective working
// directory; empty values use the bootstrap defaults.
func newBootstrapper(cfg *Config, env map[string]string, debug *DebugLogger) (*bootstrap.Bootstrapper, error) {
	homeDir, err := GetHomeDir(env)
	if err != nil {
		return nil, err
	}

	bcfg := bootstrap.Config{
		Python:    cfg.Python,
		Creator:   bootstrap.Creator(cfg.Creator),
		Installer: bootstrap.Installer(cfg.Installer),
		FailFast:  cfg.FailFast != nil && *cfg.FailFast,
	}

	if cfg.Root != "" {
		bcfg.Root, err = ResolvePath(cfg.Root, homeDir, cfg.EffectiveCwd)
		if err != nil {
			return nil, fmt.Errorf("root: %w", err)
		}
	}

	if cfg.Source != "" {
		bcfg.Source, err = ResolvePath(cfg.Source, homeDir, cfg.EffectiveCwd)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}

	if debug.Enabled() {
		bcfg.Debugf = debug.Logf
	}

	return bootstrap.NewWithEnvironment(&bcfg, bootstrap.Environment{
		HomeDir: homeDir,
		WorkDir: cfg.EffectiveCwd,
		TempDir: GetTempDir(env),
		HostEnv: env,
	})
}
