package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// ErrDuplicateConfigFiles is returned when both .json and .jsonc config files exist.
var ErrDuplicateConfigFiles = errors.New("duplicate config files")

// Config holds the application configuration.
//
// Empty strings mean "use the built-in default" (see the bootstrap package).
type Config struct {
	Root      string `json:"root,omitempty"`
	Source    string `json:"source,omitempty"`
	Python    string `json:"python,omitempty"`
	Creator   string `json:"creator,omitempty"`
	Installer string `json:"installer,omitempty"`
	FailFast  *bool  `json:"failFast,omitempty"`

	// Resolved (not serialized)
	EffectiveCwd string `json:"-"`
	// LoadedConfigFiles maps "global", "project" or "explicit" to the file
	// loaded for that layer.
	LoadedConfigFiles map[string]string `json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FailFast: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // --config flag value
	Env             map[string]string // Environment variables (for XDG_CONFIG_HOME)
}

// LoadConfig loads configuration with the following precedence (later overrides earlier):
//  1. Built-in defaults
//  2. Global config: $XDG_CONFIG_HOME/acts-venv/config.json or config.jsonc
//     (defaults to ~/.config/acts-venv/) - always loaded if exists
//  3. Project config OR --config path (not both):
//     - Without --config: .acts-venv.json or .acts-venv.jsonc in workDir
//     - With --config: uses that path instead of project config
//
// Both .json and .jsonc files support comments via tailscale/hujson.
// If both .json and .jsonc exist at the same location, it's an error.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	if !filepath.IsAbs(workDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}

		workDir = filepath.Join(cwd, workDir)
	}

	cfg := DefaultConfig()
	loaded := make(map[string]string)

	globalConfigBasePath, err := getUserConfigBasePath(input.Env)
	if err != nil {
		return Config{}, err
	}

	if globalConfigBasePath != "" {
		globalConfigPath, findErr := findConfigFile(globalConfigBasePath)
		if findErr == nil {
			globalCfg, loadErr := loadConfigFile(globalConfigPath)
			if loadErr != nil {
				return Config{}, loadErr
			}

			cfg = mergeConfigs(&cfg, &globalCfg)
			loaded["global"] = globalConfigPath
		} else if !errors.Is(findErr, os.ErrNotExist) {
			return Config{}, findErr
		}
	}

	if input.ConfigPath != "" {
		configPath := input.ConfigPath
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(workDir, configPath)
		}

		explicitCfg, err := loadConfigFile(configPath)
		if err != nil {
			return Config{}, err
		}

		cfg = mergeConfigs(&cfg, &explicitCfg)
		loaded["explicit"] = configPath
	} else {
		projectConfigBasePath := filepath.Join(workDir, ".acts-venv")

		projectConfigPath, findErr := findConfigFile(projectConfigBasePath)
		if findErr == nil {
			projectCfg, loadErr := loadConfigFile(projectConfigPath)
			if loadErr != nil {
				return Config{}, loadErr
			}

			cfg = mergeConfigs(&cfg, &projectCfg)
			loaded["project"] = projectConfigPath
		} else if !errors.Is(findErr, os.ErrNotExist) {
			return Config{}, findErr
		}
	}

	cfg.EffectiveCwd = workDir
	cfg.LoadedConfigFiles = loaded

	return cfg, nil
}

// findConfigFile finds a config file at basePath + ".json" or ".jsonc".
// It returns an error if both exist and os.ErrNotExist if neither does.
func findConfigFile(basePath string) (string, error) {
	jsonPath := basePath + ".json"
	jsoncPath := basePath + ".jsonc"

	jsonExists, jsonErr := fileExists(jsonPath)
	if jsonErr != nil {
		return "", jsonErr
	}

	jsoncExists, jsoncErr := fileExists(jsoncPath)
	if jsoncErr != nil {
		return "", jsoncErr
	}

	if jsonExists && jsoncExists {
		return "", fmt.Errorf("%w: both %s and %s exist; remove one", ErrDuplicateConfigFiles, jsonPath, jsoncPath)
	}

	if jsonExists {
		return jsonPath, nil
	}

	if jsoncExists {
		return jsoncPath, nil
	}

	return "", os.ErrNotExist
}

// fileExists checks if a file exists and is not a directory.
// Returns (true, nil) if file exists, (false, nil) if not found,
// or (false, error) for other errors (e.g., permission denied).
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("checking file %s: %w", path, err)
	}

	if info.IsDir() {
		return false, nil
	}

	return true, nil
}

// loadConfigFile loads and parses a JSON/JSONC config file.
// Both .json and .jsonc files support comments via hujson.
func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Relative paths in a config file are relative to that file.
	dir := filepath.Dir(path)
	cfg.Root = relativeTo(cfg.Root, dir)
	cfg.Source = relativeTo(cfg.Source, dir)

	return cfg, nil
}

// relativeTo anchors a relative, non-tilde path at dir.
func relativeTo(path, dir string) string {
	if path == "" || filepath.IsAbs(path) || path == "~" || strings.HasPrefix(path, "~/") {
		return path
	}

	return filepath.Join(dir, path)
}

// mergeConfigs merges override into base, with override taking precedence.
// Empty/zero values in override do not override base values.
func mergeConfigs(base, override *Config) Config {
	result := *base

	if override.Root != "" {
		result.Root = override.Root
	}

	if override.Source != "" {
		result.Source = override.Source
	}

	if override.Python != "" {
		result.Python = override.Python
	}

	if override.Creator != "" {
		result.Creator = override.Creator
	}

	if override.Installer != "" {
		result.Installer = override.Installer
	}

	if override.FailFast != nil {
		result.FailFast = override.FailFast
	}

	return result
}

// getUserConfigBasePath returns the user config base path (without extension).
// Uses env map for XDG_CONFIG_HOME and HOME instead of os.Getenv().
func getUserConfigBasePath(env map[string]string) (string, error) {
	if xdg, ok := env["XDG_CONFIG_HOME"]; ok && xdg != "" {
		return filepath.Join(xdg, "acts-venv", "config"), nil
	}

	home, err := GetHomeDir(env)
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "acts-venv", "config"), nil
}
