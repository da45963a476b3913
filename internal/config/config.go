package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

// FileName is the config file searched for from the working directory up.
const FileName = "scenarioctl.toml"

const (
	defaultEnvironmentName = "local"
	defaultScenariosDir    = "scenarios"
	defaultThemesDir       = "themes"
	defaultStateDir        = ".scenarioctl"
	defaultDatabaseURL     = "sqlite://.scenarioctl/site.db"
)

// EnvironmentConfig describes a single named environment from scenarioctl.toml.
type EnvironmentConfig struct {
	DatabaseURL string `toml:"database_url"`
}

// AliasConfig is a remote installation reached by running Command.
type AliasConfig struct {
	Command []string `toml:"command"`
}

type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	ScenariosDir       string                       `toml:"scenarios_dir"`
	ThemesDir          string                       `toml:"themes_dir"`
	StateDir           string                       `toml:"state_dir"`
	ResetStrategy      string                       `toml:"reset_strategy"`
	DatabaseURL        string                       `toml:"database_url"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	Aliases            map[string]AliasConfig       `toml:"aliases"`

	ConfigFilePath string `toml:"-"`
	configDir      string
	projectDir     string
}

// LoadConfig searches for scenarioctl.toml from the working directory up to
// the project root.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(startDir)
}

// LoadConfigFrom searches for scenarioctl.toml from startDir up to the
// project root. A missing file yields a Config rooted at startDir.
func LoadConfigFrom(startDir string) (*Config, error) {
	dir := startDir
	projectDir := ""
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			config, err := readConfig(configPath)
			if err != nil {
				return nil, err
			}
			config.projectDir = findProjectRoot(dir)
			return config, nil
		}

		if isProjectRoot(dir) {
			projectDir = dir
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	config := &Config{configDir: startDir, projectDir: projectDir}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func readConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	config.ConfigFilePath = path
	config.configDir = filepath.Dir(path)
	if err := config.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &config, nil
}

// normalize applies defaults, resolves directories against the config
// directory and validates reset_strategy.
func (c *Config) normalize() error {
	if c.DefaultEnvironment == "" {
		c.DefaultEnvironment = defaultEnvironmentName
	}

	var err error
	if c.ScenariosDir, err = c.resolvePath(c.ScenariosDir, defaultScenariosDir); err != nil {
		return err
	}
	if c.ThemesDir, err = c.resolvePath(c.ThemesDir, defaultThemesDir); err != nil {
		return err
	}
	if c.StateDir, err = c.resolvePath(c.StateDir, defaultStateDir); err != nil {
		return err
	}

	strategy, err := scenario.ParseResetStrategy(c.ResetStrategy)
	if err != nil {
		return err
	}
	c.ResetStrategy = string(strategy)
	return nil
}

func (c *Config) resolvePath(value, fallback string) (string, error) {
	if strings.TrimSpace(value) == "" {
		value = fallback
	}
	return resolvePath(value, c.configDir)
}

// Strategy returns the configured reset strategy.
func (c *Config) Strategy() scenario.ResetStrategy {
	if c == nil {
		return scenario.ResetDisableTwice
	}
	strategy, err := scenario.ParseResetStrategy(c.ResetStrategy)
	if err != nil {
		return scenario.ResetDisableTwice
	}
	return strategy
}

// AliasCommands returns the alias table as name -> command.
func (c *Config) AliasCommands() map[string][]string {
	out := make(map[string][]string, len(c.Aliases))
	for name, alias := range c.Aliases {
		out[name] = alias.Command
	}
	return out
}

// ConfigDir is the directory holding the config file, or the directory the
// search started from.
func (c *Config) ConfigDir() string {
	if c == nil {
		return ""
	}
	return c.configDir
}

// ProjectDir is the nearest project root, if one was found.
func (c *Config) ProjectDir() string {
	if c == nil {
		return ""
	}
	return c.projectDir
}

// resolvePath expands ~ and makes relative paths absolute against base.
func resolvePath(path, base string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	if filepath.IsAbs(expanded) || base == "" {
		return filepath.Clean(expanded), nil
	}
	return filepath.Join(base, expanded), nil
}

func findProjectRoot(dir string) string {
	for {
		if isProjectRoot(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", "go.mod", "package.json"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}
