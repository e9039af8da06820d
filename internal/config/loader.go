package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName  = "config.yaml"
	ConfigDirName   = ".mlbstats"
	GlobalConfigDir = ".config/mlbstats"
	EnvPrefix       = "MLBSTATS_"
)

// Loader handles configuration loading and discovery
type Loader struct {
	startDir string
}

// NewLoader creates a new config loader starting from the given directory
func NewLoader(startDir string) *Loader {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			startDir = "."
		}
	}
	return &Loader{startDir: startDir}
}

// Load finds the nearest config file (falling back to defaults when there
// is none), then applies .env and MLBSTATS_* overrides and validates.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.findConfigFile()
	if err != nil {
		return l.finish(Default())
	}
	return l.LoadFile(configPath)
}

// LoadFile loads an explicit config file with the same overrides as Load.
func (l *Loader) LoadFile(configPath string) (*Config, error) {
	config, err := l.loadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// findConfigFile searches upward from the start directory for a config file
func (l *Loader) findConfigFile() (string, error) {
	dir := l.startDir

	for {
		configPath := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(homeDir, GlobalConfigDir, ConfigFileName)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched upward from %s)", l.startDir)
}

// loadFromFile decodes configPath over the defaults, so omitted keys keep
// their default values.
func (l *Loader) loadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	config.Source = configPath
	return config, nil
}

// loadDotEnv loads <startDir>/.env into the process environment. Variables
// that are already set win.
func (l *Loader) loadDotEnv() error {
	path := filepath.Join(l.startDir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(config *Config) error {
	strVars := map[string]*string{
		"ENDPOINT":  &config.Browser.Endpoint,
		"URL":       &config.Browser.URL,
		"EXEC_PATH": &config.Browser.ExecPath,
		"VARIANT":   &config.Extract.Variant,
		"FETCH":     &config.Extract.Fetch,
		"DATABASE":  &config.Storage.Database,
		"FORMAT":    &config.Output.Format,
		"LOG_LEVEL": &config.Log.Level,
	}
	for name, dst := range strVars {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(EnvPrefix + "HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sHEADLESS: %w", EnvPrefix, err)
		}
		config.Browser.Headless = headless
	}
	if v := os.Getenv(EnvPrefix + "CELL_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCELL_CONCURRENCY: %w", EnvPrefix, err)
		}
		config.Extract.CellConcurrency = n
	}

	durVars := map[string]*time.Duration{
		"COMMAND_TIMEOUT": &config.Browser.CommandTimeout,
		"BANNER_TIMEOUT":  &config.Page.BannerTimeout,
		"CLICK_TIMEOUT":   &config.Page.ClickTimeout,
	}
	for name, dst := range durVars {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}
	return nil
}

// Save writes config as YAML to configPath
func (l *Loader) Save(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the path where a project config file should be created
func (l *Loader) GetConfigPath() string {
	return filepath.Join(l.startDir, ConfigDirName, ConfigFileName)
}
