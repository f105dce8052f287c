// Package config provides configuration management for orbit using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/thoreinstein/orbit/internal/paths"
)

// AppName is the application name used for config file naming.
const AppName = paths.AppName

// Config represents the top-level configuration structure.
type Config struct {
	Version int                       `mapstructure:"version" yaml:"version"`
	Clients map[string]ClientOverride `mapstructure:"clients" yaml:"clients"`
	Backup  BackupConfig              `mapstructure:"backup" yaml:"backup"`
	Log     LogConfig                 `mapstructure:"log" yaml:"log"`
}

// ClientOverride contains configuration overrides for a specific client.
type ClientOverride struct {
	ConfigPath string `mapstructure:"config_path" yaml:"config_path"`
}

// BackupConfig controls retention of pre-apply config file backups.
type BackupConfig struct {
	// RetentionDays is how long backups are kept before `orbit backup prune`
	// removes them. Zero keeps them forever.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
}

// LogConfig carries logging defaults that CLI flags can override.
type LogConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.Reset()

	// Config file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	if dir := os.Getenv("ORBIT_CONFIG_DIR"); dir != "" {
		viper.AddConfigPath(dir)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath(filepath.Join(paths.ConfigHome(), AppName))

	// Environment variable support
	viper.SetEnvPrefix("ORBIT")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("version", 1)
	viper.SetDefault("backup.retention_days", 30)
	viper.SetDefault("log.format", "text")
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration, or default values when no file is found
// and no explicit path was given.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// If user specified a path, this is an error
			if path != "" {
				return nil, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			// Real read error (parsing, permissions, etc)
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errs[0])
	}

	return &cfg, nil
}

// ConfigPathOverrides extracts the per-client config file overrides, keyed
// by client identifier. Clients without an override are absent.
func (c *Config) ConfigPathOverrides() map[string]string {
	out := map[string]string{}
	for name, o := range c.Clients {
		if o.ConfigPath != "" {
			out[name] = o.ConfigPath
		}
	}
	return out
}
