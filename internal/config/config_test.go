package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestInit(t *testing.T) {
	viper.Reset()

	Init()

	// Check defaults are set
	if viper.GetInt("version") != 1 {
		t.Errorf("expected version default 1, got %d", viper.GetInt("version"))
	}
	if viper.GetInt("backup.retention_days") != 30 {
		t.Errorf("expected retention default 30, got %d", viper.GetInt("backup.retention_days"))
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	viper.Reset()

	// Point ORBIT_CONFIG_DIR at a temp dir to avoid loading system config
	tempDir := t.TempDir()
	t.Setenv("ORBIT_CONFIG_DIR", tempDir)

	Init()

	cfg, err := Load("")
	if err != nil {
		t.Errorf("Load() with no config file should not error: %v", err)
	}
	if cfg == nil {
		t.Error("expected config to be returned")
	}
}

func TestLoad_WithConfigFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := []byte("clients:\n  codex:\n    config_path: /custom/config.toml\n")
	if err := os.WriteFile(configPath, content, 0600); err != nil {
		t.Fatal(err)
	}

	Init()

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	overrides := cfg.ConfigPathOverrides()
	if overrides["codex"] != "/custom/config.toml" {
		t.Errorf("overrides = %v", overrides)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	viper.Reset()
	Init()

	_, err := Load("/non/existent/path/config.yaml")
	if err == nil {
		t.Error("Load() with non-existent explicit path should error")
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid version",
			content: "version: 2\n",
			wantErr: "validating config: unsupported config version: 2",
		},
		{
			name:    "invalid client override",
			content: "clients:\n  cursor:\n    config_path: /tmp/x\n",
			wantErr: "validating config: invalid client: cursor",
		},
		{
			name:    "negative retention",
			content: "backup:\n  retention_days: -1\n",
			wantErr: "validating config: backup retention_days must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			Init()

			dir := t.TempDir()
			configPath := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := Load(configPath)
			if err == nil {
				t.Error("Load() expected error, got nil")
			} else if err.Error() != tt.wantErr {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		wantErrs int
	}{
		{
			name:     "valid",
			cfg:      &Config{Version: 1, Log: LogConfig{Format: "json"}},
			wantErrs: 0,
		},
		{
			name:     "nil config",
			cfg:      nil,
			wantErrs: 1,
		},
		{
			name: "bad path and bad log format",
			cfg: &Config{
				Version: 1,
				Clients: map[string]ClientOverride{"codex": {ConfigPath: "."}},
				Log:     LogConfig{Format: "xml"},
			},
			wantErrs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Validate(tt.cfg)); got != tt.wantErrs {
				t.Errorf("Validate() = %d errors, want %d: %v", got, tt.wantErrs, Validate(tt.cfg))
			}
		})
	}
}

func TestInit_ClearsPreviousState(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "config_a.yaml")
	if err := os.WriteFile(fileA, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	viper.Reset()
	Init()
	if _, err := Load(fileA); err != nil {
		t.Fatalf("First Load failed: %v", err)
	}

	dirB := t.TempDir()
	t.Setenv("ORBIT_CONFIG_DIR", dirB)
	fileB := filepath.Join(dirB, "config.yaml")
	if err := os.WriteFile(fileB, []byte("version: 1\nbackup:\n  retention_days: 7\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Re-Initialize. This SHOULD clear the explicit file from the first load.
	Init()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Second Load failed: %v", err)
	}
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("expected config from ORBIT_CONFIG_DIR, got %+v (file used: %s)",
			cfg, viper.ConfigFileUsed())
	}
}
