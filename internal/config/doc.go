// Package config provides configuration management for the orbit CLI.
//
// This package handles loading and validating orbit's own configuration
// file. It is distinct from the client configurations (claude-code,
// opencode, codex, gemini-cli) which are managed by the client adapters.
//
// # Configuration File
//
// The default configuration file location is ~/.config/orbit/config.yaml.
// The configuration file uses YAML format with the following structure:
//
//	version: 1
//	clients:
//	  codex:
//	    config_path: /custom/codex/config.toml  # optional
//	backup:
//	  retention_days: 30
//	log:
//	  format: text  # or json
//	  file: ""      # optional JSON log file
//
// # Loading Configuration
//
// Call [Init] once at startup, then [Load]:
//
//	config.Init()
//	cfg, err := config.Load("")
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//
// Pass a path to Load when the user gave an explicit --config flag; a
// missing file is then an error instead of a silent fallback to defaults.
//
// # Validation
//
// Load validates automatically. [Validate] can also be called directly and
// returns every problem found rather than just the first.
package config
