package commands

import (
	"log/slog"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGray  = "\033[90m"
)

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// openStore opens the registry store at its configured location.
func openStore() (*store.Store, error) {
	st, err := store.Open(paths.StorePath())
	if err != nil {
		return nil, errors.Wrap(err, "opening registry store")
	}
	return st, nil
}

// adapterOptions builds the per-client adapter overrides from app config.
func adapterOptions() map[string]client.Options {
	opts := map[string]client.Options{}
	if appConfig == nil {
		return opts
	}
	for name, path := range appConfig.ConfigPathOverrides() {
		opts[name] = client.Options{ConfigPath: path}
	}
	return opts
}

// logger returns the process-wide logger configured by setupLogging.
func logger() *slog.Logger {
	return slog.Default()
}
