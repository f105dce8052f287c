// Package commands implements the CLI commands for orbit.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/orbit/internal/config"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/logging"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configPath holds the value of the --config flag.
var configPath string

// appConfig is the loaded app configuration, populated by initConfig.
var appConfig *config.Config

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to orbit config file")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("orbit version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	config.Init()
	// Capture load errors for later reporting
	appConfig, configLoadErr = config.Load(configPath)
}

var rootCmd = &cobra.Command{
	Use:   "orbit",
	Short: "Unified registry for MCP server configurations",
	Long: `orbit keeps MCP server definitions in sync across AI coding tools:
Claude Code, OpenCode, Codex, and Gemini CLI.

It scans each client's config file, deduplicates the servers it finds into
a single registry keyed by semantic identity, surfaces conflicting
definitions for resolution, and pushes the reconciled state back out to
every client in its native dialect. Edits made behind orbit's back are
detected as drift.`,
	Example: `  # Import servers from every installed client
  orbit rebuild

  # See what the registry holds
  orbit list

  # Disable a server for one client and push the change
  orbit disable github --client codex

  # Preview what an apply would write
  orbit apply --dry-run`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv("ORBIT_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 1 // Debug
				case "2":
					v = 2 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	format := logFormat
	if format == "text" && appConfig != nil && appConfig.Log.Format != "" {
		format = appConfig.Log.Format
	}

	var primaryHandler slog.Handler
	switch logging.Format(format) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	file := logFile
	if file == "" && appConfig != nil {
		file = appConfig.Log.File
	}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(ctx)

	return nil
}

// checkConfig surfaces config load errors before any command runs.
func checkConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" || cmd.Name() == "version" {
		return nil
	}
	if configLoadErr != nil {
		return errors.NewConfigError(configLoadErr)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return errors.Wrap(rootCmd.Execute(), "executing root command")
}
