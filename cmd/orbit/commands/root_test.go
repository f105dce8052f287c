package commands

import (
	"context"
	"log/slog"
	"testing"

	"github.com/thoreinstein/orbit/internal/logging"
)

func TestSetupLogging_VerbosityFlags(t *testing.T) {
	origVerbosity := verbosity
	defer func() { verbosity = origVerbosity }()

	tests := []struct {
		name      string
		verbosity int
		wantLevel slog.Level
	}{
		{"default (0)", 0, slog.LevelInfo},
		{"debug (1)", 1, slog.LevelDebug},
		{"trace (2)", 2, logging.LevelTrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbosity = tt.verbosity
			if err := setupLogging(rootCmd); err != nil {
				t.Fatalf("setupLogging failed: %v", err)
			}

			logger := slog.Default()
			if !logger.Enabled(context.Background(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if logger.Enabled(context.Background(), tt.wantLevel-4) {
				t.Errorf("expected level %v to be disabled", tt.wantLevel-4)
			}
		})
	}
}

func TestSetupLogging_EnvVar(t *testing.T) {
	origVerbosity := verbosity
	defer func() { verbosity = origVerbosity }()

	tests := []struct {
		name      string
		envVal    string
		wantLevel slog.Level
	}{
		{"ORBIT_DEBUG=1", "1", slog.LevelDebug},
		{"ORBIT_DEBUG=true", "true", slog.LevelDebug},
		{"ORBIT_DEBUG=2", "2", logging.LevelTrace},
		{"ORBIT_DEBUG=unknown", "foo", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbosity = 0
			t.Setenv("ORBIT_DEBUG", tt.envVal)

			if err := setupLogging(rootCmd); err != nil {
				t.Fatalf("setupLogging failed: %v", err)
			}

			logger := slog.Default()
			if !logger.Enabled(context.Background(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
		})
	}
}

func TestSetupLogging_FlagPrecedence(t *testing.T) {
	origVerbosity := verbosity
	defer func() { verbosity = origVerbosity }()

	t.Setenv("ORBIT_DEBUG", "2")
	verbosity = 1

	if err := setupLogging(rootCmd); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}

	logger := slog.Default()
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected Debug level to be enabled")
	}
	if logger.Enabled(context.Background(), logging.LevelTrace) {
		t.Error("expected Trace level to be disabled (flag should override env var)")
	}
}

func TestSetupLogging_Quiet(t *testing.T) {
	origQuiet := quiet
	origVerbosity := verbosity
	defer func() {
		quiet = origQuiet
		verbosity = origVerbosity
	}()

	quiet = true
	verbosity = 0

	if err := setupLogging(rootCmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger := slog.Default()
	if !logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected Error level to be enabled")
	}
	if logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected Warn level to be disabled")
	}
}

func TestSetupLogging_QuietMutualExclusion(t *testing.T) {
	origVerbosity := verbosity
	origQuiet := quiet
	defer func() {
		verbosity = origVerbosity
		quiet = origQuiet
	}()

	verbosity = 1
	quiet = true

	if err := setupLogging(rootCmd); err == nil {
		t.Error("expected error when both quiet and verbose are set")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a much longer string", 10, "a much ..."},
		{"abc", 2, "ab"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
