package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/orbit/internal/paths"
)

// Validation errors for configuration fields.
var (
	// ErrUnsupportedVersion indicates the version field is not a known schema version.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidClient indicates an unrecognized client name.
	ErrInvalidClient = errors.New("invalid client")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidRetention indicates a negative backup retention.
	ErrInvalidRetention = errors.New("backup retention_days must be >= 0")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cfg.Version))
	}

	// Validate client override keys and their paths
	for name, override := range cfg.Clients {
		if !paths.ValidClient(name) {
			errs = append(errs, &ClientError{Client: name, Err: ErrInvalidClient})
			continue
		}
		if override.ConfigPath != "" {
			if err := validatePath(override.ConfigPath); err != nil {
				errs = append(errs, &PathError{
					Field: "clients." + name + ".config_path",
					Path:  override.ConfigPath,
					Err:   err,
				})
			}
		}
	}

	if cfg.Backup.RetentionDays < 0 {
		errs = append(errs, ErrInvalidRetention)
	}

	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", cfg.Log.Format))
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	// Check for null bytes which are never valid in paths
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	// Clean the path and check it's not empty after cleaning
	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// ClientError represents an error for a specific client override.
type ClientError struct {
	Client string
	Err    error
}

func (e *ClientError) Error() string {
	return e.Err.Error() + ": " + e.Client
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}
