package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// Client identifiers for supported AI coding tools.
const (
	ClientClaudeCode = "claude-code"
	ClientOpenCode   = "opencode"
	ClientCodex      = "codex"
	ClientGeminiCLI  = "gemini-cli"
)

// AppName is used for orbit's own directories under the XDG base dirs.
const AppName = "orbit"

// clientBinaries maps client identifiers to the executable probed by
// installation detection.
var clientBinaries = map[string]string{
	ClientClaudeCode: "claude",
	ClientOpenCode:   "opencode",
	ClientCodex:      "codex",
	ClientGeminiCLI:  "gemini",
}

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory.
// Note: It returns an empty string on error. Use ResolveHome for proper
// error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// DataHome returns the XDG data home directory.
func DataHome() string {
	return xdg.DataHome
}

// DataDir returns orbit's data directory: <DataHome>/orbit/
func DataDir() string {
	return filepath.Join(DataHome(), AppName)
}

// StorePath returns the registry store file path.
// ORBIT_STORE_PATH overrides the default for testing.
func StorePath() string {
	if p := os.Getenv("ORBIT_STORE_PATH"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "registry.json")
}

// BackupDir returns the root directory for config file backups:
// <DataHome>/orbit/backups/
func BackupDir() string {
	return filepath.Join(DataDir(), "backups")
}

// ValidClient returns true if the client identifier is recognized.
func ValidClient(client string) bool {
	_, ok := clientBinaries[client]
	return ok
}

// Clients returns all supported client identifiers in deterministic order.
// This order is also the tie-break order used during deduplication.
func Clients() []string {
	return []string{
		ClientClaudeCode,
		ClientOpenCode,
		ClientCodex,
		ClientGeminiCLI,
	}
}

// ClientBinary returns the executable name probed for a client, or an
// empty string for unknown clients.
func ClientBinary(client string) string {
	return clientBinaries[client]
}

// ClientConfigPath returns the global config file holding a client's MCP
// server block. Returns an empty string for unknown clients.
func ClientConfigPath(client string) string {
	home := Home()
	if home == "" {
		return ""
	}

	switch client {
	case ClientClaudeCode:
		return filepath.Join(home, ".claude.json")
	case ClientOpenCode:
		return filepath.Join(home, ".config", "opencode", "opencode.json")
	case ClientCodex:
		if codexHome := os.Getenv("CODEX_HOME"); codexHome != "" {
			return filepath.Join(codexHome, "config.toml")
		}
		return filepath.Join(home, ".codex", "config.toml")
	case ClientGeminiCLI:
		return filepath.Join(home, ".gemini", "settings.json")
	default:
		return ""
	}
}
