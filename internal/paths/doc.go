// Package paths provides cross-platform path resolution for the orbit CLI
// and for the configuration files of the supported MCP clients.
//
// This package abstracts the differences between operating systems and AI
// coding-tool clients (Claude Code, OpenCode, Codex, Gemini CLI) for
// consistent path resolution across all environments.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// Specification compliance. On Linux and macOS, orbit's own files follow XDG
// conventions (~/.config, ~/.local/share, ~/.cache).
//
// # Client Constants
//
// Use the provided client constants when calling client-specific functions:
//
//	paths.ClientConfigPath(paths.ClientClaudeCode) // ~/.claude.json
//	paths.ClientConfigPath(paths.ClientCodex)      // ~/.codex/config.toml
//
// # Client Configuration Files
//
// Each client keeps its MCP server block inside a different global file:
//
//	| Client      | Config file                       | Format |
//	|-------------|-----------------------------------|--------|
//	| claude-code | ~/.claude.json                    | jsonc  |
//	| opencode    | ~/.config/opencode/opencode.json  | json   |
//	| codex       | ~/.codex/config.toml              | toml   |
//	| gemini-cli  | ~/.gemini/settings.json           | jsonc  |
//
// Codex honors the CODEX_HOME environment variable.
//
// # Error Handling
//
// Functions that accept a client parameter return empty strings for unknown
// clients. Use [ValidClient] to check validity before calling:
//
//	if !paths.ValidClient(client) {
//	    return errors.Wrapf(orbiterrors.ErrUnknownClient, "%s", client)
//	}
package paths
