// Package client defines the adapter contract between the registry and the
// per-client config dialects.
//
// Each supported client (claude-code, opencode, codex, gemini-cli) gets an
// Adapter implementation in a subpackage. Adapters translate between the
// client's own config file and the client-independent server definitions the
// registry stores; the registry never touches client files directly.
package client

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/thoreinstein/orbit/internal/store"
)

// Definition is the client-independent semantic portion of a server: the
// fields that determine identity. Two definitions that differ only in
// display name or tags describe the same server.
type Definition struct {
	Type    store.ServerType  `json:"type"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Runnable reports whether the definition describes something launchable.
// Entries with neither a command nor a URL are dropped during discovery.
func (d Definition) Runnable() bool {
	return d.Command != "" || d.URL != ""
}

// DefinitionOf extracts the semantic fields of a stored server.
func DefinitionOf(srv store.Server) Definition {
	return Definition{
		Type:    srv.Type,
		Command: srv.Command,
		Args:    srv.Args,
		Cwd:     srv.Cwd,
		URL:     srv.URL,
		Headers: srv.Headers,
		Env:     srv.Env,
	}
}

// Candidate is one server definition discovered in a client config file,
// before deduplication.
type Candidate struct {
	Name    string
	Definition
	Client  string
	Enabled store.Toggle
}

// Server converts the candidate into an unstored server record. ID,
// fingerprint and timestamps are left for the registry to assign.
func (c Candidate) Server() store.Server {
	return store.Server{
		Name:    c.Name,
		Type:    c.Definition.Type,
		Command: c.Command,
		Args:    c.Args,
		Cwd:     c.Cwd,
		URL:     c.URL,
		Headers: c.Headers,
		Env:     c.Env,
	}
}

// Snapshot is the raw content of one discovered config file, kept so the
// scanner can hash and persist what was actually read.
type Snapshot struct {
	Client  string
	Path    string
	Content []byte
	MTime   time.Time
}

// DiscoverResult is everything an adapter found in its config files.
// A missing config file yields an empty result, not an error; an unparsable
// file yields a warning plus the file's snapshot, so drift tracking still
// covers it.
type DiscoverResult struct {
	Candidates []Candidate
	Snapshots  []Snapshot
	Warnings   []string
}

// State is the registry view an adapter compiles from: the full server list
// plus the bindings belonging to this adapter's client.
type State struct {
	Servers  []store.Server
	Bindings []store.Binding
}

// Compiled is a client-specific rendering of the registry, produced by
// Compile and consumed by Apply of the same adapter.
type Compiled interface {
	CompiledFor() string
}

// Capabilities describes how a client's dialect expresses things the
// registry cares about.
type Capabilities struct {
	// Format is the config file format: json, jsonc or toml.
	Format string
	// InlineEnable is true when the dialect stores the enabled flag on the
	// server entry itself rather than in a separate disable list.
	InlineEnable bool
	// DisableList is true when disabled servers are tracked in a side list
	// (per-project or global) next to the server block.
	DisableList bool
}

// Adapter translates one client's config dialect.
//
// Apply must merge: it rewrites only the MCP server block (and the dialect's
// disable bookkeeping) and leaves every other part of the file intact,
// comments included where the dialect allows them. A corrupt or missing
// target file is treated as empty rather than failing the apply.
type Adapter interface {
	// Type returns the client identifier, one of the paths.Client constants.
	Type() string

	Capabilities() Capabilities

	// ConfigPath returns the global config file location for this client.
	ConfigPath() (string, error)

	// Discover reads the client's config files and extracts candidates.
	Discover(ctx context.Context) (DiscoverResult, error)

	// Compile renders the registry state into this client's dialect.
	Compile(st State) (Compiled, error)

	// Apply merge-writes a compiled rendering into the config file.
	Apply(c Compiled) error

	// IsInstalled reports whether the client appears present on this
	// machine, by binary lookup or config file existence.
	IsInstalled() bool
}

// Options carries per-adapter overrides, typically from app config.
type Options struct {
	// ConfigPath overrides the client's default global config location.
	ConfigPath string
}

// Probe reports whether a client looks installed: its binary resolves on
// PATH or its config file exists.
func Probe(binary, configPath string) bool {
	if binary != "" {
		if _, err := exec.LookPath(binary); err == nil {
			return true
		}
	}
	if configPath == "" {
		return false
	}
	_, err := os.Stat(configPath)
	return err == nil
}
