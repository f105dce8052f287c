package store

import (
	"encoding/json"
	"time"
)

// ServerType identifies a server's transport.
type ServerType string

const (
	// TypeStdio indicates a local process spoken to over stdin/stdout.
	TypeStdio ServerType = "stdio"
	// TypeHTTP indicates a remote server spoken to over HTTP.
	TypeHTTP ServerType = "http"
)

// Toggle is the enabled state of a binding, stored as on/off.
type Toggle string

const (
	// On marks a binding enabled.
	On Toggle = "on"
	// Off marks a binding disabled.
	Off Toggle = "off"
)

// Server is a logical MCP server definition.
//
// The zero value of an optional field means "absent": nil slices and maps,
// and empty strings, are omitted when the server is compiled back into a
// client config. The fingerprint is derived from the semantic fields only
// (type, command, args, cwd, url, normalized headers, env); name, tags and
// timestamps never affect it.
type Server struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        ServerType        `json:"type"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Cwd         string            `json:"cwd,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Binding associates a server with one client, carrying the enabled flag.
// At most one binding exists per (server, client) pair.
type Binding struct {
	ID        string    `json:"id"`
	ServerID  string    `json:"serverId"`
	Client    string    `json:"client"`
	Enabled   Toggle    `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ServerWithBindings pairs a server with all of its bindings.
type ServerWithBindings struct {
	Server
	Bindings []Binding `json:"bindings"`
}

// SourceSnapshot records the last-seen state of one client config file.
// The hash covers only the MCP server sub-block of the file, so cosmetic
// changes elsewhere in the file do not register as drift.
// Unique per (client, path).
type SourceSnapshot struct {
	ID        string    `json:"id"`
	Client    string    `json:"client"`
	Path      string    `json:"path"`
	Hash      string    `json:"hash"`
	MTime     time.Time `json:"mtime"`
	ScannedAt time.Time `json:"scannedAt"`
}

// ActivityAction enumerates audit log action kinds.
type ActivityAction string

const (
	ActionServerCreated   ActivityAction = "server_created"
	ActionServerUpdated   ActivityAction = "server_updated"
	ActionServerDeleted   ActivityAction = "server_deleted"
	ActionBindingCreated  ActivityAction = "binding_created"
	ActionBindingDeleted  ActivityAction = "binding_deleted"
	ActionBindingEnabled  ActivityAction = "binding_enabled"
	ActionBindingDisabled ActivityAction = "binding_disabled"
	ActionDriftDetected   ActivityAction = "drift_detected"
	ActionDriftResolved   ActivityAction = "drift_resolved"
	ActionScanCompleted   ActivityAction = "scan_completed"
	ActionCleanup         ActivityAction = "cleanup"
)

// ActivityEntityType enumerates the entity kinds an activity entry refers to.
type ActivityEntityType string

const (
	EntityServer  ActivityEntityType = "server"
	EntityBinding ActivityEntityType = "binding"
	EntityDrift   ActivityEntityType = "drift"
	EntityScan    ActivityEntityType = "scan"
)

// ActivityEntry is an append-only audit record. Immutable once written;
// removed only by the retention sweep.
type ActivityEntry struct {
	ID         string             `json:"id"`
	Action     ActivityAction     `json:"action"`
	EntityType ActivityEntityType `json:"entityType"`
	EntityID   string             `json:"entityId,omitempty"`
	EntityName string             `json:"entityName,omitempty"`
	Details    string             `json:"details,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// PendingConflict is a persisted conflict group awaiting user resolution.
// Sources and Differences carry the registry package's conflict structures
// as opaque JSON; the store does not interpret them.
type PendingConflict struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Sources     json.RawMessage `json:"sources"`
	Differences json.RawMessage `json:"differences"`
	CreatedAt   time.Time       `json:"createdAt"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
	Resolution  json.RawMessage `json:"resolution,omitempty"`
}
