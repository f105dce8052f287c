// Package drift tracks out-of-band edits to client config files.
//
// Every scan records a hash of each config file's MCP server block. The
// hash covers only that block, so unrelated edits elsewhere in the file
// never count as drift. After orbit itself writes a file, the stored hash
// is refreshed so the detector does not trip on orbit's own changes.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/events"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

// blockKey returns the config key holding the MCP server block for a client.
func blockKey(clientType string) string {
	switch clientType {
	case paths.ClientOpenCode:
		return "mcp"
	case paths.ClientCodex:
		return "mcp_servers"
	default:
		return "mcpServers"
	}
}

// HashMCPBlock hashes the MCP server block of a config file. An unparsable
// file falls back to hashing the whole content, so corruption still
// registers as a change.
func HashMCPBlock(content []byte, clientType string) string {
	var parsed map[string]any
	var err error
	if clientType == paths.ClientCodex {
		err = toml.Unmarshal(content, &parsed)
	} else {
		err = jsonedit.Unmarshal(content, &parsed)
	}
	if err != nil {
		return hashBytes(content)
	}

	block := parsed[blockKey(clientType)]
	if block == nil {
		block = map[string]any{}
	}
	canonical, err := jsonedit.Canonical(block)
	if err != nil {
		return hashBytes(content)
	}
	return hashBytes(canonical)
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Report describes one drifted config file.
type Report struct {
	Client     string
	Path       string
	StoredHash string
	ActualHash string
	// Missing is true when the snapshotted file no longer exists.
	Missing bool
}

// Check compares every stored snapshot against the current file content and
// reports the files whose MCP block changed outside orbit. Drift events are
// published to bus when it is non-nil.
func Check(st *store.Store, bus *events.Bus) []Report {
	var reports []Report

	for _, snap := range st.Snapshots() {
		content, err := os.ReadFile(snap.Path)
		if err != nil {
			if os.IsNotExist(err) {
				reports = append(reports, Report{
					Client:     snap.Client,
					Path:       snap.Path,
					StoredHash: snap.Hash,
					Missing:    true,
				})
			}
			continue
		}

		actual := HashMCPBlock(content, snap.Client)
		if actual == snap.Hash {
			continue
		}
		reports = append(reports, Report{
			Client:     snap.Client,
			Path:       snap.Path,
			StoredHash: snap.Hash,
			ActualHash: actual,
		})
	}

	if bus != nil {
		for _, r := range reports {
			bus.Publish(events.Event{
				Type:    events.Drift,
				Message: "config changed outside orbit",
				Client:  r.Client,
				Path:    r.Path,
			})
		}
	}

	return reports
}

// UpdateSnapshotAfterApply refreshes the stored hash and mtime for a file
// orbit just wrote. Callers treat failures as non-fatal; a stale hash only
// means the next drift check fires once too often.
func UpdateSnapshotAfterApply(st *store.Store, clientType, path string) error {
	if _, ok := st.Snapshot(clientType, path); !ok {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading applied config")
	}

	var mtime time.Time
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime()
	}

	return st.Transact(func(tx *store.Tx) error {
		tx.UpsertSnapshot(store.SourceSnapshot{
			Client:    clientType,
			Path:      path,
			Hash:      HashMCPBlock(content, clientType),
			MTime:     mtime,
			ScannedAt: time.Now().UTC(),
		})
		return nil
	})
}

// RefreshAfterApply is UpdateSnapshotAfterApply with the failure swallowed
// into a log line, for call sites where the apply already succeeded.
func RefreshAfterApply(log *slog.Logger, st *store.Store, clientType, path string) {
	if err := UpdateSnapshotAfterApply(st, clientType, path); err != nil {
		log.Warn("failed to refresh snapshot after apply",
			"client", clientType, "path", path, "error", err)
	}
}
