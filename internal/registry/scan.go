package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/drift"
	"github.com/thoreinstein/orbit/internal/store"
)

// ScanResult aggregates everything discovered across all clients.
type ScanResult struct {
	Candidates []client.Candidate
	Snapshots  []store.SourceSnapshot
	Warnings   []string
}

// Scan discovers server candidates across every client and persists a
// source snapshot per discovered config file.
//
// One broken adapter never aborts the scan: its failure becomes a warning
// and the remaining clients are still scanned. Snapshot hashes cover only
// each file's MCP block.
func Scan(ctx context.Context, st *store.Store, log *slog.Logger, adapters []client.Adapter) (ScanResult, error) {
	var result ScanResult

	for _, a := range adapters {
		res, err := a.Discover(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Adapter %s failed: %v", a.Type(), err))
			continue
		}
		result.Warnings = append(result.Warnings, res.Warnings...)
		result.Candidates = append(result.Candidates, res.Candidates...)

		for _, snap := range res.Snapshots {
			content := snap.Content
			// Re-read so the hash reflects the file as it is now, not as
			// it was when the adapter parsed it.
			if current, err := os.ReadFile(snap.Path); err == nil {
				content = current
			}

			record := store.SourceSnapshot{
				Client:    snap.Client,
				Path:      snap.Path,
				Hash:      drift.HashMCPBlock(content, snap.Client),
				MTime:     snap.MTime,
				ScannedAt: time.Now().UTC(),
			}

			err := st.Transact(func(tx *store.Tx) error {
				record.ID = tx.UpsertSnapshot(record)
				return nil
			})
			if err != nil {
				return result, err
			}
			result.Snapshots = append(result.Snapshots, record)
		}
	}

	for _, w := range result.Warnings {
		log.Warn("scan warning", "warning", w)
	}
	log.Debug("scan finished",
		"candidates", len(result.Candidates),
		"snapshots", len(result.Snapshots),
		"warnings", len(result.Warnings))

	return result, nil
}
