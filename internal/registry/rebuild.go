package registry

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/store"
)

// RebuildOptions steer a registry rebuild.
type RebuildOptions struct {
	// Resolutions answer previously detected conflicts.
	Resolutions []Resolution
	// ForceImportAll imports every raw candidate, bypassing conflict
	// detection entirely.
	ForceImportAll bool
}

// RebuildResult summarizes a rebuild.
type RebuildResult struct {
	ImportedCount         int
	Conflicts             []Conflict
	SkippedDueToConflicts int
	Warnings              []string
}

// Rebuild wipes the registry and reconstructs it from a fresh scan.
//
// Unresolved conflicts are persisted as pending and their candidates
// excluded from the import; the surviving candidates are deduplicated and
// inserted in one transaction, sorted by fingerprint, so two rebuilds over
// the same files produce the same registry.
func Rebuild(ctx context.Context, st *store.Store, log *slog.Logger, adapters []client.Adapter, opts RebuildOptions) (RebuildResult, error) {
	var result RebuildResult

	err := st.Transact(func(tx *store.Tx) error {
		tx.ClearRegistry()
		return nil
	})
	if err != nil {
		return result, errors.Wrap(err, "clearing registry")
	}

	scan, err := Scan(ctx, st, log, adapters)
	if err != nil {
		return result, err
	}
	result.Warnings = scan.Warnings

	detection := DetectConflicts(scan.Candidates)

	toProcess := detection.NonConflicting
	unresolved := detection.Conflicts

	switch {
	case len(opts.Resolutions) > 0:
		toProcess = ApplyResolutions(detection.Conflicts, opts.Resolutions, detection.NonConflicting)

		resolvedIDs := map[string]struct{}{}
		resolvedNames := map[string]struct{}{}
		for _, r := range opts.Resolutions {
			if r.ConflictID != "" {
				resolvedIDs[r.ConflictID] = struct{}{}
			}
			if r.ConflictName != "" {
				resolvedNames[r.ConflictName] = struct{}{}
			}
		}

		unresolved = nil
		for _, c := range detection.Conflicts {
			if _, ok := resolvedIDs[c.ID]; ok {
				continue
			}
			if _, ok := resolvedNames[c.Name]; ok {
				continue
			}
			unresolved = append(unresolved, c)
		}

	case opts.ForceImportAll:
		toProcess = scan.Candidates
		unresolved = nil
	}

	deduped := Deduplicate(toProcess)

	err = st.Transact(func(tx *store.Tx) error {
		for _, c := range unresolved {
			sources, err := json.Marshal(c.Sources)
			if err != nil {
				return errors.Wrap(err, "encoding conflict sources")
			}
			differences, err := json.Marshal(c.Differences)
			if err != nil {
				return errors.Wrap(err, "encoding conflict differences")
			}
			tx.InsertPendingConflict(store.PendingConflict{
				ID:          c.ID,
				Name:        c.Name,
				Sources:     sources,
				Differences: differences,
				CreatedAt:   c.CreatedAt,
			})
		}

		for _, item := range deduped {
			if _, err := tx.InsertServer(item.Server); err != nil {
				return err
			}
			for _, b := range item.Bindings {
				if _, err := tx.InsertBinding(b); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return result, errors.Wrap(err, "importing servers")
	}

	result.ImportedCount = len(deduped)
	result.Conflicts = unresolved
	result.SkippedDueToConflicts = len(unresolved)

	log.Info("registry rebuilt",
		"imported", result.ImportedCount,
		"pendingConflicts", result.SkippedDueToConflicts)

	return result, nil
}
