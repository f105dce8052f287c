// Package apply pushes the registry's desired state out to client config
// files. Each affected file is backed up before it is rewritten, and a
// failed batch rolls every file back so the clients never see a partial
// apply.
package apply

import (
	"context"
	"log/slog"

	"github.com/thoreinstein/orbit/internal/backup"
	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/diff"
	"github.com/thoreinstein/orbit/internal/drift"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/registry"
	"github.com/thoreinstein/orbit/internal/store"
)

// FileError records a failure against one client's config file.
type FileError struct {
	Client string
	Path   string
	Err    error
}

// BackupRecord points at the pre-apply copy of one config file.
type BackupRecord struct {
	Client       string
	OriginalPath string
	BackupPath   string
}

// Result summarizes one apply run.
type Result struct {
	Success      bool
	FilesChanged []string
	Backups      []BackupRecord
	Errors       []FileError
	// RolledBack is true when a failure caused every backed-up file to be
	// restored to its pre-apply content.
	RolledBack bool
}

// Orchestrator rewrites client config files from the registry.
type Orchestrator struct {
	store     *store.Store
	log       *slog.Logger
	backups   *backup.Manager
	overrides map[string]client.Options

	newAdapter func(clientType string, opts client.Options) (client.Adapter, error)
}

// New returns an orchestrator. overrides may carry per-client config path
// replacements and may be nil.
func New(st *store.Store, log *slog.Logger, backups *backup.Manager, overrides map[string]client.Options) *Orchestrator {
	return &Orchestrator{
		store:      st,
		log:        log,
		backups:    backups,
		overrides:  overrides,
		newAdapter: registry.NewAdapter,
	}
}

// Run rewrites the config file of every client named in the diff. Files are
// backed up first; if any client fails, all files written so far are
// restored from their backups so the batch applies all-or-nothing.
func (o *Orchestrator) Run(ctx context.Context, d diff.Result) Result {
	var result Result

	for _, entry := range d.Entries {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, FileError{Client: entry.Client, Err: err})
			break
		}
		o.applyEntry(entry.Client, &result)
	}

	if len(result.Errors) > 0 {
		o.restoreAll(result.Backups)
		result.RolledBack = len(result.Backups) > 0
		return result
	}

	result.Success = true
	return result
}

func (o *Orchestrator) applyEntry(clientType string, result *Result) {
	adapter, err := o.newAdapter(clientType, o.overrides[clientType])
	if err != nil {
		result.Errors = append(result.Errors, FileError{Client: clientType, Err: err})
		return
	}

	path, err := adapter.ConfigPath()
	if err != nil {
		result.Errors = append(result.Errors, FileError{Client: clientType, Err: err})
		return
	}

	compiled, err := adapter.Compile(o.clientState(clientType))
	if err != nil {
		result.Errors = append(result.Errors, FileError{
			Client: clientType, Path: path,
			Err: errors.Wrap(err, "compiling config"),
		})
		return
	}

	// A missing target file has nothing to back up; the adapter will
	// create it and a rollback just cannot restore what never existed.
	backupPath, err := o.backups.Create(path)
	if err != nil {
		o.log.Debug("no backup taken", "client", clientType, "path", path, "error", err)
	} else {
		result.Backups = append(result.Backups, BackupRecord{
			Client:       clientType,
			OriginalPath: path,
			BackupPath:   backupPath,
		})
	}

	if err := adapter.Apply(compiled); err != nil {
		result.Errors = append(result.Errors, FileError{
			Client: clientType, Path: path,
			Err: errors.Wrap(err, "writing config"),
		})
		if backupPath != "" {
			if rerr := o.backups.Restore(backupPath, path); rerr != nil {
				o.log.Error("failed to restore backup",
					"client", clientType, "path", path, "error", rerr)
			}
		}
		return
	}

	result.FilesChanged = append(result.FilesChanged, path)
	drift.RefreshAfterApply(o.log, o.store, clientType, path)
	o.log.Info("applied config", "client", clientType, "path", path)
}

func (o *Orchestrator) restoreAll(backups []BackupRecord) {
	for _, b := range backups {
		if err := o.backups.Restore(b.BackupPath, b.OriginalPath); err != nil {
			o.log.Error("rollback failed",
				"client", b.Client, "path", b.OriginalPath, "error", err)
		}
	}
}

// clientState assembles the compile input for one client: every server in
// the registry plus that client's bindings.
func (o *Orchestrator) clientState(clientType string) client.State {
	state := client.State{Servers: o.store.Servers()}
	for _, b := range o.store.Bindings() {
		if b.Client == clientType {
			state.Bindings = append(state.Bindings, b)
		}
	}
	return state
}
