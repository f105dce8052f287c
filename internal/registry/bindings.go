package registry

import (
	"fmt"
	"log/slog"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/drift"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/store"
)

// SetBindingEnabled toggles one binding and immediately pushes the change
// out to the affected client's config file.
//
// The registry update is authoritative; a failure to rewrite the client
// file is logged but does not roll the toggle back, since the next apply
// will converge the file anyway.
func SetBindingEnabled(st *store.Store, log *slog.Logger, bindingID string, enabled store.Toggle, overrides map[string]client.Options) error {
	binding, ok := st.BindingByID(bindingID)
	if !ok {
		return errors.Wrapf(errors.ErrBindingNotFound, "%s", bindingID)
	}
	previous := binding.Enabled

	err := st.Transact(func(tx *store.Tx) error {
		return tx.UpdateBindingEnabled(bindingID, enabled)
	})
	if err != nil {
		return err
	}

	if err := applyClient(st, log, binding.Client, overrides); err != nil {
		log.Warn("failed to push binding change to client config",
			"client", binding.Client, "error", err)
	}

	if previous != enabled {
		name := "Unknown"
		if srv, ok := st.ServerByID(binding.ServerID); ok {
			name = srv.Name
		}
		action := store.ActionBindingEnabled
		verb := "Enabled"
		if enabled == store.Off {
			action = store.ActionBindingDisabled
			verb = "Disabled"
		}
		if err := st.LogActivity(action, store.EntityBinding, bindingID, name,
			fmt.Sprintf("%s in %s", verb, binding.Client)); err != nil {
			log.Warn("failed to record activity", "error", err)
		}
	}

	return nil
}

// applyClient recompiles one client's whole config from the registry,
// writes it, and refreshes the drift snapshot.
func applyClient(st *store.Store, log *slog.Logger, clientType string, overrides map[string]client.Options) error {
	adapter, err := NewAdapter(clientType, overrides[clientType])
	if err != nil {
		return err
	}

	state := clientState(st, clientType)
	compiled, err := adapter.Compile(state)
	if err != nil {
		return errors.Wrapf(err, "compiling config for %s", clientType)
	}
	if err := adapter.Apply(compiled); err != nil {
		return errors.Wrapf(err, "applying config for %s", clientType)
	}

	if path, err := adapter.ConfigPath(); err == nil {
		drift.RefreshAfterApply(log, st, clientType, path)
	}
	return nil
}

// clientState assembles the compile input for one client: every server,
// plus the bindings belonging to that client.
func clientState(st *store.Store, clientType string) client.State {
	state := client.State{Servers: st.Servers()}
	for _, b := range st.Bindings() {
		if b.Client == clientType {
			state.Bindings = append(state.Bindings, b)
		}
	}
	return state
}
