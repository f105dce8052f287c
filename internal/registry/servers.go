package registry

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/store"
)

// ValidateServer checks that a server record is complete enough to manage.
// The returned error names the offending field.
func ValidateServer(srv store.Server) error {
	if srv.Name == "" {
		return errors.ErrMissingName
	}

	switch srv.Type {
	case store.TypeStdio:
		if srv.Command == "" {
			return errors.Wrap(errors.ErrInvalidServer, "stdio server requires a command")
		}
	case store.TypeHTTP:
		if srv.URL == "" {
			return errors.Wrap(errors.ErrInvalidServer, "http server requires a url")
		}
		parsed, err := url.Parse(srv.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return errors.Wrapf(errors.ErrInvalidServer, "url %q is not absolute", srv.URL)
		}
	default:
		return errors.Wrapf(errors.ErrInvalidServer, "unknown type %q", srv.Type)
	}

	return nil
}

// CreateServer validates, fingerprints and stores a new server, optionally
// with initial bindings for the given clients.
func CreateServer(st *store.Store, log *slog.Logger, srv store.Server, clients []string) (store.Server, error) {
	if err := ValidateServer(srv); err != nil {
		return store.Server{}, err
	}
	srv.Fingerprint = FingerprintServer(srv)

	err := st.Transact(func(tx *store.Tx) error {
		id, err := tx.InsertServer(srv)
		if err != nil {
			return err
		}
		srv.ID = id
		for _, clientType := range clients {
			if _, err := tx.InsertBinding(store.Binding{ServerID: id, Client: clientType, Enabled: store.On}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.Server{}, err
	}

	created, _ := st.ServerByID(srv.ID)
	logActivity(st, log, store.ActionServerCreated, store.EntityServer, created.ID, created.Name, "")
	return created, nil
}

// UpdateServer validates an edited server and stores it with a recomputed
// fingerprint. Identity follows the semantic fields, so editing them moves
// the server to a new fingerprint while keeping its id and bindings.
func UpdateServer(st *store.Store, log *slog.Logger, srv store.Server) (store.Server, error) {
	if _, ok := st.ServerByID(srv.ID); !ok {
		return store.Server{}, errors.Wrapf(errors.ErrServerNotFound, "%s", srv.ID)
	}
	if err := ValidateServer(srv); err != nil {
		return store.Server{}, err
	}
	srv.Fingerprint = FingerprintServer(srv)

	err := st.Transact(func(tx *store.Tx) error {
		return tx.UpdateServer(srv)
	})
	if err != nil {
		return store.Server{}, err
	}

	updated, _ := st.ServerByID(srv.ID)
	logActivity(st, log, store.ActionServerUpdated, store.EntityServer, updated.ID, updated.Name, "")
	return updated, nil
}

// DeleteServer removes a server and its bindings.
func DeleteServer(st *store.Store, log *slog.Logger, id string) error {
	srv, ok := st.ServerByID(id)
	if !ok {
		return errors.Wrapf(errors.ErrServerNotFound, "%s", id)
	}

	err := st.Transact(func(tx *store.Tx) error {
		tx.DeleteServer(id)
		return nil
	})
	if err != nil {
		return err
	}

	logActivity(st, log, store.ActionServerDeleted, store.EntityServer, id, srv.Name, "")
	return nil
}

// CreateBinding attaches a server to a client.
func CreateBinding(st *store.Store, log *slog.Logger, serverID, clientType string) (store.Binding, error) {
	srv, ok := st.ServerByID(serverID)
	if !ok {
		return store.Binding{}, errors.Wrapf(errors.ErrServerNotFound, "%s", serverID)
	}

	var id string
	err := st.Transact(func(tx *store.Tx) error {
		var err error
		id, err = tx.InsertBinding(store.Binding{ServerID: serverID, Client: clientType, Enabled: store.On})
		return err
	})
	if err != nil {
		return store.Binding{}, err
	}

	logActivity(st, log, store.ActionBindingCreated, store.EntityBinding, id, srv.Name,
		fmt.Sprintf("Bound to %s", clientType))
	b, _ := st.BindingByID(id)
	return b, nil
}

// DeleteBinding detaches a server from a client.
func DeleteBinding(st *store.Store, log *slog.Logger, bindingID string) error {
	binding, ok := st.BindingByID(bindingID)
	if !ok {
		return errors.Wrapf(errors.ErrBindingNotFound, "%s", bindingID)
	}

	name := ""
	if srv, ok := st.ServerByID(binding.ServerID); ok {
		name = srv.Name
	}

	err := st.Transact(func(tx *store.Tx) error {
		tx.DeleteBinding(bindingID)
		return nil
	})
	if err != nil {
		return err
	}

	logActivity(st, log, store.ActionBindingDeleted, store.EntityBinding, bindingID, name,
		fmt.Sprintf("Unbound from %s", binding.Client))
	return nil
}

// CleanupOrphans deletes servers that no binding references and reports how
// many were removed.
func CleanupOrphans(st *store.Store, log *slog.Logger) (int, error) {
	var removed int
	err := st.Transact(func(tx *store.Tx) error {
		removed = tx.DeleteOrphanServers()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logActivity(st, log, store.ActionCleanup, store.EntityServer, "", "",
			fmt.Sprintf("Removed %d orphaned servers", removed))
	}
	return removed, nil
}

// logActivity records an audit entry, downgrading failures to a warning.
func logActivity(st *store.Store, log *slog.Logger, action store.ActivityAction, entity store.ActivityEntityType, id, name, details string) {
	if err := st.LogActivity(action, entity, id, name, details); err != nil {
		log.Warn("failed to record activity", "action", action, "error", err)
	}
}
