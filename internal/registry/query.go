package registry

import (
	"encoding/json"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/store"
)

// EffectiveServer is a server together with the enabled binding that makes
// it active for a particular client.
type EffectiveServer struct {
	store.Server
	Binding store.Binding `json:"binding"`
}

// EffectiveConfig returns the servers a client would actually load: those
// with an enabled binding for it.
func EffectiveConfig(st *store.Store, clientType string) []EffectiveServer {
	var out []EffectiveServer
	for _, item := range st.ServersWithBindings() {
		for _, b := range item.Bindings {
			if b.Client == clientType && b.Enabled == store.On {
				out = append(out, EffectiveServer{Server: item.Server, Binding: b})
				break
			}
		}
	}
	return out
}

// PendingConflicts decodes the store's unresolved conflicts back into their
// structured form, newest first.
func PendingConflicts(st *store.Store) ([]Conflict, error) {
	records := st.PendingConflicts()
	out := make([]Conflict, 0, len(records))

	for _, rec := range records {
		c := Conflict{ID: rec.ID, Name: rec.Name, CreatedAt: rec.CreatedAt}
		if len(rec.Sources) > 0 {
			if err := json.Unmarshal(rec.Sources, &c.Sources); err != nil {
				return nil, errors.Wrapf(err, "decoding sources of conflict %s", rec.ID)
			}
		}
		if len(rec.Differences) > 0 {
			if err := json.Unmarshal(rec.Differences, &c.Differences); err != nil {
				return nil, errors.Wrapf(err, "decoding differences of conflict %s", rec.ID)
			}
		}
		out = append(out, c)
	}

	return out, nil
}

// MarkConflictResolved stamps a pending conflict with the action taken.
func MarkConflictResolved(st *store.Store, conflictID string, action Action) error {
	encoded, err := json.Marshal(action)
	if err != nil {
		return errors.Wrap(err, "encoding resolution")
	}
	return st.Transact(func(tx *store.Tx) error {
		if err := tx.MarkConflictResolved(conflictID, encoded); err != nil {
			return errors.Wrapf(errors.ErrConflictNotFound, "%s", conflictID)
		}
		return nil
	})
}
