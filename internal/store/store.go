// Package store persists the canonical MCP server registry.
//
// The registry lives in a single JSON state file under orbit's data
// directory. All mutations run through [Store.Transact], which applies the
// changes to a private copy of the state and commits by writing the file
// atomically; a crash mid-transaction leaves the previous state intact.
// The store is the single shared mutable resource of the system and is
// safe for concurrent use within one process. Reads are snapshot reads:
// the registry may change between a read and a subsequent write.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/pkg/fileutil"
)

// Sentinel errors for store constraint violations.
var (
	// ErrDuplicateFingerprint is returned when inserting a server whose
	// fingerprint already exists.
	ErrDuplicateFingerprint = errors.New("server with this fingerprint already exists")

	// ErrDuplicateBinding is returned when inserting a second binding for
	// the same (server, client) pair.
	ErrDuplicateBinding = errors.New("binding for this server and client already exists")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

type state struct {
	Servers    []Server          `json:"servers"`
	Bindings   []Binding         `json:"bindings"`
	Snapshots  []SourceSnapshot  `json:"snapshots"`
	Conflicts  []PendingConflict `json:"pendingConflicts"`
	Activities []ActivityEntry   `json:"activityLog"`
}

func (st *state) clone() (*state, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, errors.Wrap(err, "cloning state")
	}
	var cp state
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, "cloning state")
	}
	return &cp, nil
}

// Store is an explicitly constructed registry handle. Pass it into the
// pipeline components; there is no ambient global instance.
type Store struct {
	mu   sync.Mutex
	path string
	st   *state
}

// Open loads the registry state file at path, creating an empty registry
// (and the parent directory) if the file does not exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating store directory")
	}

	st := &state{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, st); err != nil {
			return nil, errors.Wrapf(err, "parsing store file %s", path)
		}
	case os.IsNotExist(err):
		// fresh registry
	default:
		return nil, errors.Wrap(err, "reading store file")
	}

	return &Store{path: path, st: st}, nil
}

// Close releases the handle. The state file is already durable after every
// transaction, so Close has nothing to flush.
func (s *Store) Close() error {
	return nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Tx exposes the mutating operations of a transaction. All changes become
// visible (and durable) together when the enclosing Transact call returns
// nil, and are discarded entirely otherwise.
type Tx struct {
	st *state
}

// Transact runs fn against a private copy of the registry state and
// atomically commits the result. Transactions are serialized; there is a
// single writer at any time.
func (s *Store) Transact(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.st.clone()
	if err != nil {
		return err
	}

	if err := fn(&Tx{st: cp}); err != nil {
		return err
	}

	if err := fileutil.AtomicWriteJSONWithPerm(s.path, cp, 0o600); err != nil {
		return errors.Wrap(err, "committing transaction")
	}

	s.st = cp
	return nil
}

func newID() string {
	return uuid.NewString()
}

// --- server operations ---

// InsertServer adds a server, assigning an id and timestamps when unset.
// Fails with ErrDuplicateFingerprint if the fingerprint is already present.
func (tx *Tx) InsertServer(srv Server) (string, error) {
	for _, existing := range tx.st.Servers {
		if existing.Fingerprint == srv.Fingerprint {
			return "", errors.Wrapf(ErrDuplicateFingerprint, "%s", srv.Name)
		}
	}

	if srv.ID == "" {
		srv.ID = newID()
	}
	now := time.Now().UTC()
	if srv.CreatedAt.IsZero() {
		srv.CreatedAt = now
	}
	if srv.UpdatedAt.IsZero() {
		srv.UpdatedAt = now
	}

	tx.st.Servers = append(tx.st.Servers, srv)
	return srv.ID, nil
}

// UpdateServer replaces the stored server with the same id. CreatedAt is
// preserved; UpdatedAt is refreshed.
func (tx *Tx) UpdateServer(srv Server) error {
	for i, existing := range tx.st.Servers {
		if existing.ID != srv.ID {
			continue
		}
		for j, other := range tx.st.Servers {
			if j != i && other.Fingerprint == srv.Fingerprint {
				return errors.Wrapf(ErrDuplicateFingerprint, "%s", srv.Name)
			}
		}
		srv.CreatedAt = existing.CreatedAt
		srv.UpdatedAt = time.Now().UTC()
		tx.st.Servers[i] = srv
		return nil
	}
	return errors.Wrapf(ErrNotFound, "server %s", srv.ID)
}

// DeleteServer removes a server and cascades to its bindings.
func (tx *Tx) DeleteServer(id string) {
	servers := tx.st.Servers[:0]
	for _, srv := range tx.st.Servers {
		if srv.ID != id {
			servers = append(servers, srv)
		}
	}
	tx.st.Servers = servers

	bindings := tx.st.Bindings[:0]
	for _, b := range tx.st.Bindings {
		if b.ServerID != id {
			bindings = append(bindings, b)
		}
	}
	tx.st.Bindings = bindings
}

// DeleteOrphanServers removes servers no binding references and reports
// how many were dropped.
func (tx *Tx) DeleteOrphanServers() int {
	referenced := make(map[string]struct{}, len(tx.st.Bindings))
	for _, b := range tx.st.Bindings {
		referenced[b.ServerID] = struct{}{}
	}

	kept := tx.st.Servers[:0]
	dropped := 0
	for _, srv := range tx.st.Servers {
		if _, ok := referenced[srv.ID]; ok {
			kept = append(kept, srv)
		} else {
			dropped++
		}
	}
	tx.st.Servers = kept
	return dropped
}

// --- binding operations ---

// InsertBinding adds a binding, assigning an id and timestamps when unset.
// Fails with ErrDuplicateBinding if the (server, client) pair exists.
func (tx *Tx) InsertBinding(b Binding) (string, error) {
	for _, existing := range tx.st.Bindings {
		if existing.ServerID == b.ServerID && existing.Client == b.Client {
			return "", errors.Wrapf(ErrDuplicateBinding, "server %s client %s", b.ServerID, b.Client)
		}
	}

	if b.ID == "" {
		b.ID = newID()
	}
	if b.Enabled == "" {
		b.Enabled = On
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	tx.st.Bindings = append(tx.st.Bindings, b)
	return b.ID, nil
}

// UpdateBindingEnabled toggles a binding.
func (tx *Tx) UpdateBindingEnabled(id string, enabled Toggle) error {
	for i := range tx.st.Bindings {
		if tx.st.Bindings[i].ID == id {
			tx.st.Bindings[i].Enabled = enabled
			tx.st.Bindings[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "binding %s", id)
}

// DeleteBinding removes a binding by id.
func (tx *Tx) DeleteBinding(id string) {
	bindings := tx.st.Bindings[:0]
	for _, b := range tx.st.Bindings {
		if b.ID != id {
			bindings = append(bindings, b)
		}
	}
	tx.st.Bindings = bindings
}

// --- snapshot operations ---

// UpsertSnapshot inserts or refreshes the snapshot for (client, path) and
// returns its id.
func (tx *Tx) UpsertSnapshot(snap SourceSnapshot) string {
	for i := range tx.st.Snapshots {
		existing := &tx.st.Snapshots[i]
		if existing.Client == snap.Client && existing.Path == snap.Path {
			existing.Hash = snap.Hash
			existing.MTime = snap.MTime
			existing.ScannedAt = snap.ScannedAt
			return existing.ID
		}
	}

	if snap.ID == "" {
		snap.ID = newID()
	}
	tx.st.Snapshots = append(tx.st.Snapshots, snap)
	return snap.ID
}

// --- pending conflict operations ---

// InsertPendingConflict records (or refreshes) a conflict awaiting resolution.
func (tx *Tx) InsertPendingConflict(pc PendingConflict) string {
	for i := range tx.st.Conflicts {
		if tx.st.Conflicts[i].ID == pc.ID {
			tx.st.Conflicts[i].Name = pc.Name
			tx.st.Conflicts[i].Sources = pc.Sources
			tx.st.Conflicts[i].Differences = pc.Differences
			return pc.ID
		}
	}
	if pc.ID == "" {
		pc.ID = newID()
	}
	tx.st.Conflicts = append(tx.st.Conflicts, pc)
	return pc.ID
}

// MarkConflictResolved stamps a pending conflict with its resolution.
func (tx *Tx) MarkConflictResolved(id string, resolution json.RawMessage) error {
	for i := range tx.st.Conflicts {
		if tx.st.Conflicts[i].ID == id {
			now := time.Now().UTC()
			tx.st.Conflicts[i].ResolvedAt = &now
			tx.st.Conflicts[i].Resolution = resolution
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "conflict %s", id)
}

// ClearResolvedConflicts drops conflicts that carry a resolution.
func (tx *Tx) ClearResolvedConflicts() {
	kept := tx.st.Conflicts[:0]
	for _, pc := range tx.st.Conflicts {
		if pc.ResolvedAt == nil {
			kept = append(kept, pc)
		}
	}
	tx.st.Conflicts = kept
}

// --- wipe operations used by rebuild ---

// ClearRegistry removes all servers, bindings, snapshots and pending
// conflicts, leaving the activity log untouched.
func (tx *Tx) ClearRegistry() {
	tx.st.Servers = nil
	tx.st.Bindings = nil
	tx.st.Snapshots = nil
	tx.st.Conflicts = nil
}

// --- activity log operations ---

// AppendActivity adds an audit record.
func (tx *Tx) AppendActivity(entry ActivityEntry) string {
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	tx.st.Activities = append(tx.st.Activities, entry)
	return entry.ID
}

// PruneActivities removes audit records older than cutoff and reports how
// many were removed.
func (tx *Tx) PruneActivities(cutoff time.Time) int {
	kept := tx.st.Activities[:0]
	removed := 0
	for _, entry := range tx.st.Activities {
		if entry.CreatedAt.Before(cutoff) {
			removed++
		} else {
			kept = append(kept, entry)
		}
	}
	tx.st.Activities = kept
	return removed
}

// --- reads (snapshot reads, no lock held by the caller afterwards) ---

// ServerByID returns a server by id.
func (s *Store) ServerByID(id string) (Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, srv := range s.st.Servers {
		if srv.ID == id {
			return srv, true
		}
	}
	return Server{}, false
}

// ServerByFingerprint returns a server by fingerprint.
func (s *Store) ServerByFingerprint(fp string) (Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, srv := range s.st.Servers {
		if srv.Fingerprint == fp {
			return srv, true
		}
	}
	return Server{}, false
}

// ServerByName returns a server by display name.
func (s *Store) ServerByName(name string) (Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, srv := range s.st.Servers {
		if srv.Name == name {
			return srv, true
		}
	}
	return Server{}, false
}

// Servers returns all servers sorted by name.
func (s *Store) Servers() []Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]Server(nil), s.st.Servers...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServersWithBindings returns all servers, each with its bindings, sorted
// by server name.
func (s *Store) ServersWithBindings() []ServerWithBindings {
	servers := s.Servers()
	bindings := s.Bindings()

	byServer := make(map[string][]Binding)
	for _, b := range bindings {
		byServer[b.ServerID] = append(byServer[b.ServerID], b)
	}

	out := make([]ServerWithBindings, 0, len(servers))
	for _, srv := range servers {
		out = append(out, ServerWithBindings{Server: srv, Bindings: byServer[srv.ID]})
	}
	return out
}

// Bindings returns all bindings.
func (s *Store) Bindings() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Binding(nil), s.st.Bindings...)
}

// BindingByID returns a binding by id.
func (s *Store) BindingByID(id string) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.st.Bindings {
		if b.ID == id {
			return b, true
		}
	}
	return Binding{}, false
}

// BindingsByServer returns a server's bindings.
func (s *Store) BindingsByServer(serverID string) []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Binding
	for _, b := range s.st.Bindings {
		if b.ServerID == serverID {
			out = append(out, b)
		}
	}
	return out
}

// BindingByServerAndClient returns the binding for a (server, client) pair.
func (s *Store) BindingByServerAndClient(serverID, client string) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.st.Bindings {
		if b.ServerID == serverID && b.Client == client {
			return b, true
		}
	}
	return Binding{}, false
}

// Snapshot returns the source snapshot for a (client, path) pair.
func (s *Store) Snapshot(client, path string) (SourceSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, snap := range s.st.Snapshots {
		if snap.Client == client && snap.Path == path {
			return snap, true
		}
	}
	return SourceSnapshot{}, false
}

// Snapshots returns all source snapshots.
func (s *Store) Snapshots() []SourceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SourceSnapshot(nil), s.st.Snapshots...)
}

// PendingConflicts returns unresolved conflicts, newest first.
func (s *Store) PendingConflicts() []PendingConflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PendingConflict
	for _, pc := range s.st.Conflicts {
		if pc.ResolvedAt == nil {
			out = append(out, pc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// PendingConflictCount returns the number of unresolved conflicts.
func (s *Store) PendingConflictCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, pc := range s.st.Conflicts {
		if pc.ResolvedAt == nil {
			n++
		}
	}
	return n
}

// RecentActivities returns up to limit audit records, newest first.
func (s *Store) RecentActivities(limit int) []ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]ActivityEntry(nil), s.st.Activities...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// LogActivity appends an audit record in its own transaction. Audit
// failures are reported but callers typically treat them as non-fatal.
func (s *Store) LogActivity(action ActivityAction, entityType ActivityEntityType, entityID, entityName, details string) error {
	return s.Transact(func(tx *Tx) error {
		tx.AppendActivity(ActivityEntry{
			Action:     action,
			EntityType: entityType,
			EntityID:   entityID,
			EntityName: entityName,
			Details:    details,
		})
		return nil
	})
}
