// Package diff computes binding-level differences between two registry
// states, grouped by client. The apply orchestrator consumes the result to
// decide which client files need rewriting.
package diff

import (
	"sort"

	"github.com/thoreinstein/orbit/internal/store"
)

// ChangeType classifies one binding change.
type ChangeType string

const (
	Add    ChangeType = "add"
	Remove ChangeType = "remove"
	Modify ChangeType = "modify"
)

// Change is one binding-level difference. Before and After carry the
// binding as it exists in the current and desired state respectively.
type Change struct {
	Type      ChangeType
	ServerID  string
	BindingID string
	Before    *store.Binding
	After     *store.Binding
}

// Entry collects the changes affecting one client.
type Entry struct {
	Client  string
	Changes []Change
}

// Summary counts changes by kind.
type Summary struct {
	Total    int
	Added    int
	Removed  int
	Modified int
}

// Result is a full diff.
type Result struct {
	Entries []Entry
	Summary Summary
}

// State is one side of a comparison.
type State struct {
	Servers  []store.Server
	Bindings []store.Binding
}

// Calculate diffs bindings by id within each client: present only in
// desired is an add, present only in current is a remove, and present in
// both with a different enabled flag is a modify. Entries come back in
// sorted client order.
func Calculate(current, desired State) Result {
	currentByClient := groupByClient(current.Bindings)
	desiredByClient := groupByClient(desired.Bindings)

	clients := map[string]struct{}{}
	for c := range currentByClient {
		clients[c] = struct{}{}
	}
	for c := range desiredByClient {
		clients[c] = struct{}{}
	}
	ordered := make([]string, 0, len(clients))
	for c := range clients {
		ordered = append(ordered, c)
	}
	sort.Strings(ordered)

	var result Result
	for _, clientType := range ordered {
		changes := bindingChanges(currentByClient[clientType], desiredByClient[clientType])
		if len(changes) == 0 {
			continue
		}

		result.Entries = append(result.Entries, Entry{Client: clientType, Changes: changes})
		for _, ch := range changes {
			result.Summary.Total++
			switch ch.Type {
			case Add:
				result.Summary.Added++
			case Remove:
				result.Summary.Removed++
			case Modify:
				result.Summary.Modified++
			}
		}
	}

	return result
}

func groupByClient(bindings []store.Binding) map[string][]store.Binding {
	out := map[string][]store.Binding{}
	for _, b := range bindings {
		out[b.Client] = append(out[b.Client], b)
	}
	return out
}

func bindingChanges(current, desired []store.Binding) []Change {
	currentByID := make(map[string]store.Binding, len(current))
	for _, b := range current {
		currentByID[b.ID] = b
	}
	desiredByID := make(map[string]store.Binding, len(desired))
	for _, b := range desired {
		desiredByID[b.ID] = b
	}

	var changes []Change

	for _, b := range current {
		if _, ok := desiredByID[b.ID]; !ok {
			before := b
			changes = append(changes, Change{
				Type:      Remove,
				ServerID:  b.ServerID,
				BindingID: b.ID,
				Before:    &before,
			})
		}
	}

	for _, b := range desired {
		existing, ok := currentByID[b.ID]
		if !ok {
			after := b
			changes = append(changes, Change{
				Type:      Add,
				ServerID:  b.ServerID,
				BindingID: b.ID,
				After:     &after,
			})
			continue
		}
		if existing.Enabled != b.Enabled {
			before, after := existing, b
			changes = append(changes, Change{
				Type:      Modify,
				ServerID:  b.ServerID,
				BindingID: b.ID,
				Before:    &before,
				After:     &after,
			})
		}
	}

	return changes
}
