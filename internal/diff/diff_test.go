package diff

import (
	"testing"

	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
)

func binding(id, serverID, clientType string, enabled store.Toggle) store.Binding {
	return store.Binding{ID: id, ServerID: serverID, Client: clientType, Enabled: enabled}
}

func TestCalculateEmptyStates(t *testing.T) {
	result := Calculate(State{}, State{})
	if len(result.Entries) != 0 || result.Summary.Total != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}

func TestCalculateAddRemoveModify(t *testing.T) {
	current := State{Bindings: []store.Binding{
		binding("b1", "s1", paths.ClientCodex, store.On),
		binding("b2", "s2", paths.ClientCodex, store.On),
		binding("b3", "s3", paths.ClientGeminiCLI, store.On),
	}}
	desired := State{Bindings: []store.Binding{
		binding("b1", "s1", paths.ClientCodex, store.Off),
		binding("b4", "s4", paths.ClientCodex, store.On),
		binding("b3", "s3", paths.ClientGeminiCLI, store.On),
	}}

	result := Calculate(current, desired)

	if result.Summary.Total != 3 || result.Summary.Added != 1 || result.Summary.Removed != 1 || result.Summary.Modified != 1 {
		t.Fatalf("summary = %+v", result.Summary)
	}

	// gemini-cli has no changes, so only codex appears.
	if len(result.Entries) != 1 || result.Entries[0].Client != paths.ClientCodex {
		t.Fatalf("entries = %+v", result.Entries)
	}

	byID := map[string]Change{}
	for _, ch := range result.Entries[0].Changes {
		byID[ch.BindingID] = ch
	}
	if ch := byID["b2"]; ch.Type != Remove || ch.Before == nil || ch.After != nil {
		t.Errorf("b2 = %+v, want remove with before only", ch)
	}
	if ch := byID["b4"]; ch.Type != Add || ch.After == nil || ch.Before != nil {
		t.Errorf("b4 = %+v, want add with after only", ch)
	}
	ch := byID["b1"]
	if ch.Type != Modify || ch.Before == nil || ch.After == nil {
		t.Fatalf("b1 = %+v, want modify with both sides", ch)
	}
	if ch.Before.Enabled != store.On || ch.After.Enabled != store.Off {
		t.Errorf("b1 before/after = %q/%q", ch.Before.Enabled, ch.After.Enabled)
	}
}

func TestCalculateIdenticalStates(t *testing.T) {
	bindings := []store.Binding{
		binding("b1", "s1", paths.ClientClaudeCode, store.On),
		binding("b2", "s2", paths.ClientOpenCode, store.Off),
	}
	result := Calculate(State{Bindings: bindings}, State{Bindings: bindings})
	if result.Summary.Total != 0 {
		t.Errorf("identical states produced changes: %+v", result)
	}
}

func TestCalculateOrdersClientsDeterministically(t *testing.T) {
	desired := State{Bindings: []store.Binding{
		binding("b2", "s2", paths.ClientOpenCode, store.On),
		binding("b1", "s1", paths.ClientClaudeCode, store.On),
		binding("b3", "s3", paths.ClientCodex, store.On),
	}}

	result := Calculate(State{}, desired)
	got := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		got = append(got, e.Client)
	}
	want := []string{paths.ClientClaudeCode, paths.ClientCodex, paths.ClientOpenCode}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("client order = %v, want %v", got, want)
		}
	}
}
