package registry

import (
	"testing"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
)

func stdioCandidate(name, clientType string, enabled store.Toggle, args ...string) client.Candidate {
	return client.Candidate{
		Name: name,
		Definition: client.Definition{
			Type:    store.TypeStdio,
			Command: "npx",
			Args:    args,
		},
		Client:  clientType,
		Enabled: enabled,
	}
}

func TestDeduplicateCollapsesIdenticalDefinitions(t *testing.T) {
	candidates := []client.Candidate{
		stdioCandidate("search", paths.ClientClaudeCode, store.On, "-y", "search-mcp"),
		stdioCandidate("search", paths.ClientOpenCode, store.Off, "-y", "search-mcp"),
		stdioCandidate("search", paths.ClientCodex, store.On, "-y", "search-mcp"),
	}

	got := Deduplicate(candidates)
	if len(got) != 1 {
		t.Fatalf("servers = %d, want 1", len(got))
	}
	srv := got[0]
	if srv.Name != "search" || srv.Fingerprint == "" || srv.ID == "" {
		t.Errorf("server = %+v", srv.Server)
	}
	if len(srv.Bindings) != 3 {
		t.Fatalf("bindings = %d, want one per client", len(srv.Bindings))
	}
	for _, b := range srv.Bindings {
		if b.ServerID != srv.ID {
			t.Errorf("binding %s not linked to server", b.Client)
		}
		want := store.On
		if b.Client == paths.ClientOpenCode {
			want = store.Off
		}
		if b.Enabled != want {
			t.Errorf("%s enabled = %q, want %q", b.Client, b.Enabled, want)
		}
	}
}

func TestDeduplicateFirstSightingPerClientWins(t *testing.T) {
	candidates := []client.Candidate{
		stdioCandidate("search", paths.ClientCodex, store.Off),
		stdioCandidate("search", paths.ClientCodex, store.On),
	}

	got := Deduplicate(candidates)
	if len(got) != 1 || len(got[0].Bindings) != 1 {
		t.Fatalf("got %+v, want one server with one binding", got)
	}
	if got[0].Bindings[0].Enabled != store.Off {
		t.Error("second sighting overwrote the first binding")
	}
}

func TestDeduplicateNamePreference(t *testing.T) {
	unnamed := stdioCandidate("", paths.ClientClaudeCode, store.On)
	named := stdioCandidate("search", paths.ClientOpenCode, store.On)

	got := Deduplicate([]client.Candidate{unnamed, named})
	if len(got) != 1 {
		t.Fatalf("servers = %d, want 1", len(got))
	}
	if got[0].Name != "search" {
		t.Errorf("name = %q, want first non-empty name", got[0].Name)
	}

	got = Deduplicate([]client.Candidate{unnamed})
	if got[0].Name != "unnamed" {
		t.Errorf("name = %q, want unnamed fallback", got[0].Name)
	}
}

func TestDeduplicateKeepsDistinctDefinitionsApart(t *testing.T) {
	candidates := []client.Candidate{
		stdioCandidate("search", paths.ClientClaudeCode, store.On, "-y", "search-mcp"),
		stdioCandidate("search", paths.ClientCodex, store.On, "-y", "search-mcp", "--beta"),
	}

	got := Deduplicate(candidates)
	if len(got) != 2 {
		t.Fatalf("servers = %d, want 2", len(got))
	}
	if got[0].Fingerprint >= got[1].Fingerprint {
		t.Error("results not sorted by fingerprint")
	}
}

func TestDeduplicateDeterministic(t *testing.T) {
	candidates := []client.Candidate{
		stdioCandidate("a", paths.ClientClaudeCode, store.On, "one"),
		stdioCandidate("b", paths.ClientOpenCode, store.On, "two"),
		stdioCandidate("c", paths.ClientGeminiCLI, store.On, "three"),
	}

	first := Deduplicate(candidates)
	second := Deduplicate(candidates)
	if len(first) != len(second) {
		t.Fatal("result size changed between runs")
	}
	for i := range first {
		if first[i].Fingerprint != second[i].Fingerprint || first[i].Name != second[i].Name {
			t.Errorf("run mismatch at %d: %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}
