package gemini

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

func newTestAdapter(t *testing.T, content string) *Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(client.Options{ConfigPath: path})
}

func toggleOf(t *testing.T, res client.DiscoverResult, name string) store.Toggle {
	t.Helper()
	for _, c := range res.Candidates {
		if c.Name == name {
			return c.Enabled
		}
	}
	t.Fatalf("candidate %q not found", name)
	return ""
}

func TestDiscoverHonorsHttpURLAlias(t *testing.T) {
	a := newTestAdapter(t, `{
  "mcpServers": {
    "api": {"httpUrl": "https://api.example.com/mcp", "headers": {"X-Token": "t"}}
  }
}`)

	res, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(res.Candidates))
	}
	c := res.Candidates[0]
	if c.Definition.Type != store.TypeHTTP || c.URL != "https://api.example.com/mcp" {
		t.Errorf("candidate = %+v", c)
	}
}

func TestDiscoverEnabledState(t *testing.T) {
	tests := []struct {
		name  string
		lists string
		want  map[string]store.Toggle
	}{
		{
			name:  "excluded list disables members",
			lists: `"mcp": {"excluded": ["search"]},`,
			want:  map[string]store.Toggle{"search": store.Off, "api": store.On},
		},
		{
			name:  "allowed list wins and disables everything else",
			lists: `"mcp": {"allowed": ["search"], "excluded": ["search"]},`,
			want:  map[string]store.Toggle{"search": store.On, "api": store.Off},
		},
		{
			name:  "no lists",
			lists: ``,
			want:  map[string]store.Toggle{"search": store.On, "api": store.On},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, `{
  `+tt.lists+`
  "mcpServers": {
    "search": {"command": "npx"},
    "api": {"url": "https://x"}
  }
}`)
			res, err := a.Discover(context.Background())
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			for name, want := range tt.want {
				if got := toggleOf(t, res, name); got != want {
					t.Errorf("%s enabled = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestCompileEmitsExcludedOnlyWhenNeeded(t *testing.T) {
	a := newTestAdapter(t, "")

	st := client.State{
		Servers: []store.Server{
			{ID: "s1", Name: "search", Type: store.TypeStdio, Command: "npx"},
			{ID: "s2", Name: "api", Type: store.TypeHTTP, URL: "https://x"},
		},
		Bindings: []store.Binding{
			{ServerID: "s1", Client: a.Type(), Enabled: store.On},
			{ServerID: "s2", Client: a.Type(), Enabled: store.Off},
		},
	}

	c, err := a.Compile(st)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	compiled := c.(Compiled)
	if len(compiled.Excluded) != 1 || compiled.Excluded[0] != "api" {
		t.Errorf("excluded = %v", compiled.Excluded)
	}

	st.Bindings[1].Enabled = store.On
	c, err = a.Compile(st)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.(Compiled).Excluded; len(got) != 0 {
		t.Errorf("excluded = %v, want empty with all bindings on", got)
	}
}

func TestApplyRemovesMcpKeyWhenNothingExcluded(t *testing.T) {
	a := newTestAdapter(t, `{
  "theme": "default",
  "mcp": {"excluded": ["search"]},
  "mcpServers": {"search": {"command": "old"}}
}`)

	c, err := a.Compile(client.State{
		Servers:  []store.Server{{ID: "s1", Name: "search", Type: store.TypeStdio, Command: "npx"}},
		Bindings: []store.Binding{{ServerID: "s1", Client: a.Type(), Enabled: store.On}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Apply(c); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	path, _ := a.ConfigPath()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := jsonedit.Unmarshal(content, &parsed); err != nil {
		t.Fatal(err)
	}
	if _, ok := parsed["mcp"]; ok {
		t.Error("mcp key should be removed when no server is excluded")
	}
	if parsed["theme"] != "default" {
		t.Error("unrelated key was lost")
	}
}

func TestApplyWritesExcludedList(t *testing.T) {
	a := newTestAdapter(t, "")

	c, err := a.Compile(client.State{
		Servers:  []store.Server{{ID: "s1", Name: "search", Type: store.TypeStdio, Command: "npx"}},
		Bindings: []store.Binding{{ServerID: "s1", Client: a.Type(), Enabled: store.Off}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Apply(c); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	path, _ := a.ConfigPath()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg schema
	if err := jsonedit.Unmarshal(content, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Mcp == nil || len(cfg.Mcp.Excluded) != 1 || cfg.Mcp.Excluded[0] != "search" {
		t.Errorf("mcp lists = %+v", cfg.Mcp)
	}
}
