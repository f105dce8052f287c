package opencode

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
	path := filepath.Join(t.TempDir(), "opencode.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(client.Options{ConfigPath: path})
}

func TestDiscoverLocalAndRemote(t *testing.T) {
	a := newTestAdapter(t, `{
  "mcp": {
    "search": {"type": "local", "command": ["npx", "-y", "search-mcp"], "environment": {"KEY": "v"}},
    "api": {"type": "remote", "url": "https://api.example.com/mcp", "headers": {"X-Token": "t"}, "enabled": false}
  }
}`)

	res, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}

	for _, c := range res.Candidates {
		switch c.Name {
		case "search":
			if c.Definition.Type != store.TypeStdio || c.Command != "npx" {
				t.Errorf("search = %+v", c)
			}
			if len(c.Args) != 2 || c.Args[0] != "-y" {
				t.Errorf("args = %v, want remainder of command array", c.Args)
			}
			if c.Env["KEY"] != "v" {
				t.Errorf("env = %v", c.Env)
			}
			if c.Enabled != store.On {
				t.Errorf("search enabled = %q", c.Enabled)
			}
		case "api":
			if c.Definition.Type != store.TypeHTTP || c.URL != "https://api.example.com/mcp" {
				t.Errorf("api = %+v", c)
			}
			if c.Enabled != store.Off {
				t.Errorf("api enabled = %q, want off (inline flag)", c.Enabled)
			}
		default:
			t.Errorf("unexpected candidate %q", c.Name)
		}
	}
}

func TestDiscoverLegacyShapes(t *testing.T) {
	// Older configs use mcpServers, a bare-string command and env.
	a := newTestAdapter(t, `{
  "mcpServers": {
    "search": {"command": "npx", "env": {"KEY": "v"}}
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
	if c.Command != "npx" || len(c.Args) != 0 || c.Env["KEY"] != "v" {
		t.Errorf("candidate = %+v", c)
	}
}

func TestCompileWritesCommandArrayAndInlineEnabled(t *testing.T) {
	a := newTestAdapter(t, "")

	c, err := a.Compile(client.State{
		Servers: []store.Server{
			{ID: "s1", Name: "search", Type: store.TypeStdio, Command: "npx", Args: []string{"-y", "search-mcp"}, Env: map[string]string{"KEY": "v"}},
			{ID: "s2", Name: "api", Type: store.TypeHTTP, URL: "https://api.example.com/mcp"},
		},
		Bindings: []store.Binding{
			{ServerID: "s1", Client: a.Type(), Enabled: store.On},
			{ServerID: "s2", Client: a.Type(), Enabled: store.Off},
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	compiled := c.(Compiled)

	search := compiled.Mcp["search"]
	if search.Type != "local" {
		t.Errorf("search type = %q", search.Type)
	}
	if len(search.Command) != 3 || search.Command[0] != "npx" {
		t.Errorf("command array = %v", search.Command)
	}
	if search.Environment["KEY"] != "v" {
		t.Errorf("environment = %v", search.Environment)
	}
	if search.Enabled == nil || !*search.Enabled {
		t.Error("search should be enabled inline")
	}

	api := compiled.Mcp["api"]
	if api.Type != "remote" || api.URL != "https://api.example.com/mcp" {
		t.Errorf("api = %+v", api)
	}
	if api.Enabled == nil || *api.Enabled {
		t.Error("api should be disabled inline")
	}
}

func TestApplyReplacesOnlyMcpBlock(t *testing.T) {
	a := newTestAdapter(t, `{
  "theme": "tokyonight",
  "mcp": {"stale": {"type": "local", "command": ["old"]}}
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
	if parsed["theme"] != "tokyonight" {
		t.Error("unrelated key was lost")
	}

	var cfg schema
	if err := jsonedit.Unmarshal(content, &cfg); err != nil {
		t.Fatal(err)
	}
	if _, ok := cfg.Mcp["stale"]; ok {
		t.Error("removed server survived the apply")
	}
	if _, ok := cfg.Mcp["search"]; !ok {
		t.Error("new server missing after apply")
	}
}
