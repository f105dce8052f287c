// Package claudecode adapts the claude-code config dialect: a JSONC file at
// ~/.claude.json holding a global mcpServers block plus per-project
// disabledMcpServers lists.
//
// The dialect has no inline enabled flag. A server counts as disabled only
// when every project's disable list names it; with no projects recorded,
// nothing is disabled.
package claudecode

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/fileutil"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

// Adapter implements client.Adapter for claude-code.
type Adapter struct {
	path string
}

var _ client.Adapter = (*Adapter)(nil)

// New returns a claude-code adapter, honoring a config path override.
func New(opts client.Options) *Adapter {
	a := &Adapter{path: opts.ConfigPath}
	if a.path == "" {
		a.path = paths.ClientConfigPath(paths.ClientClaudeCode)
	}
	return a
}

func (a *Adapter) Type() string { return paths.ClientClaudeCode }

func (a *Adapter) Capabilities() client.Capabilities {
	return client.Capabilities{Format: "jsonc", DisableList: true}
}

func (a *Adapter) ConfigPath() (string, error) {
	if a.path == "" {
		return "", errors.New("claude-code config path unresolved")
	}
	return a.path, nil
}

// entry mirrors one mcpServers value. Stdio entries carry command/args/cwd,
// remote entries carry url plus an explicit "http" type marker.
type entry struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty"`
	URL     string            `json:"url,omitempty"`
	Type    string            `json:"type,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

type project struct {
	DisabledMcpServers []string `json:"disabledMcpServers"`
}

type schema struct {
	McpServers map[string]entry                      `json:"mcpServers"`
	Projects   map[string]map[string]json.RawMessage `json:"projects"`
}

func (a *Adapter) Discover(ctx context.Context) (client.DiscoverResult, error) {
	var res client.DiscoverResult

	path, err := a.ConfigPath()
	if err != nil {
		return res, err
	}

	content, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, err
	}

	snap := client.Snapshot{Client: a.Type(), Path: path, Content: content}
	if info, err := os.Stat(path); err == nil {
		snap.MTime = info.ModTime()
	}
	res.Snapshots = append(res.Snapshots, snap)

	var cfg schema
	if err := jsonedit.Unmarshal(content, &cfg); err != nil {
		res.Warnings = append(res.Warnings, errors.Wrapf(err, "parsing %s", path).Error())
		return res, nil
	}

	disabled := disabledEverywhere(cfg.Projects)

	for name, e := range cfg.McpServers {
		def, ok := normalize(e)
		if !ok {
			continue
		}
		enabled := store.On
		if slices.Contains(disabled, name) {
			enabled = store.Off
		}
		res.Candidates = append(res.Candidates, client.Candidate{
			Name:       name,
			Definition: def,
			Client:     a.Type(),
			Enabled:    enabled,
		})
	}

	return res, nil
}

// disabledEverywhere returns the server names present in every project's
// disable list. With zero projects the result is empty.
func disabledEverywhere(projects map[string]map[string]json.RawMessage) []string {
	counts := make(map[string]int)
	for _, p := range projects {
		var list []string
		if raw, ok := p["disabledMcpServers"]; ok {
			_ = json.Unmarshal(raw, &list)
		}
		for _, name := range list {
			counts[name]++
		}
	}

	var out []string
	for name, n := range counts {
		if n >= len(projects) && len(projects) > 0 {
			out = append(out, name)
		}
	}
	return out
}

func normalize(e entry) (client.Definition, bool) {
	switch {
	case e.Command != "":
		return client.Definition{
			Type:    store.TypeStdio,
			Command: e.Command,
			Args:    e.Args,
			Cwd:     e.Cwd,
			Env:     e.Env,
		}, true
	case e.URL != "":
		return client.Definition{
			Type:    store.TypeHTTP,
			URL:     e.URL,
			Headers: e.Headers,
			Env:     e.Env,
		}, true
	default:
		return client.Definition{}, false
	}
}

// Compiled is the claude-code rendering: the full mcpServers block plus the
// names whose per-project disable state must be reconciled.
type Compiled struct {
	Servers map[string]entry
	Disable []string
	Enable  []string
}

func (Compiled) CompiledFor() string { return paths.ClientClaudeCode }

func (a *Adapter) Compile(st client.State) (client.Compiled, error) {
	out := Compiled{Servers: map[string]entry{}}

	byID := make(map[string]store.Server, len(st.Servers))
	for _, srv := range st.Servers {
		byID[srv.ID] = srv
	}

	for _, b := range st.Bindings {
		if b.Client != a.Type() {
			continue
		}
		srv, ok := byID[b.ServerID]
		if !ok {
			continue
		}

		switch srv.Type {
		case store.TypeStdio:
			out.Servers[srv.Name] = entry{
				Command: srv.Command,
				Args:    srv.Args,
				Cwd:     srv.Cwd,
				Env:     srv.Env,
			}
		case store.TypeHTTP:
			out.Servers[srv.Name] = entry{
				URL:     srv.URL,
				Type:    "http",
				Headers: srv.Headers,
				Env:     srv.Env,
			}
		default:
			continue
		}

		if b.Enabled == store.Off {
			out.Disable = append(out.Disable, srv.Name)
		} else {
			out.Enable = append(out.Enable, srv.Name)
		}
	}

	return out, nil
}

func (a *Adapter) Apply(c client.Compiled) error {
	compiled, ok := c.(Compiled)
	if !ok {
		return errors.Newf("compiled config is for client %s, want %s", c.CompiledFor(), a.Type())
	}

	path, err := a.ConfigPath()
	if err != nil {
		return err
	}

	original, err := os.ReadFile(path)
	if err != nil {
		original = []byte("{}")
	}

	// A file the editor cannot parse is treated as empty rather than
	// blocking the apply.
	var cfg schema
	if err := jsonedit.Unmarshal(original, &cfg); err != nil {
		original = []byte("{}")
		cfg = schema{}
	}

	doc, err := jsonedit.SetKey(original, "mcpServers", compiled.Servers)
	if err != nil {
		return errors.Wrap(err, "updating mcpServers")
	}

	projects := reconcileProjects(cfg.Projects, compiled)
	doc, err = jsonedit.SetKey(doc, "projects", projects)
	if err != nil {
		return errors.Wrap(err, "updating projects")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(path, doc, 0o644)
}

// reconcileProjects rewrites each project's disabledMcpServers list: newly
// disabled names are added, re-enabled names removed, and names no longer in
// the server block dropped. Other project fields pass through untouched.
func reconcileProjects(projects map[string]map[string]json.RawMessage, compiled Compiled) map[string]map[string]json.RawMessage {
	out := make(map[string]map[string]json.RawMessage, len(projects))

	for path, fields := range projects {
		var list []string
		if raw, ok := fields["disabledMcpServers"]; ok {
			_ = json.Unmarshal(raw, &list)
		}

		for _, name := range compiled.Disable {
			if !slices.Contains(list, name) {
				list = append(list, name)
			}
		}

		kept := list[:0]
		for _, name := range list {
			if slices.Contains(compiled.Enable, name) {
				continue
			}
			if _, known := compiled.Servers[name]; !known {
				continue
			}
			kept = append(kept, name)
		}
		if kept == nil {
			kept = []string{}
		}

		updated := make(map[string]json.RawMessage, len(fields)+1)
		for k, v := range fields {
			updated[k] = v
		}
		encoded, _ := json.Marshal(kept)
		updated["disabledMcpServers"] = encoded

		out[path] = updated
	}

	return out
}

func (a *Adapter) IsInstalled() bool {
	return client.Probe(paths.ClientBinary(paths.ClientClaudeCode), a.path)
}
