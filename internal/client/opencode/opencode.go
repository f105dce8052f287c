// Package opencode adapts the opencode config dialect: a JSON file at
// ~/.config/opencode/opencode.json whose mcp block distinguishes local
// servers (command as an argv array, environment map) from remote ones
// (url plus headers), each with an inline enabled flag.
package opencode

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/fileutil"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

// Adapter implements client.Adapter for opencode.
type Adapter struct {
	path string
}

var _ client.Adapter = (*Adapter)(nil)

// New returns an opencode adapter, honoring a config path override.
func New(opts client.Options) *Adapter {
	a := &Adapter{path: opts.ConfigPath}
	if a.path == "" {
		a.path = paths.ClientConfigPath(paths.ClientOpenCode)
	}
	return a
}

func (a *Adapter) Type() string { return paths.ClientOpenCode }

func (a *Adapter) Capabilities() client.Capabilities {
	return client.Capabilities{Format: "json", InlineEnable: true}
}

func (a *Adapter) ConfigPath() (string, error) {
	if a.path == "" {
		return "", errors.New("opencode config path unresolved")
	}
	return a.path, nil
}

// argv is a command line that some configs write as a bare string instead
// of an array. It always marshals back as an array.
type argv []string

func (a *argv) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*a = argv{single}
	return nil
}

// entry mirrors one mcp block value. Local entries run Command[0] with the
// remaining elements as arguments.
type entry struct {
	Type        string            `json:"type"`
	Command     argv              `json:"command,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	URL         string            `json:"url,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
}

type schema struct {
	Mcp map[string]entry `json:"mcp"`
	// Some older configs use the mcpServers key instead.
	McpServers map[string]entry `json:"mcpServers"`
}

func (s schema) block() map[string]entry {
	if len(s.Mcp) > 0 {
		return s.Mcp
	}
	return s.McpServers
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

	for name, e := range cfg.block() {
		def, ok := normalize(e)
		if !ok {
			continue
		}
		enabled := store.On
		if e.Enabled != nil && !*e.Enabled {
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

func normalize(e entry) (client.Definition, bool) {
	switch {
	case e.Type == "remote" || e.URL != "":
		return client.Definition{
			Type:    store.TypeHTTP,
			URL:     e.URL,
			Headers: e.Headers,
		}, true
	case e.Type == "local" || len(e.Command) > 0:
		if len(e.Command) == 0 {
			return client.Definition{}, false
		}
		env := e.Environment
		if env == nil {
			env = e.Env
		}
		return client.Definition{
			Type:    store.TypeStdio,
			Command: e.Command[0],
			Args:    e.Command[1:],
			Env:     env,
		}, true
	default:
		return client.Definition{}, false
	}
}

// Compiled is the opencode rendering: the full mcp block.
type Compiled struct {
	Mcp map[string]entry
}

func (Compiled) CompiledFor() string { return paths.ClientOpenCode }

func (a *Adapter) Compile(st client.State) (client.Compiled, error) {
	out := Compiled{Mcp: map[string]entry{}}

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

		enabled := b.Enabled != store.Off
		var e entry
		if srv.Type == store.TypeHTTP {
			e = entry{
				Type:    "remote",
				URL:     srv.URL,
				Headers: srv.Headers,
			}
		} else {
			e = entry{
				Type:        "local",
				Command:     argv(append([]string{srv.Command}, srv.Args...)),
				Environment: srv.Env,
			}
		}
		e.Enabled = &enabled
		out.Mcp[srv.Name] = e
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
	var cfg schema
	if err := jsonedit.Unmarshal(original, &cfg); err != nil {
		original = []byte("{}")
	}

	doc, err := jsonedit.SetKey(original, "mcp", compiled.Mcp)
	if err != nil {
		return errors.Wrap(err, "updating mcp block")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(path, doc, 0o644)
}

func (a *Adapter) IsInstalled() bool {
	return client.Probe(paths.ClientBinary(paths.ClientOpenCode), a.path)
}
