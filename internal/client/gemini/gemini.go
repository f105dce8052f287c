// Package gemini adapts the gemini-cli config dialect: a JSON file at
// ~/.gemini/settings.json with an mcpServers block and an mcp side block
// whose allowed/excluded lists control which servers load.
//
// An allowed list, when present, wins over everything: only listed servers
// are enabled. Otherwise the excluded list disables its members. Compiling
// writes an excluded list only when at least one binding is off; with none,
// the mcp key is removed entirely.
package gemini

import (
	"context"
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

// Adapter implements client.Adapter for gemini-cli.
type Adapter struct {
	path string
}

var _ client.Adapter = (*Adapter)(nil)

// New returns a gemini-cli adapter, honoring a config path override.
func New(opts client.Options) *Adapter {
	a := &Adapter{path: opts.ConfigPath}
	if a.path == "" {
		a.path = paths.ClientConfigPath(paths.ClientGeminiCLI)
	}
	return a
}

func (a *Adapter) Type() string { return paths.ClientGeminiCLI }

func (a *Adapter) Capabilities() client.Capabilities {
	return client.Capabilities{Format: "json", DisableList: true}
}

func (a *Adapter) ConfigPath() (string, error) {
	if a.path == "" {
		return "", errors.New("gemini-cli config path unresolved")
	}
	return a.path, nil
}

// entry mirrors one mcpServers value. Remote entries may use httpUrl or url.
type entry struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	HTTPURL string            `json:"httpUrl,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Enabled *bool             `json:"enabled,omitempty"`
}

type mcpLists struct {
	Allowed  []string `json:"allowed,omitempty"`
	Excluded []string `json:"excluded,omitempty"`
}

type schema struct {
	McpServers map[string]entry `json:"mcpServers"`
	Mcp        *mcpLists        `json:"mcp"`
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

	for name, e := range cfg.McpServers {
		def, ok := normalize(e)
		if !ok {
			continue
		}
		res.Candidates = append(res.Candidates, client.Candidate{
			Name:       name,
			Definition: def,
			Client:     a.Type(),
			Enabled:    effectiveToggle(name, e, cfg.Mcp),
		})
	}

	return res, nil
}

func effectiveToggle(name string, e entry, lists *mcpLists) store.Toggle {
	enabled := e.Enabled == nil || *e.Enabled
	if lists != nil {
		switch {
		case lists.Allowed != nil:
			enabled = slices.Contains(lists.Allowed, name)
		case lists.Excluded != nil:
			if slices.Contains(lists.Excluded, name) {
				enabled = false
			}
		}
	}
	if enabled {
		return store.On
	}
	return store.Off
}

func normalize(e entry) (client.Definition, bool) {
	url := e.HTTPURL
	if url == "" {
		url = e.URL
	}
	switch {
	case url != "":
		return client.Definition{
			Type:    store.TypeHTTP,
			URL:     url,
			Headers: e.Headers,
		}, true
	case e.Command != "":
		return client.Definition{
			Type:    store.TypeStdio,
			Command: e.Command,
			Args:    e.Args,
			Env:     e.Env,
		}, true
	default:
		return client.Definition{}, false
	}
}

// Compiled is the gemini-cli rendering: the mcpServers block plus the names
// to exclude. An empty Excluded list means the mcp key is dropped on apply.
type Compiled struct {
	Servers  map[string]entry
	Excluded []string
}

func (Compiled) CompiledFor() string { return paths.ClientGeminiCLI }

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

		if srv.Type == store.TypeHTTP {
			out.Servers[srv.Name] = entry{
				URL:     srv.URL,
				Headers: srv.Headers,
			}
		} else {
			out.Servers[srv.Name] = entry{
				Command: srv.Command,
				Args:    srv.Args,
				Env:     srv.Env,
			}
		}

		if b.Enabled == store.Off {
			out.Excluded = append(out.Excluded, srv.Name)
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
	var cfg schema
	if err := jsonedit.Unmarshal(original, &cfg); err != nil {
		original = []byte("{}")
	}

	doc, err := jsonedit.SetKey(original, "mcpServers", compiled.Servers)
	if err != nil {
		return errors.Wrap(err, "updating mcpServers")
	}

	if len(compiled.Excluded) > 0 {
		doc, err = jsonedit.SetKey(doc, "mcp", mcpLists{Excluded: compiled.Excluded})
	} else {
		doc, err = jsonedit.RemoveKey(doc, "mcp")
	}
	if err != nil {
		return errors.Wrap(err, "updating mcp lists")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(path, doc, 0o644)
}

func (a *Adapter) IsInstalled() bool {
	return client.Probe(paths.ClientBinary(paths.ClientGeminiCLI), a.path)
}
