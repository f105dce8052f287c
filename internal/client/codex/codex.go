// Package codex adapts the codex config dialect: a TOML file at
// $CODEX_HOME/config.toml (or ~/.codex/config.toml) with an mcp_servers
// table, http_headers for remote servers and an inline enabled flag.
//
// Remote servers require the rmcp client, so compiling any http server also
// sets the top-level experimental_use_rmcp_client flag. The Accept header is
// defaulted to the streamable-HTTP media types when the server does not pin
// its own.
package codex

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/fileutil"
)

// DefaultAccept is the Accept header codex needs for streamable HTTP.
const DefaultAccept = "application/json, text/event-stream"

// Adapter implements client.Adapter for codex.
type Adapter struct {
	path string
}

var _ client.Adapter = (*Adapter)(nil)

// New returns a codex adapter, honoring a config path override.
func New(opts client.Options) *Adapter {
	a := &Adapter{path: opts.ConfigPath}
	if a.path == "" {
		a.path = paths.ClientConfigPath(paths.ClientCodex)
	}
	return a
}

func (a *Adapter) Type() string { return paths.ClientCodex }

func (a *Adapter) Capabilities() client.Capabilities {
	return client.Capabilities{Format: "toml", InlineEnable: true}
}

func (a *Adapter) ConfigPath() (string, error) {
	if a.path == "" {
		return "", errors.New("codex config path unresolved")
	}
	return a.path, nil
}

// entry mirrors one mcp_servers table.
type entry struct {
	Command     string            `toml:"command,omitempty"`
	Args        []string          `toml:"args,omitempty"`
	Cwd         string            `toml:"cwd,omitempty"`
	Env         map[string]string `toml:"env,omitempty"`
	URL         string            `toml:"url,omitempty"`
	HTTPHeaders map[string]string `toml:"http_headers,omitempty"`
	Headers     map[string]string `toml:"headers,omitempty"`
	Enabled     *bool             `toml:"enabled,omitempty"`
}

type schema struct {
	McpServers map[string]entry `toml:"mcp_servers"`
	// Fallback key seen in hand-migrated configs.
	McpServersAlt map[string]entry `toml:"mcpServers"`
}

func (s schema) block() map[string]entry {
	if len(s.McpServers) > 0 {
		return s.McpServers
	}
	return s.McpServersAlt
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
	if err := toml.Unmarshal(content, &cfg); err != nil {
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
	case e.URL != "":
		headers := e.HTTPHeaders
		if len(headers) == 0 {
			headers = e.Headers
		}
		if len(headers) == 0 {
			headers = nil
		}
		return client.Definition{
			Type:    store.TypeHTTP,
			URL:     e.URL,
			Headers: headers,
		}, true
	case e.Command != "":
		return client.Definition{
			Type:    store.TypeStdio,
			Command: e.Command,
			Args:    e.Args,
			Cwd:     e.Cwd,
			Env:     e.Env,
		}, true
	default:
		return client.Definition{}, false
	}
}

// Compiled is the codex rendering: the mcp_servers table plus whether the
// rmcp client flag must be set.
type Compiled struct {
	Servers map[string]entry
	UseRmcp bool
}

func (Compiled) CompiledFor() string { return paths.ClientCodex }

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

		enabled := b.Enabled != store.Off
		var e entry
		if srv.Type == store.TypeHTTP {
			out.UseRmcp = true
			headers := map[string]string{}
			for k, v := range srv.Headers {
				headers[k] = v
			}
			if headers["Accept"] == "" {
				headers["Accept"] = DefaultAccept
			}
			e = entry{URL: srv.URL, HTTPHeaders: headers}
		} else {
			e = entry{
				Command: srv.Command,
				Args:    srv.Args,
				Cwd:     srv.Cwd,
				Env:     srv.Env,
			}
		}
		e.Enabled = &enabled
		out.Servers[srv.Name] = e
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

	// TOML has no partial-edit story, so the whole file is parsed and
	// re-marshaled; unknown tables round-trip through the map.
	original := map[string]any{}
	if content, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(content, &original); err != nil {
			original = map[string]any{}
		}
	}

	original["mcp_servers"] = compiled.Servers
	if compiled.UseRmcp {
		original["experimental_use_rmcp_client"] = true
	}

	doc, err := toml.Marshal(original)
	if err != nil {
		return errors.Wrap(err, "encoding toml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteFile(path, doc, 0o644)
}

func (a *Adapter) IsInstalled() bool {
	return client.Probe(paths.ClientBinary(paths.ClientCodex), a.path)
}
