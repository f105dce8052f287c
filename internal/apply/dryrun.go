package apply

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/client/codex"
	"github.com/thoreinstein/orbit/internal/errors"
)

// Preview shows what one apply would do to a client config file without
// touching it.
type Preview struct {
	Client string
	Path   string
	// Before is the file's current content, empty when it does not exist.
	Before string
	// After renders the compiled server block that an apply would write.
	After string
}

// DryRun compiles every client's config from the registry and returns a
// preview per client instead of writing anything. Clients that fail to
// compile come back as FileErrors.
func (o *Orchestrator) DryRun(ctx context.Context, clients []string) ([]Preview, []FileError) {
	var previews []Preview
	var fileErrors []FileError

	for _, clientType := range clients {
		if err := ctx.Err(); err != nil {
			fileErrors = append(fileErrors, FileError{Client: clientType, Err: err})
			break
		}

		adapter, err := o.newAdapter(clientType, o.overrides[clientType])
		if err != nil {
			fileErrors = append(fileErrors, FileError{Client: clientType, Err: err})
			continue
		}
		path, err := adapter.ConfigPath()
		if err != nil {
			fileErrors = append(fileErrors, FileError{Client: clientType, Err: err})
			continue
		}

		compiled, err := adapter.Compile(o.clientState(clientType))
		if err != nil {
			fileErrors = append(fileErrors, FileError{
				Client: clientType, Path: path,
				Err: errors.Wrap(err, "compiling config"),
			})
			continue
		}

		after, err := renderCompiled(compiled)
		if err != nil {
			fileErrors = append(fileErrors, FileError{Client: clientType, Path: path, Err: err})
			continue
		}

		before := ""
		if content, err := os.ReadFile(path); err == nil {
			before = string(content)
		}

		previews = append(previews, Preview{
			Client: clientType,
			Path:   path,
			Before: before,
			After:  after,
		})
	}

	return previews, fileErrors
}

// renderCompiled serializes a compiled config the way the target file
// would represent it. Codex configs are TOML, everything else is JSON.
func renderCompiled(compiled client.Compiled) (string, error) {
	if c, ok := compiled.(codex.Compiled); ok {
		doc := map[string]any{"mcp_servers": c.Servers}
		if c.UseRmcp {
			doc["experimental_use_rmcp_client"] = true
		}
		out, err := toml.Marshal(doc)
		if err != nil {
			return "", errors.Wrap(err, "rendering preview")
		}
		return string(out), nil
	}
	out, err := json.MarshalIndent(compiled, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "rendering preview")
	}
	return string(out), nil
}
