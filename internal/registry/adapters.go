package registry

import (
	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/client/claudecode"
	"github.com/thoreinstein/orbit/internal/client/codex"
	"github.com/thoreinstein/orbit/internal/client/gemini"
	"github.com/thoreinstein/orbit/internal/client/opencode"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/paths"
)

var adapterFactories = map[string]func(client.Options) client.Adapter{
	paths.ClientClaudeCode: func(o client.Options) client.Adapter { return claudecode.New(o) },
	paths.ClientOpenCode:   func(o client.Options) client.Adapter { return opencode.New(o) },
	paths.ClientCodex:      func(o client.Options) client.Adapter { return codex.New(o) },
	paths.ClientGeminiCLI:  func(o client.Options) client.Adapter { return gemini.New(o) },
}

// NewAdapter returns the adapter for one client type.
func NewAdapter(clientType string, opts client.Options) (client.Adapter, error) {
	factory, ok := adapterFactories[clientType]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownClient, "%s", clientType)
	}
	return factory(opts), nil
}

// Adapters returns one adapter per supported client, in the deterministic
// paths.Clients order. overrides maps client type to per-adapter options.
func Adapters(overrides map[string]client.Options) []client.Adapter {
	out := make([]client.Adapter, 0, len(adapterFactories))
	for _, clientType := range paths.Clients() {
		out = append(out, adapterFactories[clientType](overrides[clientType]))
	}
	return out
}
