package registry

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
)

// Deduplicate groups candidates by fingerprint and collapses each group
// into one server with one binding per distinct client.
//
// The first candidate of a group supplies the base config, the first
// non-empty name wins (falling back to "unnamed"), and repeated sightings
// from the same client keep the first binding's enabled state. Results come
// back sorted by fingerprint so rebuilds are deterministic.
func Deduplicate(candidates []client.Candidate) []store.ServerWithBindings {
	type group struct {
		fingerprint string
		members     []client.Candidate
	}

	byFingerprint := map[string]*group{}
	var order []*group

	for _, c := range candidates {
		fp := Fingerprint(c.Definition)
		g, ok := byFingerprint[fp]
		if !ok {
			g = &group{fingerprint: fp}
			byFingerprint[fp] = g
			order = append(order, g)
		}
		g.members = append(g.members, c)
	}

	now := time.Now().UTC()
	results := make([]store.ServerWithBindings, 0, len(order))

	for _, g := range order {
		base := g.members[0]

		name := "unnamed"
		for _, c := range g.members {
			if c.Name != "" {
				name = c.Name
				break
			}
		}

		srv := base.Server()
		srv.ID = uuid.NewString()
		srv.Name = name
		srv.Fingerprint = g.fingerprint
		srv.CreatedAt = now
		srv.UpdatedAt = now
		if srv.Type == "" {
			srv.Type = store.TypeStdio
		}

		seen := map[string]store.Binding{}
		for _, c := range g.members {
			clientType := c.Client
			if clientType == "" {
				clientType = "unknown"
			}
			if _, dup := seen[clientType]; dup {
				continue
			}
			enabled := c.Enabled
			if enabled == "" {
				enabled = store.On
			}
			seen[clientType] = store.Binding{
				ID:        uuid.NewString(),
				ServerID:  srv.ID,
				Client:    clientType,
				Enabled:   enabled,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}

		bindings := make([]store.Binding, 0, len(seen))
		for _, clientType := range paths.Clients() {
			if b, ok := seen[clientType]; ok {
				bindings = append(bindings, b)
				delete(seen, clientType)
			}
		}
		for _, b := range seen {
			bindings = append(bindings, b)
		}

		results = append(results, store.ServerWithBindings{Server: srv, Bindings: bindings})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Fingerprint < results[j].Fingerprint
	})
	return results
}
