package registry

import (
	"testing"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/store"
)

func TestFingerprintDeterministic(t *testing.T) {
	d := client.Definition{
		Type:    store.TypeHTTP,
		URL:     "https://api.example.com/mcp",
		Headers: map[string]string{"X-Token": "t", "X-Org": "o"},
		Env:     map[string]string{"B": "2", "A": "1"},
	}
	if Fingerprint(d) != Fingerprint(d) {
		t.Error("fingerprint not deterministic")
	}

	// Map insertion order must not matter.
	e := client.Definition{
		Type:    store.TypeHTTP,
		URL:     "https://api.example.com/mcp",
		Headers: map[string]string{"X-Org": "o", "X-Token": "t"},
		Env:     map[string]string{"A": "1", "B": "2"},
	}
	if Fingerprint(d) != Fingerprint(e) {
		t.Error("map ordering affected the fingerprint")
	}
}

func TestFingerprintExcludesNameAndTags(t *testing.T) {
	a := store.Server{Name: "search", Type: store.TypeStdio, Command: "npx", Tags: []string{"x"}}
	b := store.Server{Name: "renamed", Type: store.TypeStdio, Command: "npx", Tags: []string{"y", "z"}}

	if FingerprintServer(a) != FingerprintServer(b) {
		t.Error("name or tags leaked into the fingerprint")
	}
}

func TestFingerprintArgOrderMatters(t *testing.T) {
	a := client.Definition{Type: store.TypeStdio, Command: "npx", Args: []string{"-y", "pkg"}}
	b := client.Definition{Type: store.TypeStdio, Command: "npx", Args: []string{"pkg", "-y"}}

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("argument order should be significant")
	}
}

func TestFingerprintIgnoredHeaders(t *testing.T) {
	bare := client.Definition{Type: store.TypeHTTP, URL: "https://x"}
	noisy := client.Definition{
		Type: store.TypeHTTP,
		URL:  "https://x",
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
			"User-Agent":   "curl",
		},
	}
	if Fingerprint(bare) != Fingerprint(noisy) {
		t.Error("negotiation headers should not affect identity")
	}

	authed := client.Definition{
		Type:    store.TypeHTTP,
		URL:     "https://x",
		Headers: map[string]string{"Authorization": "Bearer t", "accept": "x"},
	}
	if Fingerprint(bare) == Fingerprint(authed) {
		t.Error("real headers must affect identity")
	}
}

func TestFingerprintDistinguishesTransports(t *testing.T) {
	stdio := client.Definition{Type: store.TypeStdio, Command: "npx"}
	http := client.Definition{Type: store.TypeHTTP, URL: "https://x"}

	if Fingerprint(stdio) == Fingerprint(http) {
		t.Error("different transports fingerprinted identically")
	}
}
