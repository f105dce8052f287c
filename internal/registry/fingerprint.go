// Package registry implements the reconciliation pipeline: scanning client
// configs, deduplicating candidates by fingerprint, detecting and resolving
// name conflicts, and rebuilding the canonical store.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

// ignoredHeaders are negotiated per request and carry no identity, so they
// never participate in fingerprinting. Compared case-insensitively.
var ignoredHeaders = map[string]struct{}{
	"accept":       {},
	"content-type": {},
	"user-agent":   {},
}

// Fingerprint derives the stable identity hash of a server definition.
//
// The hash covers type, command, args, cwd, url, normalized headers and env,
// rendered as canonical JSON with absent fields encoded as null. Display
// name and tags are deliberately excluded: renaming a server never changes
// which server it is.
func Fingerprint(d client.Definition) string {
	payload := map[string]any{
		"type":    nullableString(string(d.Type)),
		"command": nullableString(d.Command),
		"args":    nullableSlice(d.Args),
		"cwd":     nullableString(d.Cwd),
		"url":     nullableString(d.URL),
		"headers": normalizeHeaders(d.Headers),
		"env":     nullableMap(d.Env),
	}

	canonical, err := jsonedit.Canonical(payload)
	if err != nil {
		// The payload is built from plain strings and maps; Canonical
		// cannot fail on it. Hash the zero document if it somehow does.
		canonical = []byte("{}")
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// FingerprintServer derives the fingerprint of a stored server record.
func FingerprintServer(srv store.Server) string {
	return Fingerprint(client.DefinitionOf(srv))
}

// normalizeHeaders drops ignored headers and collapses empty maps to nil,
// so header sets that differ only in negotiation noise compare equal.
func normalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	filtered := make(map[string]string, len(headers))
	for k, v := range headers {
		if _, skip := ignoredHeaders[strings.ToLower(k)]; skip {
			continue
		}
		filtered[k] = v
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableSlice(s []string) any {
	if s == nil {
		return nil
	}
	return s
}

func nullableMap(m map[string]string) any {
	if m == nil {
		return nil
	}
	return m
}
