// Package jsonedit provides format-preserving partial edits of JSON and
// JSON-with-comments documents.
//
// Several MCP clients keep their server block inside a larger config file
// that users edit by hand and that may contain comments. Rewriting the whole
// document from a parsed value would destroy comments and formatting, so
// edits are expressed as RFC 6902 patches applied through
// github.com/tailscale/hujson, which only touches the targeted paths.
package jsonedit

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/thoreinstein/orbit/internal/errors"
)

// Unmarshal parses a JSON or JWCC (JSON with comments and trailing commas)
// document into v.
func Unmarshal(doc []byte, v any) error {
	std, err := hujson.Standardize(doc)
	if err != nil {
		return errors.Wrap(err, "standardizing jsonc")
	}
	if err := json.Unmarshal(std, v); err != nil {
		return errors.Wrap(err, "unmarshaling json")
	}
	return nil
}

// SetKey replaces (or inserts) a top-level key in doc with value, leaving
// every other byte of the document untouched, comments included.
// An empty or whitespace-only doc is treated as an empty object.
func SetKey(doc []byte, key string, value any) ([]byte, error) {
	root, err := parseOrEmpty(doc)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding value for key %q", key)
	}

	patch, err := json.Marshal([]map[string]json.RawMessage{{
		"op":    json.RawMessage(`"add"`),
		"path":  mustJSON("/" + escapePointer(key)),
		"value": encoded,
	}})
	if err != nil {
		return nil, errors.Wrap(err, "encoding patch")
	}

	if err := root.Patch(patch); err != nil {
		return nil, errors.Wrapf(err, "setting key %q", key)
	}
	return root.Pack(), nil
}

// RemoveKey deletes a top-level key from doc, preserving the rest of the
// document. Removing a key that is not present is a no-op.
func RemoveKey(doc []byte, key string) ([]byte, error) {
	root, err := parseOrEmpty(doc)
	if err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := Unmarshal(root.Pack(), &top); err != nil {
		return nil, err
	}
	if _, ok := top[key]; !ok {
		return root.Pack(), nil
	}

	patch, err := json.Marshal([]map[string]json.RawMessage{{
		"op":   json.RawMessage(`"remove"`),
		"path": mustJSON("/" + escapePointer(key)),
	}})
	if err != nil {
		return nil, errors.Wrap(err, "encoding patch")
	}

	if err := root.Patch(patch); err != nil {
		return nil, errors.Wrapf(err, "removing key %q", key)
	}
	return root.Pack(), nil
}

// Canonical renders v as compact JSON with object keys sorted recursively
// and without HTML escaping. Two values that are structurally equal always
// produce identical bytes, which makes the output suitable for hashing.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encoding value")
	}

	var generic any
	if err := json.Unmarshal(buf.Bytes(), &generic); err != nil {
		return nil, errors.Wrap(err, "normalizing value")
	}

	var out bytes.Buffer
	if err := writeCanonical(&out, generic); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return writeScalar(buf, v)
	}
}

func writeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding scalar")
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func parseOrEmpty(doc []byte) (hujson.Value, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		doc = []byte("{}")
	}
	root, err := hujson.Parse(doc)
	if err != nil {
		return hujson.Value{}, errors.Wrap(err, "parsing jsonc")
	}
	return root, nil
}

// escapePointer escapes a key for use in an RFC 6901 JSON pointer.
func escapePointer(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	return strings.ReplaceAll(key, "/", "~1")
}

func mustJSON(s string) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return b
}
