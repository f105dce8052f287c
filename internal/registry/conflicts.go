package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

// Source is one client's version of a conflicted server.
type Source struct {
	Client      string            `json:"client"`
	Config      client.Definition `json:"config"`
	Fingerprint string            `json:"fingerprint"`
}

// Difference records one field whose value diverges across sources.
type Difference struct {
	Field  string        `json:"field"`
	Values []SourceValue `json:"values"`
}

// SourceValue is one source's value for a differing field.
type SourceValue struct {
	Client string `json:"client"`
	Value  any    `json:"value"`
}

// Conflict groups same-named candidates whose definitions diverge.
type Conflict struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Sources     []Source     `json:"sources"`
	Differences []Difference `json:"differences"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Detection splits candidates into conflicts and the rest.
type Detection struct {
	Conflicts      []Conflict
	NonConflicting []client.Candidate
}

// differenceFields is the fixed field order used when reporting
// differences, most distinguishing first.
var differenceFields = []string{"url", "headers", "env", "args", "command", "cwd"}

// DetectConflicts groups candidates by name and flags groups whose members
// have diverging fingerprints. Same-name candidates with identical
// fingerprints are duplicates, not conflicts, and pass through untouched
// for deduplication to collapse.
func DetectConflicts(candidates []client.Candidate) Detection {
	byName := map[string][]client.Candidate{}
	var names []string
	var det Detection

	for _, c := range candidates {
		if c.Name == "" {
			det.NonConflicting = append(det.NonConflicting, c)
			continue
		}
		if _, ok := byName[c.Name]; !ok {
			names = append(names, c.Name)
		}
		byName[c.Name] = append(byName[c.Name], c)
	}

	for _, name := range names {
		group := byName[name]
		if len(group) == 1 {
			det.NonConflicting = append(det.NonConflicting, group[0])
			continue
		}

		distinct := map[string]struct{}{}
		sources := make([]Source, 0, len(group))
		for _, c := range group {
			fp := Fingerprint(c.Definition)
			distinct[fp] = struct{}{}
			sources = append(sources, Source{
				Client:      c.Client,
				Config:      c.Definition,
				Fingerprint: fp,
			})
		}

		if len(distinct) == 1 {
			det.NonConflicting = append(det.NonConflicting, group...)
			continue
		}

		det.Conflicts = append(det.Conflicts, Conflict{
			ID:          uuid.NewString(),
			Name:        name,
			Sources:     sources,
			Differences: calculateDifferences(sources),
			CreatedAt:   time.Now().UTC(),
		})
	}

	return det
}

// calculateDifferences reports, for each field in the fixed order, every
// source's value when the sources disagree on it.
func calculateDifferences(sources []Source) []Difference {
	var out []Difference

	for _, field := range differenceFields {
		values := make([]SourceValue, 0, len(sources))
		distinct := map[string]struct{}{}

		for _, src := range sources {
			v := fieldValue(src.Config, field)
			values = append(values, SourceValue{Client: src.Client, Value: v})

			canonical, err := jsonedit.Canonical(v)
			if err != nil {
				canonical = []byte("null")
			}
			distinct[string(canonical)] = struct{}{}
		}

		if len(distinct) > 1 {
			out = append(out, Difference{Field: field, Values: values})
		}
	}

	return out
}

func fieldValue(d client.Definition, field string) any {
	switch field {
	case "url":
		return nullableString(d.URL)
	case "headers":
		return nullableMap(d.Headers)
	case "env":
		return nullableMap(d.Env)
	case "args":
		return nullableSlice(d.Args)
	case "command":
		return nullableString(d.Command)
	case "cwd":
		return nullableString(d.Cwd)
	default:
		return nil
	}
}
