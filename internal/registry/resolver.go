package registry

import (
	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/store"
)

// Resolution actions.
const (
	ActionMerge    = "merge"
	ActionSeparate = "separate"
	ActionSkip     = "skip"
)

// Bulk resolution modes.
const (
	BulkUseClient    = "use_client"
	BulkKeepSeparate = "keep_separate"
	BulkSkipAll      = "skip_all"
)

// Rename maps one client's copy of a conflicted server to a new name.
type Rename struct {
	Client  string `json:"client"`
	NewName string `json:"newName"`
}

// Action says how to resolve one conflict: merge everything onto one
// client's config, keep the copies separate under distinct names, or skip
// the conflict entirely.
type Action struct {
	Type       string             `json:"type"`
	BaseClient string             `json:"baseClient,omitempty"`
	// EditedConfig overrides the base client's config on merge.
	EditedConfig *client.Definition `json:"editedConfig,omitempty"`
	Renames      []Rename           `json:"renames,omitempty"`
}

// Resolution ties an action to a conflict, matched by id first and by
// conflict name as a fallback so resolutions written by hand stay usable
// across rescans (which mint fresh conflict ids).
type Resolution struct {
	ConflictID   string `json:"conflictId,omitempty"`
	ConflictName string `json:"conflictName,omitempty"`
	Action       Action `json:"action"`
}

// clientSuffixes are the short names appended when conflicted servers are
// kept separate.
var clientSuffixes = map[string]string{
	paths.ClientClaudeCode: "claude",
	paths.ClientOpenCode:   "opencode",
	paths.ClientCodex:      "codex",
	paths.ClientGeminiCLI:  "gemini",
}

// ClientSuffix returns the rename suffix for a client.
func ClientSuffix(clientType string) string {
	if s, ok := clientSuffixes[clientType]; ok {
		return s
	}
	return clientType
}

// ClientDisplayName returns the human-facing name of a client.
func ClientDisplayName(clientType string) string {
	switch clientType {
	case paths.ClientClaudeCode:
		return "Claude Code"
	case paths.ClientOpenCode:
		return "OpenCode"
	case paths.ClientCodex:
		return "Codex"
	case paths.ClientGeminiCLI:
		return "Gemini CLI"
	default:
		return clientType
	}
}

// ApplyResolutions expands resolved conflicts back into candidates and
// appends them to the non-conflicting set. Conflicts without a matching
// resolution stay excluded.
func ApplyResolutions(conflicts []Conflict, resolutions []Resolution, nonConflicting []client.Candidate) []client.Candidate {
	result := append([]client.Candidate(nil), nonConflicting...)

	byID := map[string]Action{}
	byName := map[string]Action{}
	for _, r := range resolutions {
		if r.ConflictID != "" {
			byID[r.ConflictID] = r.Action
		}
		if r.ConflictName != "" {
			byName[r.ConflictName] = r.Action
		}
	}

	for _, conflict := range conflicts {
		action, ok := byID[conflict.ID]
		if !ok {
			action, ok = byName[conflict.Name]
		}
		if !ok {
			continue
		}

		switch action.Type {
		case ActionMerge:
			var base *Source
			for i := range conflict.Sources {
				if conflict.Sources[i].Client == action.BaseClient {
					base = &conflict.Sources[i]
					break
				}
			}
			if base == nil {
				continue
			}

			merged := base.Config
			if action.EditedConfig != nil {
				merged = *action.EditedConfig
			}

			// One candidate per original client so every binding
			// survives; identical fingerprints collapse them into a
			// single server during deduplication.
			for _, src := range conflict.Sources {
				result = append(result, client.Candidate{
					Name:       conflict.Name,
					Definition: merged,
					Client:     src.Client,
					Enabled:    store.On,
				})
			}

		case ActionSeparate:
			renames := map[string]string{}
			for _, r := range action.Renames {
				renames[r.Client] = r.NewName
			}
			for _, src := range conflict.Sources {
				newName := renames[src.Client]
				if newName == "" {
					newName = conflict.Name + "-" + ClientSuffix(src.Client)
				}
				result = append(result, client.Candidate{
					Name:       newName,
					Definition: src.Config,
					Client:     src.Client,
					Enabled:    store.On,
				})
			}

		case ActionSkip:
			// Drop every copy.
		}
	}

	return result
}

// BulkResolutions builds one resolution per conflict from a bulk mode.
// For BulkUseClient, baseClient picks the winning config; when empty, each
// conflict's first source wins.
func BulkResolutions(conflicts []Conflict, mode, baseClient string) []Resolution {
	out := make([]Resolution, 0, len(conflicts))

	for _, conflict := range conflicts {
		var action Action

		switch mode {
		case BulkUseClient:
			base := baseClient
			if base == "" && len(conflict.Sources) > 0 {
				base = conflict.Sources[0].Client
			}
			action = Action{Type: ActionMerge, BaseClient: base}

		case BulkKeepSeparate:
			renames := make([]Rename, 0, len(conflict.Sources))
			for _, src := range conflict.Sources {
				renames = append(renames, Rename{
					Client:  src.Client,
					NewName: conflict.Name + "-" + ClientSuffix(src.Client),
				})
			}
			action = Action{Type: ActionSeparate, Renames: renames}

		case BulkSkipAll:
			action = Action{Type: ActionSkip}

		default:
			continue
		}

		out = append(out, Resolution{
			ConflictID:   conflict.ID,
			ConflictName: conflict.Name,
			Action:       action,
		})
	}

	return out
}
