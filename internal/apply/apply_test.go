package apply

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thoreinstein/orbit/internal/backup"
	"github.com/thoreinstein/orbit/internal/client"
	"github.com/thoreinstein/orbit/internal/diff"
	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/internal/logging"
	"github.com/thoreinstein/orbit/internal/paths"
	"github.com/thoreinstein/orbit/internal/registry"
	"github.com/thoreinstein/orbit/internal/store"
	"github.com/thoreinstein/orbit/pkg/jsonedit"
)

func openApplyStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatal(err)
	}
	return st
}

// desiredDiff builds a diff treating the store's bindings as entirely new,
// which forces an apply for every bound client.
func desiredDiff(st *store.Store) diff.Result {
	return diff.Calculate(diff.State{}, diff.State{Bindings: st.Bindings()})
}

func TestRunWritesClientFiles(t *testing.T) {
	st := openApplyStore(t)
	log := logging.ForTest(t)
	dir := t.TempDir()

	geminiPath := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(geminiPath, []byte(`{"theme": "dark"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	opencodePath := filepath.Join(dir, "opencode.json")

	overrides := map[string]client.Options{
		paths.ClientGeminiCLI: {ConfigPath: geminiPath},
		paths.ClientOpenCode:  {ConfigPath: opencodePath},
	}

	if _, err := registry.CreateServer(st, log,
		store.Server{Name: "search", Type: store.TypeStdio, Command: "npx", Args: []string{"-y", "search-mcp"}},
		[]string{paths.ClientGeminiCLI, paths.ClientOpenCode}); err != nil {
		t.Fatal(err)
	}

	orch := New(st, log, backup.NewManager(filepath.Join(dir, "backups")), overrides)
	result := orch.Run(context.Background(), desiredDiff(st))

	if !result.Success || len(result.Errors) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(result.FilesChanged) != 2 {
		t.Errorf("files changed = %v, want both clients", result.FilesChanged)
	}
	// Only the pre-existing gemini file had anything to back up.
	if len(result.Backups) != 1 || result.Backups[0].Client != paths.ClientGeminiCLI {
		t.Errorf("backups = %+v", result.Backups)
	}

	content, err := os.ReadFile(geminiPath)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := jsonedit.Unmarshal(content, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["theme"] != "dark" {
		t.Error("apply must preserve unrelated keys")
	}
	servers, _ := parsed["mcpServers"].(map[string]any)
	if _, ok := servers["search"]; !ok {
		t.Errorf("gemini file missing server: %s", content)
	}

	if _, err := os.Stat(opencodePath); err != nil {
		t.Error("opencode file was not created")
	}
}

type fakeCompiled struct{ client string }

func (f fakeCompiled) CompiledFor() string { return f.client }

// failingAdapter compiles fine but refuses to write, to exercise rollback.
type failingAdapter struct {
	clientType string
	path       string
}

func (f *failingAdapter) Type() string                      { return f.clientType }
func (f *failingAdapter) Capabilities() client.Capabilities { return client.Capabilities{Format: "json"} }
func (f *failingAdapter) ConfigPath() (string, error)       { return f.path, nil }
func (f *failingAdapter) IsInstalled() bool                 { return true }
func (f *failingAdapter) Compile(client.State) (client.Compiled, error) {
	return fakeCompiled{f.clientType}, nil
}
func (f *failingAdapter) Apply(client.Compiled) error {
	return errors.New("disk full")
}
func (f *failingAdapter) Discover(context.Context) (client.DiscoverResult, error) {
	return client.DiscoverResult{}, nil
}

func TestRunRollsBackAllFilesOnFailure(t *testing.T) {
	st := openApplyStore(t)
	log := logging.ForTest(t)
	dir := t.TempDir()

	geminiPath := filepath.Join(dir, "settings.json")
	original := `{"theme": "dark"}`
	if err := os.WriteFile(geminiPath, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	opencodePath := filepath.Join(dir, "opencode.json")
	if err := os.WriteFile(opencodePath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	overrides := map[string]client.Options{
		paths.ClientGeminiCLI: {ConfigPath: geminiPath},
		paths.ClientOpenCode:  {ConfigPath: opencodePath},
	}
	if _, err := registry.CreateServer(st, log,
		store.Server{Name: "search", Type: store.TypeStdio, Command: "npx"},
		[]string{paths.ClientGeminiCLI, paths.ClientOpenCode}); err != nil {
		t.Fatal(err)
	}

	orch := New(st, log, backup.NewManager(filepath.Join(dir, "backups")), overrides)
	// gemini-cli sorts before opencode, so it applies first and must be
	// rolled back when opencode fails.
	orch.newAdapter = func(clientType string, opts client.Options) (client.Adapter, error) {
		if clientType == paths.ClientOpenCode {
			return &failingAdapter{clientType: clientType, path: opencodePath}, nil
		}
		return registry.NewAdapter(clientType, opts)
	}

	result := orch.Run(context.Background(), desiredDiff(st))

	if result.Success {
		t.Fatal("run should fail")
	}
	if !result.RolledBack {
		t.Error("expected rollback")
	}
	if len(result.Errors) != 1 || result.Errors[0].Client != paths.ClientOpenCode {
		t.Errorf("errors = %+v", result.Errors)
	}

	content, err := os.ReadFile(geminiPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != original {
		t.Errorf("gemini file not restored: %s", content)
	}
}

func TestRunUnknownClientRecordsError(t *testing.T) {
	st := openApplyStore(t)
	orch := New(st, logging.ForTest(t), backup.NewManager(t.TempDir()), nil)

	d := diff.Result{Entries: []diff.Entry{{Client: "mystery"}}}
	result := orch.Run(context.Background(), d)

	if result.Success || len(result.Errors) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(result.Errors[0].Err, errors.ErrUnknownClient) {
		t.Errorf("err = %v", result.Errors[0].Err)
	}
}

func TestDryRunPreviewsWithoutWriting(t *testing.T) {
	st := openApplyStore(t)
	log := logging.ForTest(t)
	dir := t.TempDir()

	geminiPath := filepath.Join(dir, "settings.json")
	overrides := map[string]client.Options{
		paths.ClientGeminiCLI: {ConfigPath: geminiPath},
	}
	if _, err := registry.CreateServer(st, log,
		store.Server{Name: "docs", Type: store.TypeHTTP, URL: "https://docs.example.com/mcp"},
		[]string{paths.ClientGeminiCLI}); err != nil {
		t.Fatal(err)
	}

	orch := New(st, log, backup.NewManager(filepath.Join(dir, "backups")), overrides)
	previews, fileErrors := orch.DryRun(context.Background(), []string{paths.ClientGeminiCLI})

	if len(fileErrors) != 0 {
		t.Fatalf("errors = %+v", fileErrors)
	}
	if len(previews) != 1 {
		t.Fatalf("previews = %+v", previews)
	}
	p := previews[0]
	if p.Before != "" {
		t.Errorf("before = %q, want empty for a missing file", p.Before)
	}
	if !strings.Contains(p.After, "docs") || !strings.Contains(p.After, "https://docs.example.com/mcp") {
		t.Errorf("after = %q", p.After)
	}

	if _, err := os.Stat(geminiPath); !os.IsNotExist(err) {
		t.Error("dry run must not create the config file")
	}
}

func TestDryRunRendersCodexAsTOML(t *testing.T) {
	st := openApplyStore(t)
	log := logging.ForTest(t)
	dir := t.TempDir()

	overrides := map[string]client.Options{
		paths.ClientCodex: {ConfigPath: filepath.Join(dir, "config.toml")},
	}
	if _, err := registry.CreateServer(st, log,
		store.Server{Name: "search", Type: store.TypeStdio, Command: "npx", Args: []string{"-y"}},
		[]string{paths.ClientCodex}); err != nil {
		t.Fatal(err)
	}

	orch := New(st, log, backup.NewManager(filepath.Join(dir, "backups")), overrides)
	previews, fileErrors := orch.DryRun(context.Background(), []string{paths.ClientCodex})

	if len(fileErrors) != 0 || len(previews) != 1 {
		t.Fatalf("previews = %+v errors = %+v", previews, fileErrors)
	}
	if !strings.Contains(previews[0].After, "command = ") {
		t.Errorf("after should be TOML, got %q", previews[0].After)
	}
}
