package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidClient(t *testing.T) {
	tests := []struct {
		client string
		want   bool
	}{
		{ClientClaudeCode, true},
		{ClientOpenCode, true},
		{ClientCodex, true},
		{ClientGeminiCLI, true},
		{"cursor", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			if got := ValidClient(tt.client); got != tt.want {
				t.Errorf("ValidClient(%q) = %v, want %v", tt.client, got, tt.want)
			}
		})
	}
}

func TestClientsOrder(t *testing.T) {
	want := []string{ClientClaudeCode, ClientOpenCode, ClientCodex, ClientGeminiCLI}
	got := Clients()
	if len(got) != len(want) {
		t.Fatalf("Clients() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Clients()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClientConfigPath(t *testing.T) {
	tests := []struct {
		client string
		suffix string
	}{
		{ClientClaudeCode, ".claude.json"},
		{ClientOpenCode, filepath.Join(".config", "opencode", "opencode.json")},
		{ClientGeminiCLI, filepath.Join(".gemini", "settings.json")},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			got := ClientConfigPath(tt.client)
			if got == "" {
				t.Fatal("ClientConfigPath returned empty path")
			}
			if !strings.HasSuffix(got, tt.suffix) {
				t.Errorf("ClientConfigPath(%q) = %q, want suffix %q", tt.client, got, tt.suffix)
			}
		})
	}

	if got := ClientConfigPath("unknown"); got != "" {
		t.Errorf("ClientConfigPath(unknown) = %q, want empty", got)
	}
}

func TestClientConfigPathCodexHome(t *testing.T) {
	t.Setenv("CODEX_HOME", "/tmp/codex-home")
	want := filepath.Join("/tmp/codex-home", "config.toml")
	if got := ClientConfigPath(ClientCodex); got != want {
		t.Errorf("ClientConfigPath(codex) = %q, want %q", got, want)
	}
}

func TestStorePathOverride(t *testing.T) {
	t.Setenv("ORBIT_STORE_PATH", "/tmp/registry-test.json")
	if got := StorePath(); got != "/tmp/registry-test.json" {
		t.Errorf("StorePath() = %q, want override", got)
	}
}
