package logging

import "testing"

func TestShouldMask(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"GITHUB_TOKEN", true},
		{"api_key", true},
		{"Authorization", true},
		{"PATH", false},
		{"command", false},
	}
	for _, tt := range tests {
		if got := ShouldMask(tt.key); got != tt.want {
			t.Errorf("ShouldMask(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("abc"); got != "********" {
		t.Errorf("MaskValue(short) = %q", got)
	}
	if got := MaskValue("ghp_abcdef1234"); got != "****1234" {
		t.Errorf("MaskValue(long) = %q", got)
	}
}

func TestContainsTokenPrefix(t *testing.T) {
	if !ContainsTokenPrefix("sk-live-something") {
		t.Error("sk- prefix should be detected")
	}
	if ContainsTokenPrefix("npx") {
		t.Error("plain command should not be detected")
	}
}
