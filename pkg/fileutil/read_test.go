package fileutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileWithLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.json")

	want := []byte(`{"mcpServers":{}}`)
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFileWithLimit(path)
	if err != nil {
		t.Fatalf("ReadFileWithLimit: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestReadFileWithLimitMissing(t *testing.T) {
	if _, err := ReadFileWithLimit(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadFileWithLimitTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")

	if err := os.WriteFile(path, make([]byte, MaxFileSize+1), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadFileWithLimit(path); err == nil {
		t.Error("expected ErrFileTooLarge")
	}
}
