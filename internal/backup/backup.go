// Package backup keeps timestamped copies of client config files so a
// failed apply can be rolled back.
package backup

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thoreinstein/orbit/internal/errors"
	"github.com/thoreinstein/orbit/pkg/fileutil"
)

// Manager creates and restores backups under a single directory.
type Manager struct {
	dir string
}

// NewManager returns a manager rooted at dir, typically paths.BackupDir().
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create copies path into the backup directory under a timestamped name
// and returns the backup's location. The source file must exist.
func (m *Manager) Create(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return "", errors.Wrap(err, "creating backup directory")
	}

	timestamp := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339Nano))
	backupPath := filepath.Join(m.dir, filepath.Base(path)+"."+timestamp+".bak")

	if err := fileutil.AtomicWriteFile(backupPath, content, 0o600); err != nil {
		return "", errors.Wrap(err, "writing backup")
	}
	return backupPath, nil
}

// Restore copies a backup over its original location. The write goes
// through a temp file and rename so a crash cannot leave the original
// half-restored.
func (m *Manager) Restore(backupPath, originalPath string) error {
	content, err := os.ReadFile(backupPath)
	if err != nil {
		return errors.Wrapf(err, "reading backup %s", backupPath)
	}
	if err := os.MkdirAll(filepath.Dir(originalPath), 0o755); err != nil {
		return errors.Wrap(err, "creating target directory")
	}
	return fileutil.AtomicWriteFile(originalPath, content, 0o644)
}

// Prune removes backups older than maxAge and reports how many were
// deleted. A missing backup directory prunes nothing.
func (m *Manager) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "reading backup directory")
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bak") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
