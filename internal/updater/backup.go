package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/camnode/camnode/internal/version"
)

const (
	backupBinaryName = "camnode.backup"
	backupMetaName   = "backup.json"
)

// backupMeta is the sidecar record describing the saved binary.
type backupMeta struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backupStore keeps one copy of the running binary plus a JSON sidecar
// with its version, so a bad release can be reverted in place. Backups
// survive restarts; a new store over the same directory picks up what
// the previous process saved.
type backupStore struct {
	mu     sync.RWMutex
	dir    string
	meta   *backupMeta
	logger *slog.Logger
}

// openBackupStore places the store under the user cache dir,
// ~/.cache/camnode/backup on Linux.
func openBackupStore(logger *slog.Logger) (*backupStore, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locate cache dir: %w", err)
	}
	return newBackupStore(filepath.Join(cache, "camnode", "backup"), logger)
}

func newBackupStore(dir string, logger *slog.Logger) (*backupStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	b := &backupStore{dir: dir, logger: logger}
	b.load()
	return b, nil
}

// load picks up a backup left by an earlier run. A sidecar without its
// binary is ignored.
func (b *backupStore) load() {
	data, err := os.ReadFile(filepath.Join(b.dir, backupMetaName))
	if err != nil {
		return
	}

	var meta backupMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		b.logger.Warn("Unreadable backup sidecar", "error", err)
		return
	}
	if _, err := os.Stat(filepath.Join(b.dir, backupBinaryName)); err != nil {
		b.logger.Warn("Backup sidecar without binary", "dir", b.dir)
		return
	}

	b.mu.Lock()
	b.meta = &meta
	b.mu.Unlock()
	b.logger.Info("Found existing binary backup", "version", meta.Version)
}

// save copies the binary at execPath into the store and records the
// running version in the sidecar.
func (b *backupStore) save(execPath string) error {
	if err := copyFile(filepath.Join(b.dir, backupBinaryName), execPath, 0o755); err != nil {
		return fmt.Errorf("copy binary: %w", err)
	}

	meta := backupMeta{
		Version:   version.Version,
		CreatedAt: time.Now(),
		ExecPath:  execPath,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.dir, backupMetaName), data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}

	b.mu.Lock()
	b.meta = &meta
	b.mu.Unlock()
	b.logger.Info("Backed up current binary", "version", meta.Version)
	return nil
}

// restore copies the saved binary back over the path it came from.
func (b *backupStore) restore() error {
	b.mu.RLock()
	meta := b.meta
	b.mu.RUnlock()
	if meta == nil {
		return fmt.Errorf("no backup saved")
	}

	if err := copyFile(meta.ExecPath, filepath.Join(b.dir, backupBinaryName), 0o755); err != nil {
		return fmt.Errorf("restore binary: %w", err)
	}
	b.logger.Info("Restored binary from backup", "version", meta.Version)
	return nil
}

func (b *backupStore) available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.meta != nil
}

func (b *backupStore) version() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.meta == nil {
		return ""
	}
	return b.meta.Version
}

func copyFile(dst, src string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
