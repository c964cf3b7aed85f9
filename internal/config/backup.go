package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

const (
	// MaxBackups is the maximum number of config backups to keep
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files
	BackupSuffix = ".bak"

	backupTimeFormat = "20060102-150405.000000"
)

// BackupConfig copies the config file at path to a timestamped backup
// next to it and prunes all but the newest MaxBackups.
// If no config exists, returns empty string and nil error.
func BackupConfig(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to read config for backup", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, time.Now().Format(backupTimeFormat))
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to write config backup", err)
	}

	// Best effort: the backup itself succeeded.
	_ = cleanupOldBackups(path)

	return backupPath, nil
}

// ListBackups returns the backups of the config file at path, newest first.
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	prefix := filepath.Base(path) + BackupSuffix + "."
	var backups []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		backups = append(backups, filepath.Join(dir, entry.Name()))
	}

	// The timestamp suffix sorts chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, keeping the newest.
func cleanupOldBackups(path string) error {
	backups, err := ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}

	var errs []error
	for _, backup := range backups[MaxBackups:] {
		if err := os.Remove(backup); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RestoreConfig replaces the config file at path with backupPath. The
// current config (if any) is backed up first.
func RestoreConfig(path, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return dmerrors.NotFound("config backup", backupPath)
	}

	if _, err := BackupConfig(path); err != nil {
		return fmt.Errorf("failed to backup current config before restore: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dmerrors.New(dmerrors.ErrCodeConfigPermission, "failed to create config directory", err)
	}
	return writeFileAtomic(path, data, 0o600)
}
