// Package fsatomic provides the write-temp + fsync + rename helper used
// throughout the organize pipeline: NFO sidecars, plan and rollback
// documents, and the central index all go through this path so a crash
// mid-write never leaves a half-written file in place.
package fsatomic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFile atomically writes data to path: temp file in the same
// directory, fsync, then rename over the destination.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write pending file %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// WriteStream atomically writes r's contents to path: temp file in the
// same directory, fsync, then rename over the destination. Used for
// large media files where buffering the whole move in memory would be
// wasteful.
func WriteStream(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, r); err != nil {
		return fmt.Errorf("stream to pending file %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// WriteFileNoOverwrite atomically writes data to path but fails if path
// already exists, matching the WriteFile/Download operation contract
// ("refuses to overwrite").
func WriteFileNoOverwrite(path string, data []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing file %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return WriteFile(path, data, perm)
}

// ReplaceWithBackup atomically replaces path with data, first copying
// the prior contents (if any) to path+".backup". Used by the central
// index update algorithm.
func ReplaceWithBackup(path string, data []byte, perm os.FileMode) error {
	if existing, err := os.ReadFile(path); err == nil {
		if err := WriteFile(path+".backup", existing, perm); err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read existing %s: %w", path, err)
	}
	return WriteFile(path, data, perm)
}
