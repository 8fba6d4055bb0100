package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sherifkozman/red-council/internal/types"
)

// FileStore implements Store with one file per key under a base directory.
// Writes are atomic: the value is written to a temp file in the same
// directory and renamed over the destination, so readers never observe a
// partially written value even across a crash.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, types.NewError(types.STORAGE_OPEN_FAILED, "storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.WrapError(types.STORAGE_OPEN_FAILED, "failed to create storage directory", err)
	}
	return &FileStore{dir: dir}, nil
}

// GetItem returns the value for key, or nil if no file exists for it.
func (s *FileStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.WrapError(types.STORAGE_READ_FAILED, fmt.Sprintf("failed to read %q", key), err)
	}
	return data, nil
}

// SetItem writes value under key using a temp-file-then-rename sequence.
func (s *FileStore) SetItem(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".write-*")
	if err != nil {
		return types.WrapError(types.STORAGE_WRITE_FAILED, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to write %q", key), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to sync %q", key), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to close temp file for %q", key), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to replace %q", key), err)
	}
	return nil
}

// RemoveItem deletes the file for key. Missing keys are ignored.
func (s *FileStore) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.keyPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return types.WrapError(types.STORAGE_WRITE_FAILED, fmt.Sprintf("failed to remove %q", key), err)
	}
	return nil
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error {
	return nil
}

// keyPath maps a key to a filename. Keys may contain characters that are not
// filesystem-safe (":" namespacing), so the filename is a hex digest of the key.
func (s *FileStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", types.NewError(types.STORAGE_KEY_INVALID, "key cannot be empty")
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json"), nil
}

var _ Store = (*FileStore)(nil)
