package cache

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileBackend stores every key as one JSON file in a directory.
// Writes go through a temp file and rename, so a crash never leaves a half-written record.
type FileBackend struct {
	dir string
}

// OpenFile opens a file backend rooted at dir, creating the directory if needed.
func OpenFile(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("path is required for file cache")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// path maps a key to its file. PathEscape turns the workspace separator into %2F.
func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// Get implements Backend.
func (f *FileBackend) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put implements Backend.
func (f *FileBackend) Put(key string, value []byte) error {
	return atomic.WriteFile(f.path(key), bytes.NewReader(value))
}

// Delete implements Backend. Deleting a missing key is not an error.
func (f *FileBackend) Delete(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Close implements Backend.
func (f *FileBackend) Close() error {
	return nil
}
