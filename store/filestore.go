package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/j0KZ/K2-controller-design-sub000/errors"
)

// FileStore persists a scalar map as a JSON file. Writes go through a
// temp-file rename so a crash mid-save never corrupts the previous state.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted map. A missing file is not an error: it returns
// an empty map, matching first-run behavior.
func (fs *FileStore) Load(_ context.Context) (map[string]int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int64{}, nil
		}
		return nil, errors.WrapTransient(err, "FileStore", "Load", "read state file")
	}

	values := make(map[string]int64)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.WrapInvalid(err, "FileStore", "Load", "decode state file")
	}
	return values, nil
}

// Save replaces the persisted map atomically
func (fs *FileStore) Save(_ context.Context, values map[string]int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.WrapInvalid(err, "FileStore", "Save", "encode state")
	}

	if dir := filepath.Dir(fs.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapTransient(err, "FileStore", "Save", "create state directory")
		}
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WrapTransient(err, "FileStore", "Save", "write temp state file")
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return errors.WrapTransient(err, "FileStore", "Save", "replace state file")
	}
	return nil
}
