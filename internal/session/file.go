package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the session record as a single JSON file. Secrets live
// in the record, so the file is created owner-read/write only.
//
// A record that fails to parse is treated as corrupt: Load removes it and
// reports absence instead of surfacing the parse error.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore returns a store backed by the file at path. The parent
// directory is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored session when present. Corrupt records are discarded.
func (f *FileStore) Load() (Session, bool, error) {
	f.mu.RLock()
	data, err := os.ReadFile(f.path)
	f.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil || !s.Valid() {
		_ = f.Clear()
		return Session{}, false, nil
	}
	return s, true, nil
}

// Save writes the session record, replacing any previous one.
func (f *FileStore) Save(s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the session record. Removing an absent record is not an
// error.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
