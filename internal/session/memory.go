package session

import "sync"

// MemoryStore keeps the session record in process memory. It is the
// tab-session analog for embedded use: the record lives exactly as long as
// the process.
//
// A reader-writer guard preserves writer ordering and torn-read freedom when
// the store is shared across goroutines.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
	present bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored session when present.
func (m *MemoryStore) Load() (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.present {
		return Session{}, false, nil
	}
	return m.session, true, nil
}

// Save replaces the stored session.
func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	m.present = true
	return nil
}

// Clear removes the stored session.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{}
	m.present = false
	return nil
}
