package session

import "sync"

// Store maps opaque tokens to sessions. A miss is reported as ok=false,
// deciding whether that is an authentication failure is up to the caller.
type Store interface {
	Put(token string, s Session)
	Get(token string) (Session, bool)
	Delete(token string)
	Len() int
}

type memoryStore struct {
	sessions map[string]Session // token -> session
	mu       sync.RWMutex
}

// NewMemoryStore returns a process-lifetime store. Nothing expires on its own.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]Session),
	}
}

func (m *memoryStore) Put(token string, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[token] = s
}

func (m *memoryStore) Get(token string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[token]
	return s, ok
}

// Delete is a no-op for unknown tokens.
func (m *memoryStore) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
}

func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
