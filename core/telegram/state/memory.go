package state

import "sync"

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	locks    keyedMutex[int64]
}

// NewMemoryManager returns an in-process Manager. Sessions do not survive restarts.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]Session)}
}

func (m *memoryManager) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID].clone()
}

func (m *memoryManager) Put(userID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Idle() {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = s.clone()
}

func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager) Lock(userID int64) func() {
	return m.locks.lock(userID)
}
