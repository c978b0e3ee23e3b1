package session

import (
	"sync"
	"time"
)

// Manager keeps one live session per user and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewManager creates a session manager with the provided idle TTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}

	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// GetOrCreate returns the user's live session, starting a fresh one when
// none exists or the old one went idle past the TTL.
func (m *Manager) GetOrCreate(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.cleanupLocked(now)

	if sess, ok := m.sessions[userID]; ok {
		return sess
	}

	sess := NewSession(userID)
	m.sessions[userID] = sess
	return sess
}

// Get returns the user's live session, if any.
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanupLocked(time.Now())

	sess, ok := m.sessions[userID]
	return sess, ok
}

// Delete drops a user's session.
func (m *Manager) Delete(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len reports how many sessions are live.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) cleanupLocked(now time.Time) {
	for userID, sess := range m.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastTouched)
		sess.mu.Unlock()
		if idle > m.ttl {
			delete(m.sessions, userID)
		}
	}
}
