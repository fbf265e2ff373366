package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// single-node embeddings; multi-node deployments use RedisStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// CreateOrExtend implements Store. The whole lookup-then-write runs under
// one lock acquisition, which is what upholds the single-valid-session-
// per-device invariant for concurrent callers.
func (m *MemoryStore) CreateOrExtend(_ context.Context, candidate *Session, now time.Time) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.byUser[candidate.UserID] {
		s := m.sessions[id]
		if s == nil || s.DeviceID != candidate.DeviceID || !s.Valid(now) {
			continue
		}
		if candidate.ExpiresAt.After(s.ExpiresAt) {
			s.ExpiresAt = candidate.ExpiresAt
		}
		return s.clone(), true, nil
	}

	stored := candidate.clone()
	m.sessions[stored.ID] = stored
	index, ok := m.byUser[stored.UserID]
	if !ok {
		index = make(map[string]struct{})
		m.byUser[stored.UserID] = index
	}
	index[stored.ID] = struct{}{}

	return stored.clone(), false, nil
}

// Extend implements Store.
func (m *MemoryStore) Extend(_ context.Context, sessionID string, expiresAt, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.ExpiresAt = expiresAt
	return nil
}

// Revoke implements Store.
func (m *MemoryStore) Revoke(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	s.Revoked = true
	return true, nil
}

// RevokeAll implements Store.
func (m *MemoryStore) RevokeAll(_ context.Context, userID string, now time.Time) (int, error) {
	return m.revokeWhere(userID, func(s *Session) bool {
		return s.Valid(now)
	}), nil
}

// RevokeOthers implements Store.
func (m *MemoryStore) RevokeOthers(_ context.Context, userID, keepID string, now time.Time) (int, error) {
	return m.revokeWhere(userID, func(s *Session) bool {
		return s.ID != keepID && s.Valid(now)
	}), nil
}

// RevokeExpired implements Store.
func (m *MemoryStore) RevokeExpired(_ context.Context, userID string, now time.Time) (int, error) {
	return m.revokeWhere(userID, func(s *Session) bool {
		return !s.Revoked && !now.Before(s.ExpiresAt)
	}), nil
}

func (m *MemoryStore) revokeWhere(userID string, match func(*Session) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	revoked := 0
	for id := range m.byUser[userID] {
		s := m.sessions[id]
		if s == nil || !match(s) {
			continue
		}
		s.Revoked = true
		revoked++
	}
	return revoked
}

// FindActiveByUserAndDevice implements Store.
func (m *MemoryStore) FindActiveByUserAndDevice(_ context.Context, userID, deviceID string, now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.byUser[userID] {
		s := m.sessions[id]
		if s != nil && s.DeviceID == deviceID && s.Valid(now) {
			return s.clone(), nil
		}
	}
	return nil, ErrNotFound
}

// ListActive implements Store.
func (m *MemoryStore) ListActive(_ context.Context, userID string, now time.Time) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var active []*Session
	for id := range m.byUser[userID] {
		s := m.sessions[id]
		if s != nil && s.Valid(now) {
			active = append(active, s.clone())
		}
	}
	return active, nil
}
