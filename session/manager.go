package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenRevoker records early token revocation with the token layer so that
// unexpired bearer tokens bound to revoked sessions are rejected
// immediately. Implemented by token.Blacklist backends.
type TokenRevoker interface {
	BlacklistSession(ctx context.Context, sessionID string) error
	BlacklistUser(ctx context.Context, userID string) error
}

// ManagerConfig carries the session lifecycle knobs. Clock defaults to
// time.Now and is injectable so expiry and refresh behavior is reproducible
// in tests.
type ManagerConfig struct {
	TTL              time.Duration
	RefreshThreshold time.Duration
	Clock            func() time.Time
}

// Manager drives the per-session state machine ACTIVE -> REVOKED (explicit,
// terminal) and ACTIVE -> EXPIRED (clock-derived, terminal) over a Store.
type Manager struct {
	store            Store
	revoker          TokenRevoker
	ttl              time.Duration
	refreshThreshold time.Duration
	clock            func() time.Time
}

// NewManager validates the configuration and returns a Manager. revoker may
// be nil when token blacklisting is handled elsewhere.
func NewManager(store Store, revoker TokenRevoker, cfg ManagerConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid session TTL")
	}
	if cfg.RefreshThreshold < 0 || cfg.RefreshThreshold > cfg.TTL {
		return nil, errors.New("invalid session refresh threshold")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		store:            store,
		revoker:          revoker,
		ttl:              cfg.TTL,
		refreshThreshold: cfg.RefreshThreshold,
		clock:            clock,
	}, nil
}

// CreateSession sweeps the user's already-expired sessions, then atomically
// either extends the existing valid session for (user, device) or inserts a
// new one. The returned bool is true when an existing session was extended,
// i.e. this is a returning device.
func (m *Manager) CreateSession(ctx context.Context, userID, deviceID, ip, userAgent string) (*Session, bool, error) {
	now := m.clock()

	if _, err := m.store.RevokeExpired(ctx, userID, now); err != nil {
		return nil, false, err
	}

	candidate := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		DeviceID:  deviceID,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	return m.store.CreateOrExtend(ctx, candidate, now)
}

// ValidateAndRefresh returns the session when it is currently valid, or
// (nil, nil) when the ID is empty, unknown, revoked, or expired. When the
// remaining lifetime is below the refresh threshold the expiry is extended
// to a fresh TTL and persisted before returning. A non-nil error means the
// backing store failed; callers must deny, never authorize, on it.
func (m *Manager) ValidateAndRefresh(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	s, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := m.clock()
	if !s.Valid(now) {
		return nil, nil
	}

	if s.Remaining(now) < m.refreshThreshold {
		extended := now.Add(m.ttl)
		if err := m.store.Extend(ctx, sessionID, extended, now); err != nil {
			return nil, err
		}
		s.ExpiresAt = extended
	}

	return s, nil
}

// RevokeSession revokes one session and blacklists its tokens. Idempotent;
// a no-op for unknown IDs.
func (m *Manager) RevokeSession(ctx context.Context, sessionID string) error {
	found, err := m.store.Revoke(ctx, sessionID)
	if err != nil {
		return err
	}
	if found && m.revoker != nil {
		return m.revoker.BlacklistSession(ctx, sessionID)
	}
	return nil
}

// RevokeAllSessions revokes every valid session of the user in one
// set-based operation and blacklists all of the user's outstanding tokens.
func (m *Manager) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	revoked, err := m.store.RevokeAll(ctx, userID, m.clock())
	if err != nil {
		return 0, err
	}
	if m.revoker != nil {
		if err := m.revoker.BlacklistUser(ctx, userID); err != nil {
			return revoked, err
		}
	}
	return revoked, nil
}

// RevokeOtherSessions revokes every valid session of the user except
// keepSessionID ("log out other devices"). No user-wide token blacklist
// here: that would also reject the kept session's token; the revoked rows
// themselves fail the per-request session check.
func (m *Manager) RevokeOtherSessions(ctx context.Context, userID, keepSessionID string) (int, error) {
	return m.store.RevokeOthers(ctx, userID, keepSessionID, m.clock())
}

// RevokeExpiredSessions sweeps sessions whose expiry has already passed.
// Always safe, always idempotent.
func (m *Manager) RevokeExpiredSessions(ctx context.Context, userID string) (int, error) {
	return m.store.RevokeExpired(ctx, userID, m.clock())
}

// HasActiveSessionForDevice reports whether the user already holds a valid
// session for the device. Login orchestration uses it to decide whether a
// login is from a new device.
func (m *Manager) HasActiveSessionForDevice(ctx context.Context, userID, deviceID string) (bool, error) {
	_, err := m.store.FindActiveByUserAndDevice(ctx, userID, deviceID, m.clock())
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindActiveByUserAndDevice returns the valid session for the pair, or
// (nil, nil) when there is none.
func (m *Manager) FindActiveByUserAndDevice(ctx context.Context, userID, deviceID string) (*Session, error) {
	s, err := m.store.FindActiveByUserAndDevice(ctx, userID, deviceID, m.clock())
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// ListActiveSessions returns the user's currently valid sessions.
func (m *Manager) ListActiveSessions(ctx context.Context, userID string) ([]*Session, error) {
	return m.store.ListActive(ctx, userID, m.clock())
}
