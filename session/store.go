package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by point lookups when no session row exists for
// the given ID.
var ErrNotFound = errors.New("session not found")

// ErrBackendUnavailable wraps infrastructure failures from the backing
// store. Callers must treat it as a denial, never as an authorization.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Store is the persistence contract for session rows.
//
// CreateOrExtend is the single concurrency-sensitive operation: it must
// atomically either extend an existing valid session for the candidate's
// (UserID, DeviceID) pair or insert the candidate, so that two concurrent
// logins from the same device can never produce two simultaneously valid
// sessions. The bulk revocation operations are set-based and idempotent.
type Store interface {
	// Get returns the session row by ID, revoked and expired rows
	// included. ErrNotFound when absent.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// CreateOrExtend inserts the candidate, or, when a valid session
	// already exists for the candidate's (UserID, DeviceID), extends that
	// session's expiry to the later of its current expiry and the
	// candidate's. The returned bool is true when an existing session was
	// extended.
	CreateOrExtend(ctx context.Context, candidate *Session, now time.Time) (*Session, bool, error)

	// Extend moves the session's expiry. No-op with ErrNotFound when the
	// row is absent.
	Extend(ctx context.Context, sessionID string, expiresAt, now time.Time) error

	// Revoke marks the session revoked. Idempotent; reports whether a row
	// was found.
	Revoke(ctx context.Context, sessionID string) (bool, error)

	// RevokeAll revokes every currently valid session of the user and
	// returns how many were revoked.
	RevokeAll(ctx context.Context, userID string, now time.Time) (int, error)

	// RevokeOthers revokes every currently valid session of the user
	// except keepID.
	RevokeOthers(ctx context.Context, userID, keepID string, now time.Time) (int, error)

	// RevokeExpired sweeps sessions whose expiry has already passed.
	RevokeExpired(ctx context.Context, userID string, now time.Time) (int, error)

	// FindActiveByUserAndDevice returns the valid session for the pair,
	// or ErrNotFound.
	FindActiveByUserAndDevice(ctx context.Context, userID, deviceID string, now time.Time) (*Session, error)

	// ListActive returns all valid sessions of the user.
	ListActive(ctx context.Context, userID string, now time.Time) ([]*Session, error)
}
