package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBlacklistUnavailable wraps backend failures. Callers must deny, never
// authorize, when the blacklist cannot be consulted.
var ErrBlacklistUnavailable = errors.New("token blacklist unavailable")

// Blacklist records early revocation of tokens that are immutable and still
// within their signed lifetime. Entries only need to outlive the token TTL.
type Blacklist interface {
	// BlacklistSession rejects all tokens bound to the session.
	BlacklistSession(ctx context.Context, sessionID string) error
	// BlacklistUser rejects all of the user's tokens issued up to now.
	BlacklistUser(ctx context.Context, userID string) error
	// IsRevoked reports whether a token bound to sessionID, held by
	// userID and issued at issuedAt, must be rejected.
	IsRevoked(ctx context.Context, sessionID, userID string, issuedAt time.Time) (bool, error)
}

// userCutoff snaps a revocation instant just below the whole second it
// falls in. Token iat claims carry second precision, so a token minted
// later within the revocation second must stay usable while every token
// from an earlier second is caught.
func userCutoff(now time.Time) time.Time {
	return now.Truncate(time.Second).Add(-time.Nanosecond)
}

// MemoryBlacklist is an in-process Blacklist for tests and single-node
// embeddings.
type MemoryBlacklist struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    func() time.Time
	sessions map[string]time.Time // session id -> entry expiry
	users    map[string]time.Time // user id -> issued-at cutoff
}

// NewMemoryBlacklist returns a MemoryBlacklist whose entries lapse after
// ttl. clock may be nil for time.Now.
func NewMemoryBlacklist(ttl time.Duration, clock func() time.Time) *MemoryBlacklist {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryBlacklist{
		ttl:      ttl,
		clock:    clock,
		sessions: make(map[string]time.Time),
		users:    make(map[string]time.Time),
	}
}

// BlacklistSession implements Blacklist.
func (b *MemoryBlacklist) BlacklistSession(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[sessionID] = b.clock().Add(b.ttl)
	return nil
}

// BlacklistUser implements Blacklist.
func (b *MemoryBlacklist) BlacklistUser(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[userID] = userCutoff(b.clock())
	return nil
}

// IsRevoked implements Blacklist.
func (b *MemoryBlacklist) IsRevoked(_ context.Context, sessionID, userID string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock()
	if expiry, ok := b.sessions[sessionID]; ok {
		if now.Before(expiry) {
			return true, nil
		}
		delete(b.sessions, sessionID)
	}
	if cutoff, ok := b.users[userID]; ok {
		if now.Sub(cutoff) > b.ttl {
			delete(b.users, userID)
		} else if !issuedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// RedisBlacklist is a Redis-backed Blacklist. Entries carry a Redis TTL of
// the token lifetime so the keyspace self-prunes.
type RedisBlacklist struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	clock  func() time.Time
}

// NewRedisBlacklist wraps the given client. prefix defaults to "ac".
func NewRedisBlacklist(client redis.UniversalClient, prefix string, ttl time.Duration, clock func() time.Time) *RedisBlacklist {
	if prefix == "" {
		prefix = "ac"
	}
	if clock == nil {
		clock = time.Now
	}
	return &RedisBlacklist{client: client, prefix: prefix, ttl: ttl, clock: clock}
}

func (b *RedisBlacklist) sessionKey(sessionID string) string {
	return b.prefix + ":bls:" + sessionID
}

func (b *RedisBlacklist) userKey(userID string) string {
	return b.prefix + ":blu:" + userID
}

// BlacklistSession implements Blacklist.
func (b *RedisBlacklist) BlacklistSession(ctx context.Context, sessionID string) error {
	if err := b.client.Set(ctx, b.sessionKey(sessionID), "1", b.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	return nil
}

// BlacklistUser implements Blacklist.
func (b *RedisBlacklist) BlacklistUser(ctx context.Context, userID string) error {
	cutoff := strconv.FormatInt(userCutoff(b.clock()).UnixMilli(), 10)
	if err := b.client.Set(ctx, b.userKey(userID), cutoff, b.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	return nil
}

// IsRevoked implements Blacklist.
func (b *RedisBlacklist) IsRevoked(ctx context.Context, sessionID, userID string, issuedAt time.Time) (bool, error) {
	hit, err := b.client.Exists(ctx, b.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	if hit > 0 {
		return true, nil
	}

	raw, err := b.client.Get(ctx, b.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	cutoffMilli, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Unreadable cutoff: treat the user's tokens as revoked.
		return true, nil
	}
	return !issuedAt.After(time.UnixMilli(cutoffMilli)), nil
}
