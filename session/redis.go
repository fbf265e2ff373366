package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rows are retained past their expiry so that revoked and recently expired
// sessions stay distinguishable from never-existing ones.
const redisRowGrace = time.Hour

const createOrExtendScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local now = tonumber(ARGV[3])
local grace = tonumber(ARGV[5])
local cand = cjson.decode(ARGV[2])
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  local raw = redis.call("GET", key)
  if raw then
    local s = cjson.decode(raw)
    if s.device_id == cand.device_id and not s.revoked and s.expires_at > now then
      if cand.expires_at > s.expires_at then
        s.expires_at = cand.expires_at
      end
      local payload = cjson.encode(s)
      redis.call("SET", key, payload, "PX", s.expires_at - now + grace)
      return {1, payload}
    end
  else
    redis.call("SREM", KEYS[1], id)
  end
end
redis.call("SET", ARGV[1] .. ARGV[4], ARGV[2], "PX", cand.expires_at - now + grace)
redis.call("SADD", KEYS[1], ARGV[4])
return {0, ARGV[2]}
`

const bulkRevokeScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local now = tonumber(ARGV[2])
local keep = ARGV[3]
local mode = ARGV[4]
local count = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  local raw = redis.call("GET", key)
  if raw then
    local s = cjson.decode(raw)
    local match
    if mode == "expired" then
      match = (not s.revoked) and s.expires_at <= now
    else
      match = (not s.revoked) and s.expires_at > now and id ~= keep
    end
    if match then
      s.revoked = true
      local ttl = redis.call("PTTL", key)
      if ttl > 0 then
        redis.call("SET", key, cjson.encode(s), "PX", ttl)
      else
        redis.call("SET", key, cjson.encode(s))
      end
      count = count + 1
    end
  else
    redis.call("SREM", KEYS[1], id)
  end
end
return count
`

const revokeOneScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return 0
end
local s = cjson.decode(raw)
s.revoked = true
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], cjson.encode(s), "PX", ttl)
else
  redis.call("SET", KEYS[1], cjson.encode(s))
end
return 1
`

const extendScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return 0
end
local s = cjson.decode(raw)
s.expires_at = tonumber(ARGV[1])
local px = s.expires_at - tonumber(ARGV[2]) + tonumber(ARGV[3])
if px < 1 then
  px = 1
end
redis.call("SET", KEYS[1], cjson.encode(s), "PX", px)
return 1
`

var (
	createOrExtendLua = redis.NewScript(createOrExtendScript)
	bulkRevokeLua     = redis.NewScript(bulkRevokeScript)
	revokeOneLua      = redis.NewScript(revokeOneScript)
	extendLua         = redis.NewScript(extendScript)
)

// RedisStore keeps session rows as JSON values with a per-user index set.
// The create-or-extend and bulk-revocation paths run as Lua scripts so they
// are atomic against concurrent logins and revokes.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps the given client. prefix defaults to "ac".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ac"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) sessionKeyPrefix() string {
	return r.prefix + ":s:"
}

func (r *RedisStore) sessionKey(sessionID string) string {
	return r.sessionKeyPrefix() + sessionID
}

func (r *RedisStore) userKey(userID string) string {
	return r.prefix + ":u:" + userID
}

type redisSession struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
	Revoked   bool   `json:"revoked"`
}

func encodeSession(s *Session) ([]byte, error) {
	return json.Marshal(redisSession{
		ID:        s.ID,
		UserID:    s.UserID,
		DeviceID:  s.DeviceID,
		IP:        s.IP,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt.UnixMilli(),
		ExpiresAt: s.ExpiresAt.UnixMilli(),
	})
}

func decodeSession(data []byte) (*Session, error) {
	var row redisSession
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("corrupt session row: %w", err)
	}
	return &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		DeviceID:  row.DeviceID,
		IP:        row.IP,
		UserAgent: row.UserAgent,
		CreatedAt: time.UnixMilli(row.CreatedAt),
		ExpiresAt: time.UnixMilli(row.ExpiresAt),
		Revoked:   row.Revoked,
	}, nil
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return decodeSession(data)
}

// CreateOrExtend implements Store.
func (r *RedisStore) CreateOrExtend(ctx context.Context, candidate *Session, now time.Time) (*Session, bool, error) {
	payload, err := encodeSession(candidate)
	if err != nil {
		return nil, false, err
	}

	res, err := createOrExtendLua.Run(ctx, r.client,
		[]string{r.userKey(candidate.UserID)},
		r.sessionKeyPrefix(), string(payload), now.UnixMilli(), candidate.ID, redisRowGrace.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(res) != 2 {
		return nil, false, fmt.Errorf("%w: unexpected script reply", ErrBackendUnavailable)
	}

	extended, _ := res[0].(int64)
	raw, _ := res[1].(string)
	stored, err := decodeSession([]byte(raw))
	if err != nil {
		return nil, false, err
	}
	return stored, extended == 1, nil
}

// Extend implements Store.
func (r *RedisStore) Extend(ctx context.Context, sessionID string, expiresAt, now time.Time) error {
	found, err := extendLua.Run(ctx, r.client,
		[]string{r.sessionKey(sessionID)},
		expiresAt.UnixMilli(), now.UnixMilli(), redisRowGrace.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if found == 0 {
		return ErrNotFound
	}
	return nil
}

// Revoke implements Store.
func (r *RedisStore) Revoke(ctx context.Context, sessionID string) (bool, error) {
	found, err := revokeOneLua.Run(ctx, r.client, []string{r.sessionKey(sessionID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return found == 1, nil
}

// RevokeAll implements Store.
func (r *RedisStore) RevokeAll(ctx context.Context, userID string, now time.Time) (int, error) {
	return r.bulkRevoke(ctx, userID, "", "valid", now)
}

// RevokeOthers implements Store.
func (r *RedisStore) RevokeOthers(ctx context.Context, userID, keepID string, now time.Time) (int, error) {
	return r.bulkRevoke(ctx, userID, keepID, "valid", now)
}

// RevokeExpired implements Store.
func (r *RedisStore) RevokeExpired(ctx context.Context, userID string, now time.Time) (int, error) {
	return r.bulkRevoke(ctx, userID, "", "expired", now)
}

func (r *RedisStore) bulkRevoke(ctx context.Context, userID, keepID, mode string, now time.Time) (int, error) {
	count, err := bulkRevokeLua.Run(ctx, r.client,
		[]string{r.userKey(userID)},
		r.sessionKeyPrefix(), now.UnixMilli(), keepID, mode,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return int(count), nil
}

// FindActiveByUserAndDevice implements Store.
func (r *RedisStore) FindActiveByUserAndDevice(ctx context.Context, userID, deviceID string, now time.Time) (*Session, error) {
	active, err := r.ListActive(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	for _, s := range active {
		if s.DeviceID == deviceID {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

// ListActive implements Store.
func (r *RedisStore) ListActive(ctx context.Context, userID string, now time.Time) ([]*Session, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var active []*Session
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if s.Valid(now) {
			active = append(active, s)
		}
	}
	return active, nil
}
