package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewManager(NewRedisStore(client, "ac"), &fakeRevoker{}, ManagerConfig{
		TTL:              testTTL,
		RefreshThreshold: testThreshold,
		Clock:            clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, clock
}

func TestRedisCreateSessionSameDeviceExtends(t *testing.T) {
	m, clock := newRedisTestManager(t)
	ctx := context.Background()

	first, extended, err := m.CreateSession(ctx, "u1", "laptop-1", "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if extended {
		t.Fatal("first login should create, not extend")
	}

	clock.Advance(time.Hour)
	second, extended, err := m.CreateSession(ctx, "u1", "laptop-1", "203.0.113.7", "ua")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if !extended || second.ID != first.ID {
		t.Fatalf("expected extension of %s, got extended=%v id=%s", first.ID, extended, second.ID)
	}
	if !second.ExpiresAt.Equal(clock.Now().Add(testTTL)) {
		t.Fatalf("expiry = %v, want %v", second.ExpiresAt, clock.Now().Add(testTTL))
	}

	active, err := m.ListActiveSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListActiveSessions failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one valid session, got %d", len(active))
	}
}

func TestRedisValidateAndRefreshRoundTrip(t *testing.T) {
	m, clock := newRedisTestManager(t)
	ctx := context.Background()

	s, _, err := m.CreateSession(ctx, "u1", "d1", "198.51.100.4", "cli")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := m.ValidateAndRefresh(ctx, s.ID)
	if err != nil {
		t.Fatalf("ValidateAndRefresh failed: %v", err)
	}
	if got == nil || got.UserID != "u1" || got.DeviceID != "d1" || got.IP != "198.51.100.4" {
		t.Fatalf("round-tripped session mismatch: %+v", got)
	}

	clock.Advance(testTTL - testThreshold + time.Hour)
	got, err = m.ValidateAndRefresh(ctx, s.ID)
	if err != nil {
		t.Fatalf("ValidateAndRefresh failed: %v", err)
	}
	want := clock.Now().Add(testTTL)
	if got == nil || !got.ExpiresAt.Equal(want) {
		t.Fatalf("expected slid expiry %v, got %+v", want, got)
	}
}

func TestRedisRevocationFlows(t *testing.T) {
	m, _ := newRedisTestManager(t)
	ctx := context.Background()

	keep, _, err := m.CreateSession(ctx, "u1", "laptop-1", "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	other, _, err := m.CreateSession(ctx, "u1", "phone-1", "", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	revoked, err := m.RevokeOtherSessions(ctx, "u1", keep.ID)
	if err != nil {
		t.Fatalf("RevokeOtherSessions failed: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 revocation, got %d", revoked)
	}
	if got, err := m.ValidateAndRefresh(ctx, other.ID); got != nil || err != nil {
		t.Fatalf("expected revoked session rejected, got %+v err %v", got, err)
	}
	if got, err := m.ValidateAndRefresh(ctx, keep.ID); got == nil || err != nil {
		t.Fatalf("expected kept session valid, got %+v err %v", got, err)
	}

	n, err := m.RevokeAllSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("RevokeAllSessions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 remaining session revoked, got %d", n)
	}
	active, err := m.ListActiveSessions(ctx, "u1")
	if err != nil {
		t.Fatalf("ListActiveSessions failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected zero valid sessions, got %d", len(active))
	}
}

func TestRedisUnknownSessionIsNotFound(t *testing.T) {
	m, _ := newRedisTestManager(t)

	got, err := m.ValidateAndRefresh(context.Background(), "no-such-session")
	if got != nil || err != nil {
		t.Fatalf("unknown id: got %+v err %v", got, err)
	}
}
