package token

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret: bytes.Repeat([]byte("s"), 64),
		TTL:    time.Hour,
		Issuer: "test",
		Clock:  clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func activeSnapshot() Snapshot {
	return Snapshot{
		Subject:     "alice",
		Authorities: []string{"USER_READ", "ROLE_USER"},
		UserStatus:  StatusActive,
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager(Config{Secret: []byte("short"), TTL: time.Hour})
	if err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssueThenValidateSucceedsForActiveSnapshot(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	tok, err := m.Issue(activeSnapshot(), "sess-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !m.Validate(tok) {
		t.Fatal("expected freshly issued token to validate")
	}

	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "alice" || claims.SessionID != "sess-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.UserStatus != StatusActive {
		t.Fatalf("unexpected status claim: %s", claims.UserStatus)
	}
	if len(claims.Authorities) != 2 {
		t.Fatalf("unexpected authorities: %v", claims.Authorities)
	}
}

func TestValidateRejectsNonActiveSnapshots(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	for _, status := range []string{StatusPending, StatusDisabled, "FROZEN", ""} {
		snap := activeSnapshot()
		snap.UserStatus = status
		tok, err := m.Issue(snap, "sess-1")
		if err != nil {
			t.Fatalf("Issue failed for status %q: %v", status, err)
		}
		if m.Validate(tok) {
			t.Fatalf("expected validation failure for status %q", status)
		}
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	tok, err := m.Issue(activeSnapshot(), "sess-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock.Advance(time.Hour + time.Second)
	if m.Validate(tok) {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	tok, err := m.Issue(activeSnapshot(), "sess-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	dot := strings.LastIndex(tok, ".")
	sig := []byte(tok[dot+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := tok[:dot+1] + string(sig)

	if m.Validate(tampered) {
		t.Fatal("expected tampered token to fail validation")
	}
}

func TestValidateRejectsGarbageAndForeignSecret(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	if m.Validate("") || m.Validate("not.a.token") {
		t.Fatal("expected malformed input to fail validation")
	}

	other, err := NewManager(Config{
		Secret: bytes.Repeat([]byte("x"), 64),
		TTL:    time.Hour,
		Issuer: "test",
		Clock:  clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	foreign, err := other.Issue(activeSnapshot(), "sess-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if m.Validate(foreign) {
		t.Fatal("expected token signed under a different secret to fail")
	}
}

func TestValidateRejectsMissingSessionID(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	if _, err := m.Issue(Snapshot{Subject: "alice", UserStatus: StatusActive}, ""); err == nil {
		t.Fatal("expected Issue to reject empty session id")
	}
}

func TestValidateRejectsStrippedClaims(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)
	now := clock.Now()

	full := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":         "alice",
			"sessionId":   "sess-1",
			"userStatus":  StatusActive,
			"authorities": []string{"USER_READ", "ROLE_USER"},
			"iss":         "test",
			"iat":         now.Unix(),
			"exp":         now.Add(time.Hour).Unix(),
		}
	}

	secret := bytes.Repeat([]byte("s"), 64)
	for _, drop := range []string{"iat", "authorities"} {
		claims := full()
		delete(claims, drop)
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
		if err != nil {
			t.Fatalf("signing without %q failed: %v", drop, err)
		}
		if m.Validate(signed) {
			t.Fatalf("expected token without %q claim to fail validation", drop)
		}
	}

	intact, err := jwt.NewWithClaims(jwt.SigningMethodHS512, full()).SignedString(secret)
	if err != nil {
		t.Fatalf("signing failed: %v", err)
	}
	if !m.Validate(intact) {
		t.Fatal("expected fully populated token to validate")
	}
}

func TestIssueExpirySpansConfiguredTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := testManager(t, clock)

	tok, err := m.Issue(activeSnapshot(), "sess-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantExpiry := clock.Now().Add(time.Hour)
	if !claims.ExpiresAt.Time.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", claims.ExpiresAt.Time, wantExpiry)
	}
}
