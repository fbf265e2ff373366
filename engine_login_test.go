package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestLoginIssuesTokenAndSession(t *testing.T) {
	engine, _ := newTestEngine(t, newFakeClock(testStart()))

	result, err := engine.Login(loginContext("laptop-1"), testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token == "" || result.SessionID == "" {
		t.Fatalf("incomplete result: %+v", result)
	}
	if result.UserID != testUserID {
		t.Fatalf("user id = %s, want %s", result.UserID, testUserID)
	}
	if !result.NewDevice {
		t.Fatal("first login should report a new device")
	}
	if result.MFARequired {
		t.Fatal("MFA not enabled, nothing to verify")
	}

	principal, err := engine.Authenticate(context.Background(), "Bearer "+result.Token, "/v1/users/u1")
	if err != nil || principal == nil {
		t.Fatalf("issued token did not authenticate: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricTokenIssued] != 1 || snap.Counters[MetricSessionCreated] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
}

func TestLoginByEmail(t *testing.T) {
	engine, _ := newTestEngine(t, newFakeClock(testStart()))

	result, err := engine.Login(loginContext("laptop-1"), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login by email failed: %v", err)
	}
	if result.UserID != testUserID {
		t.Fatalf("user id = %s, want %s", result.UserID, testUserID)
	}
}

func TestLoginSameDeviceReusesSession(t *testing.T) {
	engine, _ := newTestEngine(t, newFakeClock(testStart()))

	first, err := engine.Login(loginContext("laptop-1"), testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	second, err := engine.Login(loginContext("laptop-1"), testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("expected same session, got %s and %s", first.SessionID, second.SessionID)
	}
	if second.NewDevice {
		t.Fatal("repeat login from the same device should not report a new device")
	}

	third, err := engine.Login(loginContext("phone-1"), testUsername, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if third.SessionID == first.SessionID {
		t.Fatal("a different device must get its own session")
	}
	if !third.NewDevice {
		t.Fatal("login from an unseen device should report a new device")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	engine, _ := newTestEngine(t, newFakeClock(testStart()))

	_, unknownErr := engine.Login(loginContext("d1"), "nobody", testPassword)
	_, badPassErr := engine.Login(loginContext("d1"), testUsername, "wrong-password")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown identifier: err = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(badPassErr, ErrInvalidCredentials) {
		t.Fatalf("bad password: err = %v, want ErrInvalidCredentials", badPassErr)
	}
}

func TestLoginStatusGates(t *testing.T) {
	engine, provider := newTestEngine(t, newFakeClock(testStart()))

	provider.setStatus(testUserID, UserPending)
	if _, err := engine.Login(loginContext("d1"), testUsername, testPassword); !errors.Is(err, ErrAccountUnverified) {
		t.Fatalf("pending account: err = %v, want ErrAccountUnverified", err)
	}

	provider.setStatus(testUserID, UserDisabled)
	if _, err := engine.Login(loginContext("d1"), testUsername, testPassword); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("disabled account: err = %v, want ErrAccountDisabled", err)
	}
}

func TestLogoutRevokesOwnSession(t *testing.T) {
	engine, _ := newTestEngine(t, newFakeClock(testStart()))
	result := mustLogin(t, engine, "laptop-1")

	if err := engine.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), "Bearer "+result.Token, "/v1/users/u1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("after logout: err = %v, want ErrSessionInvalid", err)
	}

	if err := engine.Logout(context.Background(), "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("forged token: err = %v, want ErrTokenInvalid", err)
	}
}

func TestLogoutOthersKeepsCallingSession(t *testing.T) {
	engine, _ := newTestEngine(t, newFakeClock(testStart()))
	laptop := mustLogin(t, engine, "laptop-1")
	phone := mustLogin(t, engine, "phone-1")

	revoked, err := engine.LogoutOthers(context.Background(), laptop.Token)
	if err != nil {
		t.Fatalf("LogoutOthers failed: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("expected 1 revocation, got %d", revoked)
	}

	if _, err := engine.Authenticate(context.Background(), "Bearer "+laptop.Token, "/v1/users/u1"); err != nil {
		t.Fatalf("calling session should survive: %v", err)
	}
	if _, err := engine.Authenticate(context.Background(), "Bearer "+phone.Token, "/v1/users/u1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("other session: err = %v, want ErrSessionInvalid", err)
	}
}
