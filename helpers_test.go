package authcore

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nexapay/authcore/password"
)

const (
	testUserID   = "u1"
	testUsername = "alice"
	testEmail    = "alice@example.com"
	testPassword = "correct-password-123"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
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

type testProvider struct {
	mu           sync.Mutex
	users        map[string]*UserRecord
	byIdentifier map[string]string
}

func newTestProvider() *testProvider {
	return &testProvider{
		users:        make(map[string]*UserRecord),
		byIdentifier: make(map[string]string),
	}
}

func (p *testProvider) add(user *UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[user.ID] = user
	p.byIdentifier[user.Username] = user.ID
	p.byIdentifier[user.Email] = user.ID
}

func (p *testProvider) GetUserByID(_ context.Context, userID string) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (p *testProvider) GetUserByIdentifier(_ context.Context, identifier string) (*UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.byIdentifier[identifier]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *p.users[id]
	return &copied, nil
}

func (p *testProvider) SaveMFASettings(_ context.Context, userID string, settings MFASettings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.MFA = settings
	return nil
}

func (p *testProvider) ConsumeRecoveryCode(_ context.Context, userID, codeHash string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	for i, h := range user.MFA.RecoveryCodeHashes {
		if h == codeHash {
			user.MFA.RecoveryCodeHashes = append(
				user.MFA.RecoveryCodeHashes[:i],
				user.MFA.RecoveryCodeHashes[i+1:]...,
			)
			return true, nil
		}
	}
	return false, nil
}

func (p *testProvider) setMFA(userID string, settings MFASettings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID].MFA = settings
}

func (p *testProvider) setStatus(userID string, status UserStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID].Status = status
}

func testConfig(clock *fakeClock) Config {
	cfg := defaultConfig()
	cfg.Token.Secret = bytes.Repeat([]byte("k"), 64)
	cfg.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	cfg.Audit.Enabled = false
	cfg.Clock = clock.Now
	return cfg
}

func testRoles() map[string][]string {
	return map[string][]string{
		"USER":  {"USER_READ"},
		"ADMIN": {"USER_READ", "USER_CREATE", "USER_UPDATE", "USER_DELETE", "BUSINESS_READ"},
	}
}

func newTestEngine(t *testing.T, clock *fakeClock) (*Engine, *testProvider) {
	t.Helper()

	cfg := testConfig(clock)
	provider := newTestProvider()

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	provider.add(&UserRecord{
		ID:           testUserID,
		Email:        testEmail,
		Username:     testUsername,
		PasswordHash: hash,
		Status:       UserActive,
		Roles:        []string{"USER"},
	})

	engine, err := New().
		WithConfig(cfg).
		WithRoles(testRoles()).
		WithUserProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, provider
}

func loginContext(device string) context.Context {
	ctx := WithDeviceID(context.Background(), device)
	ctx = WithClientIP(ctx, "203.0.113.7")
	return WithUserAgent(ctx, "authcore-test/1.0")
}
