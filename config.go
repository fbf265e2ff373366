package authcore

import (
	"errors"
	"time"

	"github.com/nexapay/authcore/password"
)

// Config configures the Engine. Callers populate it directly; loading from
// files or environment is left to the embedding application.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	TOTP     TOTPConfig
	Recovery RecoveryConfig
	Password password.Config
	Audit    AuditConfig
	Metrics  MetricsConfig

	// ExtraMFAExemptPaths adds path prefixes to the built-in MFA exempt
	// set (login, registration, email confirmation, current-user lookup,
	// API docs, and the MFA endpoints themselves).
	ExtraMFAExemptPaths []string

	// Clock is used for every token, session, and TOTP time comparison.
	// Defaults to time.Now.
	Clock func() time.Time
}

// TokenConfig configures bearer token issuance and verification.
type TokenConfig struct {
	// Secret is the HS512 signing key, at least 64 bytes.
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// SessionConfig configures session lifecycle.
type SessionConfig struct {
	TTL time.Duration
	// RefreshThreshold is the sliding-expiration window: a valid session
	// used with less than this much lifetime left is extended to a fresh
	// TTL.
	RefreshThreshold time.Duration
	// RedisPrefix namespaces session and blacklist keys when a Redis
	// client is supplied.
	RedisPrefix string
}

// TOTPConfig configures the second factor.
type TOTPConfig struct {
	Issuer string
	Digits int
	Period int
	// Skew is the accepted time-step drift on each side of now. Skew 1
	// with a 30s period gives the 90-second total acceptance window.
	Skew int
}

// RecoveryConfig configures single-use recovery codes.
type RecoveryConfig struct {
	Count int
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking emitters when the
	// buffer is full; drops are counted.
	DropIfFull bool
}

// MetricsConfig configures the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:    time.Hour,
			Issuer: "nexapay",
		},
		Session: SessionConfig{
			TTL:              7 * 24 * time.Hour,
			RefreshThreshold: 24 * time.Hour,
			RedisPrefix:      "ac",
		},
		TOTP: TOTPConfig{
			Issuer: "nexapay",
			Digits: 6,
			Period: 30,
			Skew:   1,
		},
		Recovery: RecoveryConfig{Count: 10},
		Password: password.DefaultConfig(),
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
		Clock:   time.Now,
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.Token.Secret) < 64 {
		return errors.New("token secret must be at least 64 bytes")
	}
	if cfg.Token.TTL <= 0 {
		return errors.New("invalid token TTL")
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("invalid session TTL")
	}
	if cfg.Session.RefreshThreshold < 0 || cfg.Session.RefreshThreshold > cfg.Session.TTL {
		return errors.New("invalid session refresh threshold")
	}
	if cfg.Token.TTL > cfg.Session.TTL {
		return errors.New("token TTL must not exceed session TTL")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 8 {
		return errors.New("invalid totp digits")
	}
	if cfg.TOTP.Period <= 0 {
		return errors.New("invalid totp period")
	}
	if cfg.TOTP.Skew < 0 || cfg.TOTP.Skew > 2 {
		return errors.New("invalid totp skew")
	}
	if cfg.Recovery.Count <= 0 || cfg.Recovery.Count > 32 {
		return errors.New("invalid recovery code count")
	}
	return nil
}
