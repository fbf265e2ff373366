package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User status snapshot values carried in the userStatus claim. Only tokens
// snapshotted as active verify successfully.
const (
	StatusPending  = "PENDING"
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"
)

var knownStatuses = map[string]struct{}{
	StatusPending:  {},
	StatusActive:   {},
	StatusDisabled: {},
}

const minSecretBytes = 64 // HS512 key material

// Config configures the Manager. Clock defaults to time.Now.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Clock  func() time.Time
}

// Snapshot is the principal state captured into a token at issuance. It may
// go stale until the holder re-authenticates; that staleness window is
// bounded by the token TTL.
type Snapshot struct {
	Subject     string
	Authorities []string
	UserStatus  string
	MFAEnabled  bool
	MFAVerified bool
}

// Claims is the token payload.
type Claims struct {
	SessionID   string   `json:"sessionId"`
	Authorities []string `json:"authorities"`
	UserStatus  string   `json:"userStatus"`
	MFAEnabled  bool     `json:"mfaEnabled"`
	MFAVerified bool     `json:"mfaVerified"`
	jwt.RegisteredClaims
}

// Manager signs and verifies bearer tokens with HMAC-SHA512 over a shared
// secret. It is stateless and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, errors.New("token secret must be at least 64 bytes for HS512")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid token TTL")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Manager{config: cfg}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue builds and signs a token binding the snapshot to sessionID.
// Expiry is issuance time plus the configured TTL.
func (m *Manager) Issue(snap Snapshot, sessionID string) (string, error) {
	if snap.Subject == "" || sessionID == "" {
		return "", errors.New("subject and session id are required")
	}

	now := m.config.Clock()
	claims := Claims{
		SessionID:   sessionID,
		Authorities: snap.Authorities,
		UserStatus:  snap.UserStatus,
		MFAEnabled:  snap.MFAEnabled,
		MFAVerified: snap.MFAVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   snap.Subject,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(m.config.Secret)
}

// Parse verifies the signature and registered claims and returns the
// payload. Expired, forged, and malformed tokens all error.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.config.Clock),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Validate reports whether the token is acceptable: signature and expiry
// verify, required claims are present, and the userStatus snapshot parses
// to a known status equal to active. It fails closed on every parse or
// signature error and never panics.
func (m *Manager) Validate(tokenStr string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claimsAcceptable(claims)
}

func claimsAcceptable(claims *Claims) bool {
	if claims.Subject == "" || claims.SessionID == "" {
		return false
	}
	if claims.IssuedAt == nil || claims.Authorities == nil {
		return false
	}
	if _, known := knownStatuses[claims.UserStatus]; !known {
		return false
	}
	return claims.UserStatus == StatusActive
}
