package authcore

import (
	"context"

	"github.com/nexapay/authcore/token"
)

// UserStatus is the lifecycle state of a user account. Only active users
// may hold valid tokens.
type UserStatus uint8

const (
	// UserPending accounts have registered but not confirmed their email.
	UserPending UserStatus = iota
	// UserActive accounts may authenticate.
	UserActive
	// UserDisabled accounts are administratively blocked.
	UserDisabled
)

// String returns the wire form carried in the userStatus token claim.
func (s UserStatus) String() string {
	switch s {
	case UserPending:
		return token.StatusPending
	case UserActive:
		return token.StatusActive
	case UserDisabled:
		return token.StatusDisabled
	default:
		return "UNKNOWN"
	}
}

// MFASettings is the one-to-one MFA configuration of a user. Recovery codes
// are stored hashed at rest; only unused hashes are kept, so consumption is
// removal.
type MFASettings struct {
	Enabled            bool
	Secret             string // base32 TOTP key material
	RecoveryCodeHashes []string
}

// UserRecord is the resolved user representation returned by the
// UserProvider: identity, status, role memberships, and MFA configuration
// fetched in one read-through lookup.
type UserRecord struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Status       UserStatus
	Roles        []string
	MFA          MFASettings
}

// Principal is the authenticated identity bound to a request for the
// remainder of processing.
type Principal struct {
	UserID      string
	Username    string
	Email       string
	Status      UserStatus
	SessionID   string
	Authorities []string
	MFAEnabled  bool
	MFAVerified bool
}

// UserProvider is the user/role collaborator the engine consumes. Lookups
// must return the user with roles already resolved; the engine never walks
// the role graph lazily.
type UserProvider interface {
	// GetUserByID returns the user or ErrUserNotFound.
	GetUserByID(ctx context.Context, userID string) (*UserRecord, error)
	// GetUserByIdentifier resolves an email or username, or
	// ErrUserNotFound.
	GetUserByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
	// SaveMFASettings replaces the user's MFA configuration.
	SaveMFASettings(ctx context.Context, userID string, settings MFASettings) error
	// ConsumeRecoveryCode removes the unused recovery code matching the
	// hash and reports whether one matched. The match-and-remove must be
	// atomic so a code can never validate twice.
	ConsumeRecoveryCode(ctx context.Context, userID, codeHash string) (bool, error)
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	Token       string
	SessionID   string
	UserID      string
	MFARequired bool
	// NewDevice is true when the login did not extend an existing session
	// for the device; callers use it to trigger new-device notifications.
	NewDevice bool
}
