package authcore

import "errors"

var (
	// ErrTokenInvalid covers bad signature, expiry, malformed or missing
	// claims, and non-active user status snapshots. Deliberately generic:
	// callers never learn which check failed.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionInvalid means the bound session is absent, revoked, or
	// expired. Distinct from ErrTokenInvalid so clients can tell "log in
	// again" from "session revoked elsewhere".
	ErrSessionInvalid = errors.New("session invalid")
	// ErrMFARequired means the request authenticated but the second
	// factor is outstanding. Recoverable: clients redirect to an MFA
	// challenge, not a login screen.
	ErrMFARequired = errors.New("mfa verification required")
	// ErrPermissionDenied is returned by permission-based access checks.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOwnershipViolation is returned when a path-scoped self-resource
	// does not belong to the principal.
	ErrOwnershipViolation = errors.New("ownership violation")

	// ErrInvalidCredentials is returned for both unknown identifiers and
	// wrong passwords, so login reveals no account-existence oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnverified rejects logins for pending accounts.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAccountDisabled rejects logins for disabled accounts.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrUserNotFound is returned by user-scoped operations outside the
	// login path.
	ErrUserNotFound = errors.New("user not found")
	// ErrMFANotEnabled is returned when an MFA operation targets a user
	// without MFA configured.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrTOTPInvalid is returned for codes outside the acceptance window
	// or malformed input.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrRecoveryCodeInvalid is returned when no unused recovery code
	// matches.
	ErrRecoveryCodeInvalid = errors.New("invalid recovery code")

	// ErrEngineNotReady is returned when the engine is used before Build
	// completed.
	ErrEngineNotReady = errors.New("engine not initialized")
)
