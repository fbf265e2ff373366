package authcore

import (
	"context"
	"errors"
	"strconv"
)

// Login authenticates the identifier/password pair, creates or extends the
// session for the calling device (taken from the context, see
// WithDeviceID), and issues a bearer token. Unknown identifiers and wrong
// passwords produce the same ErrInvalidCredentials.
//
// When the user has MFA enabled the returned token is issued without the
// verified-MFA marker and MFARequired is set; the caller completes the
// second factor via VerifyMFA.
func (e *Engine) Login(ctx context.Context, identifier, pass string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetUserByIdentifier(ctx, identifier)
	if errors.Is(err, ErrUserNotFound) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventLoginFailure, Error: "unknown identifier"})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventLoginFailure, UserID: user.ID, Error: "bad password"})
		return nil, ErrInvalidCredentials
	}

	switch user.Status {
	case UserActive:
	case UserPending:
		return nil, ErrAccountUnverified
	case UserDisabled:
		return nil, ErrAccountDisabled
	default:
		return nil, ErrInvalidCredentials
	}

	sess, extended, err := e.sessions.CreateSession(ctx,
		user.ID,
		deviceIDFromContext(ctx),
		clientIPFromContext(ctx),
		userAgentFromContext(ctx),
	)
	if err != nil {
		return nil, err
	}
	if extended {
		e.metricInc(MetricSessionExtended)
	} else {
		e.metricInc(MetricSessionCreated)
	}

	tok, err := e.tokens.Issue(e.snapshotUser(user, false), sess.ID)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricTokenIssued)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginSuccess,
		UserID:    user.ID,
		SessionID: sess.ID,
		Success:   true,
		Metadata:  map[string]string{"new_device": strconv.FormatBool(!extended)},
	})

	return &LoginResult{
		Token:       tok,
		SessionID:   sess.ID,
		UserID:      user.ID,
		MFARequired: user.MFA.Enabled,
		NewDevice:   !extended,
	}, nil
}

// Logout revokes the session bound to the presented token and blacklists
// its outstanding tokens. The token must verify; a forged or expired token
// cannot revoke anything.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return ErrTokenInvalid
	}

	if err := e.sessions.RevokeSession(ctx, claims.SessionID); err != nil {
		return err
	}
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditEvent{EventType: auditEventLogout, SessionID: claims.SessionID, Success: true})
	return nil
}

// LogoutAll revokes every valid session of the user and blacklists all of
// the user's outstanding tokens ("log out everywhere").
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	revoked, err := e.sessions.RevokeAllSessions(ctx, userID)
	if err != nil {
		return revoked, err
	}
	e.metricInc(MetricSessionRevoked)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogoutAll,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"revoked": strconv.Itoa(revoked)},
	})
	return revoked, nil
}

// LogoutOthers revokes every session of the token holder except the one
// bound to the presented token ("log out other devices").
func (e *Engine) LogoutOthers(ctx context.Context, tokenStr string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return 0, ErrTokenInvalid
	}

	user, err := e.users.GetUserByIdentifier(ctx, claims.Subject)
	if err != nil {
		return 0, err
	}

	revoked, err := e.sessions.RevokeOtherSessions(ctx, user.ID, claims.SessionID)
	if err != nil {
		return revoked, err
	}
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogoutOthers,
		UserID:    user.ID,
		SessionID: claims.SessionID,
		Success:   true,
		Metadata:  map[string]string{"revoked": strconv.Itoa(revoked)},
	})
	return revoked, nil
}
