package authcore

import (
	"context"
	"errors"
)

// MFAEnrollment is returned by EnableMFA. The secret and recovery codes
// are shown to the user exactly once; only hashes are kept at rest.
type MFAEnrollment struct {
	Secret        string
	ProvisionURI  string
	RecoveryCodes []string
}

// EnableMFA generates TOTP key material and a batch of single-use recovery
// codes, persists them against the user's MFA settings, and revokes the
// user's existing sessions so every device re-authenticates through the
// second factor.
func (e *Engine) EnableMFA(ctx context.Context, userID string) (*MFAEnrollment, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	codes, hashes := generateRecoveryCodes(e.config.Recovery.Count)

	settings := MFASettings{
		Enabled:            true,
		Secret:             secretBase32,
		RecoveryCodeHashes: hashes,
	}
	if err := e.users.SaveMFASettings(ctx, user.ID, settings); err != nil {
		return nil, err
	}

	if _, err := e.sessions.RevokeAllSessions(ctx, user.ID); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, AuditEvent{EventType: auditEventMFAEnabled, UserID: user.ID, Success: true})

	return &MFAEnrollment{
		Secret:        secretBase32,
		ProvisionURI:  e.totp.ProvisionURI(secretBase32, user.Username),
		RecoveryCodes: codes,
	}, nil
}

// DisableMFA clears the user's MFA settings.
func (e *Engine) DisableMFA(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.users.SaveMFASettings(ctx, user.ID, MFASettings{}); err != nil {
		return err
	}
	e.emitAudit(ctx, AuditEvent{EventType: auditEventMFADisabled, UserID: user.ID, Success: true})
	return nil
}

// MFAProvisionURI returns the otpauth:// payload for the enrollment QR
// code of an MFA-enabled user.
func (e *Engine) MFAProvisionURI(ctx context.Context, userID string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.MFA.Enabled {
		return "", ErrMFANotEnabled
	}
	return e.totp.ProvisionURI(user.MFA.Secret, user.Username), nil
}

// RemainingRecoveryCodes reports how many unused recovery codes the user
// still holds.
func (e *Engine) RemainingRecoveryCodes(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !user.MFA.Enabled {
		return 0, ErrMFANotEnabled
	}
	return len(user.MFA.RecoveryCodeHashes), nil
}

// VerifyRecoveryCode matches the code against the user's unused recovery
// codes and consumes it on success, so the same code can never validate
// twice.
func (e *Engine) VerifyRecoveryCode(ctx context.Context, userID, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFA.Enabled {
		return ErrMFANotEnabled
	}

	consumed, err := e.users.ConsumeRecoveryCode(ctx, user.ID, hashRecoveryCode(code))
	if err != nil {
		return err
	}
	if !consumed {
		e.metricInc(MetricRecoveryCodeFailed)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventRecoveryCodeFail, UserID: user.ID})
		return ErrRecoveryCodeInvalid
	}

	e.metricInc(MetricRecoveryCodeUsed)
	e.emitAudit(ctx, AuditEvent{EventType: auditEventRecoveryCodeUsed, UserID: user.ID, Success: true})
	return nil
}

// VerifyMFA completes the second factor for the presented token: code is
// accepted as a TOTP code within the drift window or as an unused recovery
// code (consumed on success). On success a new token carrying the
// verified-MFA marker is issued against the same session.
func (e *Engine) VerifyMFA(ctx context.Context, tokenStr, code string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	if !e.tokens.Validate(tokenStr) {
		return "", ErrTokenInvalid
	}
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return "", ErrTokenInvalid
	}

	sess, err := e.sessions.ValidateAndRefresh(ctx, claims.SessionID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrSessionInvalid
	}

	revoked, err := e.blacklist.IsRevoked(ctx, claims.SessionID, sess.UserID, claims.IssuedAt.Time)
	if err != nil || revoked {
		return "", ErrSessionInvalid
	}

	user, err := e.users.GetUserByIdentifier(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	if !user.MFA.Enabled {
		return "", ErrMFANotEnabled
	}

	ok, err := e.totp.VerifyCode(user.MFA.Secret, code, e.clock())
	if err != nil {
		return "", err
	}
	if !ok {
		// Recovery codes are longer than TOTP digits, so a failed TOTP
		// match on well-formed recovery input falls through here.
		if recErr := e.VerifyRecoveryCode(ctx, user.ID, code); recErr != nil {
			if errors.Is(recErr, ErrRecoveryCodeInvalid) {
				e.metricInc(MetricTOTPFailure)
				e.emitAudit(ctx, AuditEvent{EventType: auditEventTOTPFailed, UserID: user.ID})
				return "", ErrTOTPInvalid
			}
			return "", recErr
		}
	} else {
		e.metricInc(MetricTOTPSuccess)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventTOTPVerified, UserID: user.ID, Success: true})
	}

	verified, err := e.tokens.Issue(e.snapshotUser(user, true), sess.ID)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricTokenIssued)
	return verified, nil
}
