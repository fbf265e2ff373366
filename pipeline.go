package authcore

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexapay/authcore/token"
)

const bearerPrefix = "Bearer "

// Built-in MFA-exempt path prefixes: login, registration, email
// confirmation, current-user lookup, API docs, and the MFA verification/QR
// endpoints themselves.
var mfaExemptPrefixes = []string{
	"/v1/auth",
	"/api/v1/auth",
	"/swagger-ui",
	"/v3/api-docs",
}

// Authenticate runs the per-request authentication pipeline for the given
// Authorization header value and request path.
//
// An absent header is not an error: the request proceeds unauthenticated
// with a nil Principal. A present token must pass signature/claim
// validation (ErrTokenInvalid), its bound session must be valid and not
// blacklisted (ErrSessionInvalid, distinct so clients can tell "log in
// again" from "session revoked elsewhere"), and the MFA gate must pass
// (ErrMFARequired, recoverable). Any unexpected failure is converted into
// a fail-closed ErrTokenInvalid with no internal detail.
func (e *Engine) Authenticate(ctx context.Context, authorizationHeader, path string) (principal *Principal, err error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	tokenStr, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.metricInc(MetricPipelinePanic)
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventPipelinePanic,
				Path:      path,
				Error:     fmt.Sprint(r),
			})
			principal = nil
			err = ErrTokenInvalid
		}
	}()

	if !e.tokens.Validate(tokenStr) {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventAuthRejected, Path: path, Error: "token invalid"})
		return nil, ErrTokenInvalid
	}
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, ErrTokenInvalid
	}

	sess, err := e.sessions.ValidateAndRefresh(ctx, claims.SessionID)
	if err != nil {
		// Infrastructure failure: deny, never authorize.
		e.metricInc(MetricSessionRejected)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventAuthRejected, Path: path, Error: "session backend failure"})
		return nil, ErrSessionInvalid
	}
	if sess == nil {
		e.metricInc(MetricSessionRejected)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventAuthRejected, SessionID: claims.SessionID, Path: path, Error: "session invalid"})
		return nil, ErrSessionInvalid
	}

	// Validate guarantees iat is present.
	revoked, err := e.blacklist.IsRevoked(ctx, claims.SessionID, sess.UserID, claims.IssuedAt.Time)
	if err != nil || revoked {
		e.metricInc(MetricSessionRejected)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventAuthRejected, SessionID: claims.SessionID, Path: path, Error: "token blacklisted"})
		return nil, ErrSessionInvalid
	}

	user, err := e.users.GetUserByIdentifier(ctx, claims.Subject)
	if err != nil {
		e.emitAudit(ctx, AuditEvent{EventType: auditEventAuthRejected, Path: path, Error: "principal resolution failed"})
		return nil, ErrTokenInvalid
	}
	if user.Status != UserActive {
		return nil, ErrTokenInvalid
	}

	principal = &Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Status:      user.Status,
		SessionID:   sess.ID,
		Authorities: e.registry.Resolve(user.Roles),
		MFAEnabled:  user.MFA.Enabled,
		MFAVerified: claims.MFAVerified,
	}

	if principal.MFAEnabled && !principal.MFAVerified && !e.mfaExemptPath(path) {
		e.metricInc(MetricMFARequired)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventMFARequiredDenied, UserID: user.ID, Path: path})
		return nil, ErrMFARequired
	}

	return principal, nil
}

func (e *Engine) mfaExemptPath(path string) bool {
	for _, prefix := range mfaExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if strings.Contains(path, "/mfa") {
		return true
	}
	for _, prefix := range e.config.ExtraMFAExemptPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (e *Engine) snapshotUser(user *UserRecord, mfaVerified bool) token.Snapshot {
	return token.Snapshot{
		Subject:     user.Username,
		Authorities: e.registry.Resolve(user.Roles),
		UserStatus:  user.Status.String(),
		MFAEnabled:  user.MFA.Enabled,
		MFAVerified: mfaVerified,
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	tokenStr := header[len(bearerPrefix):]
	if tokenStr == "" {
		return "", false
	}
	return tokenStr, true
}
