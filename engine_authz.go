package authcore

import (
	"context"

	"github.com/nexapay/authcore/permission"
)

// IsOwner reports whether the path-scoped subject belongs to the
// principal.
func (e *Engine) IsOwner(principal *Principal, subjectID string) bool {
	return principal != nil && subjectID != "" && principal.UserID == subjectID
}

// RequireOwnership returns ErrOwnershipViolation unless the subject
// belongs to the principal.
func (e *Engine) RequireOwnership(ctx context.Context, principal *Principal, subjectID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.IsOwner(principal, subjectID) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventAuthzDenied,
			UserID:    principalUserID(principal),
			Error:     "ownership violation",
		})
		return ErrOwnershipViolation
	}
	return nil
}

// RequireMFAVerified enforces the verified-MFA marker on sensitive
// operations even when the pipeline already let the request through.
func (e *Engine) RequireMFAVerified(ctx context.Context, principal *Principal) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if principal == nil || (principal.MFAEnabled && !principal.MFAVerified) {
		e.metricInc(MetricMFARequired)
		return ErrMFARequired
	}
	return nil
}

// HasMFAEnabled reports whether the principal has MFA configured.
func (e *Engine) HasMFAEnabled(principal *Principal) bool {
	return principal != nil && principal.MFAEnabled
}

// CheckPermission reports whether the principal's authority set satisfies
// the (resource, action) permission, with ROLE_ADMIN as the explicit
// override.
func (e *Engine) CheckPermission(principal *Principal, resource, action string) bool {
	if principal == nil {
		return false
	}
	return permission.Has(principal.Authorities, permission.Name(resource, action))
}

// HasAnyPermission reports whether the principal holds at least one of the
// listed permissions.
func (e *Engine) HasAnyPermission(principal *Principal, perms ...string) bool {
	if principal == nil {
		return false
	}
	return permission.HasAny(principal.Authorities, perms...)
}

// AuthorizeRequest derives the required permission from the HTTP verb and
// path (GET->READ, POST->CREATE, PUT->UPDATE, DELETE->DELETE over the
// fixed resource prefix table) and checks it against the principal's
// authority set. Paths outside the table carry no permission requirement.
func (e *Engine) AuthorizeRequest(ctx context.Context, principal *Principal, method, path string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	required, ok := permission.Required(method, path)
	if !ok {
		return nil
	}
	if principal == nil || !permission.Has(principal.Authorities, required) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventAuthzDenied,
			UserID:    principalUserID(principal),
			Path:      path,
			Error:     "missing " + required,
		})
		return ErrPermissionDenied
	}
	return nil
}

func principalUserID(principal *Principal) string {
	if principal == nil {
		return ""
	}
	return principal.UserID
}
