package authcore

import (
	"context"
	"time"

	"github.com/nexapay/authcore/permission"
	"github.com/nexapay/authcore/session"
	"github.com/nexapay/authcore/token"
)

// Engine is the identity/session core. Build one with a Builder, share it
// across requests; it is immutable after construction and safe for
// concurrent use.
type Engine struct {
	config    Config
	tokens    *token.Manager
	blacklist token.Blacklist
	sessions  *session.Manager
	registry  *permission.Registry
	hasher    passwordVerifier
	totp      *totpManager
	users     UserProvider
	audit     *auditDispatcher
	metrics   *Metrics
	clock     func() time.Time
}

// passwordVerifier is what the login path needs from the credential hasher.
type passwordVerifier interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Sessions exposes the session manager for administrative operations
// (listing a user's devices, targeted revocation).
func (e *Engine) Sessions() *session.Manager {
	if e == nil {
		return nil
	}
	return e.sessions
}

// Hash derives a password hash for account creation, which is handled by
// the embedding application.
func (e *Engine) Hash(password string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(password)
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were dropped due to a full
// buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}
