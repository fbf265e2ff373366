package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful credential authentications.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credential authentications.
	MetricLoginFailure
	// MetricTokenIssued counts issued bearer tokens.
	MetricTokenIssued
	// MetricTokenRejected counts tokens failing validation.
	MetricTokenRejected
	// MetricSessionCreated counts newly inserted sessions.
	MetricSessionCreated
	// MetricSessionExtended counts create-or-extend hits on an existing
	// device session.
	MetricSessionExtended
	// MetricSessionRejected counts requests denied on session state.
	MetricSessionRejected
	// MetricSessionRevoked counts explicit revocations.
	MetricSessionRevoked
	// MetricTOTPSuccess counts accepted TOTP codes.
	MetricTOTPSuccess
	// MetricTOTPFailure counts rejected TOTP codes.
	MetricTOTPFailure
	// MetricRecoveryCodeUsed counts consumed recovery codes.
	MetricRecoveryCodeUsed
	// MetricRecoveryCodeFailed counts rejected recovery codes.
	MetricRecoveryCodeFailed
	// MetricMFARequired counts requests rejected pending MFA.
	MetricMFARequired
	// MetricPermissionDenied counts authorization denials.
	MetricPermissionDenied
	// MetricPipelinePanic counts unexpected failures converted into
	// fail-closed denials.
	MetricPipelinePanic
	metricIDCount
)

// Metrics is a fixed-size set of atomic counters.
type Metrics struct {
	counters [metricIDCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{}
}

// Inc increments the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
