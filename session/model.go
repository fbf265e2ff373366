package session

import "time"

// Session is one authenticated device context. Stored rows are only ever
// mutated to extend ExpiresAt or to set Revoked; Revoked never transitions
// back to false.
type Session struct {
	ID        string
	UserID    string
	DeviceID  string
	IP        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Valid reports whether the session may authenticate requests at the given
// instant. The expiry boundary itself is invalid.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.Revoked {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// Remaining returns the time left until expiry, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil {
		return 0
	}
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
