// Package session manages per-device session lifecycle: creation with
// at-most-one-valid-session-per-device semantics, sliding expiration,
// and set-based bulk revocation.
//
// State is kept in a pluggable Store (in-memory or Redis). A session is
// valid while it is not revoked and its expiry lies in the future;
// revocation is terminal.
package session
