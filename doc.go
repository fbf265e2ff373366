// Package authcore is the identity and session core for a multi-role
// platform: it authenticates credentials, issues and validates HS512 bearer
// tokens, manages per-device session lifecycles with sliding expiration,
// and enforces a TOTP second factor with single-use recovery codes.
//
// The Engine is the integration surface. Callers supply a UserProvider for
// user/role lookups, role definitions for the permission registry, and
// either a Redis client or the in-memory stores. Token verification is pure
// computation; all stateful checks (session validity, blacklist) are
// delegated to pluggable stores. Every time comparison runs against an
// injectable clock so expiry, refresh, and TOTP-window behavior is
// reproducible in tests.
package authcore
