// Package middleware adapts the authcore authentication pipeline and
// authorization engine to net/http handlers.
//
// Guard authenticates every request and binds the principal to the request
// context; RequireAuth and Authorize layer the 401/403 outcomes on top.
// MFA-required rejections carry a distinct error code so clients can
// redirect to an MFA challenge instead of a login screen.
package middleware
