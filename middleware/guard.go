package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/nexapay/authcore"
)

// DeviceIDHeader carries the opaque client-supplied device identifier.
const DeviceIDHeader = "X-Device-Id"

// Error codes returned in rejection bodies.
const (
	CodeUnauthorized   = "unauthorized"
	CodeSessionInvalid = "session_invalid"
	CodeMFARequired    = "mfa_required"
	CodeForbidden      = "forbidden"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal bound by Guard, if any.
func PrincipalFromContext(ctx context.Context) (*authcore.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authcore.Principal)
	return p, ok
}

// Guard runs the authentication pipeline on every request. Requests
// without credentials pass through unauthenticated; requests with bad
// credentials are rejected here with the taxonomy's distinct signals.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, http.StatusUnauthorized, CodeUnauthorized)
				return
			}

			ctx := requestContext(r)
			principal, err := engine.Authenticate(ctx, r.Header.Get("Authorization"), r.URL.Path)
			if err != nil {
				switch {
				case errors.Is(err, authcore.ErrMFARequired):
					reject(w, http.StatusUnauthorized, CodeMFARequired)
				case errors.Is(err, authcore.ErrSessionInvalid):
					reject(w, http.StatusUnauthorized, CodeSessionInvalid)
				default:
					reject(w, http.StatusUnauthorized, CodeUnauthorized)
				}
				return
			}

			if principal != nil {
				ctx = context.WithValue(ctx, principalContextKey{}, principal)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that reached the handler without a bound
// principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			reject(w, http.StatusUnauthorized, CodeUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authorize applies the permission check derived from the request's verb
// and path. Run it after Guard.
func Authorize(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				reject(w, http.StatusForbidden, CodeForbidden)
				return
			}
			principal, _ := PrincipalFromContext(r.Context())
			if err := engine.AuthorizeRequest(r.Context(), principal, r.Method, r.URL.Path); err != nil {
				reject(w, http.StatusForbidden, CodeForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ctx = authcore.WithClientIP(ctx, host)
	} else if r.RemoteAddr != "" {
		ctx = authcore.WithClientIP(ctx, r.RemoteAddr)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = authcore.WithUserAgent(ctx, ua)
	}
	if device := r.Header.Get(DeviceIDHeader); device != "" {
		ctx = authcore.WithDeviceID(ctx, device)
	}
	return ctx
}

func reject(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
