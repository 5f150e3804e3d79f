package middleware

import (
	"context"
	"net/http"
)

const clientIPContextKey contextKey = "client_ip"

// WithClientIP resolves the donor's real IP once, early in the chain, so
// downstream consumers (rate limiter keys, audit logs) agree on it. The
// resolution honors X-Forwarded-For and X-Real-IP; those headers are only
// trustworthy when the service sits behind a proxy that sets them, so
// direct exposure of the app should be blocked in production.
func WithClientIP() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPContextKey, GetClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIPFromContext returns the resolved client IP, or "" when the
// middleware is not in the chain.
func GetClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}
