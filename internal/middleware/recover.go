package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/handler"
)

// Recovery converts handler panics into a 500 response. It logs the panic
// with a stack trace and re-raises http.ErrAbortHandler so in-flight
// connection aborts propagate untouched.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					handler.ErrorResponse(w, r, domain.Errorf(domain.EINTERNAL, "http.recover", "Internal server error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
