package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// flushTimeout bounds how long shutdown and panic paths wait for the SDK
// to drain its event queue.
const flushTimeout = 2 * time.Second

// SentryConfig configures error tracking. Zero-value SampleRate means
// capture everything; TracesSampleRate zero disables performance tracing.
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

// enabled is set once by InitSentry before the server starts handling
// requests, and only read afterwards.
var enabled bool

// InitSentry wires up the Sentry SDK and returns a cleanup function to call
// on shutdown. A disabled config, or an enabled one without a DSN, leaves
// every capture function as a no-op rather than failing startup.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	nop := func() {}

	if !cfg.Enabled {
		logger.Info("error tracking disabled")
		return nop, nil
	}
	if cfg.DSN == "" {
		logger.Warn("error tracking enabled but no DSN configured, disabling")
		return nop, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	enabled = true

	logger.Info("error tracking initialized",
		slog.String("environment", cfg.Environment),
		slog.String("release", cfg.Release),
		slog.Float64("sample_rate", sampleRate))

	return func() { sentry.Flush(flushTimeout) }, nil
}

// IsEnabled reports whether events are actually being sent.
func IsEnabled() bool {
	return enabled
}

// CaptureErrorWithOp reports an error tagged with the operation that failed,
// plus any extra key/value context. Safe to call when tracking is disabled.
func CaptureErrorWithOp(err error, op string, extras map[string]interface{}) {
	if !enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("op", op)
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// SentryMiddleware binds a per-request hub to the context so captures carry
// request details, and reports panics before letting them take the request
// down with a 500.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			hub := requestHub(r.Context())
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if rec := recover(); rec != nil {
					hub.RecoverWithContext(ctx, rec)
					sentry.Flush(flushTimeout)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserInfo identifies the authenticated donor on captured events.
type UserInfo struct {
	ID    string
	Email string
}

// UserContextExtractor pulls the authenticated user out of a request
// context. Returning nil leaves the event anonymous.
type UserContextExtractor func(ctx context.Context) *UserInfo

// SentryContextMiddleware attaches request and user context to the hub for
// every capture made during the request. Apply it after authentication so
// the extractor can see the resolved user.
func SentryContextMiddleware(userExtractor UserContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			hub := requestHub(r.Context())
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetContext("request", map[string]interface{}{
					"url":    r.URL.String(),
					"method": r.Method,
					"path":   r.URL.Path,
				})
			})

			if userExtractor != nil {
				if user := userExtractor(r.Context()); user != nil {
					hub.ConfigureScope(func(scope *sentry.Scope) {
						scope.SetUser(sentry.User{ID: user.ID, Email: user.Email})
					})
				}
			}

			ctx := sentry.SetHubOnContext(r.Context(), hub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestHub returns the hub already bound to the context, or a clone of
// the global hub so per-request scope changes stay isolated.
func requestHub(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}
