package routes

import (
	"github.com/sowerhq/sower/internal/router"
)

// RegisterAPIRoutes registers the JSON API routes.
//
// Project browsing and payment verification are public: donors land on
// the verify endpoint straight from the gateway redirect, before any
// authenticated session exists. Everything touching a donor's own data
// requires authentication. Verify gets its own strict rate limit since
// every hit costs a gateway API call.
func RegisterAPIRoutes(r *router.Router, deps APIDeps, requireAuth, strictLimit router.Middleware) {
	// Projects
	r.Get("/api/projects", deps.ProjectHandler.List)
	r.Get("/api/projects/{id}", deps.ProjectHandler.Get)
	r.Post("/api/projects", deps.ProjectHandler.Create, requireAuth)

	// Payment verification (gateway redirect callback)
	r.Get("/api/payments/verify", deps.PaymentHandler.Verify, strictLimit)

	// Subscriptions
	r.Post("/api/subscriptions", deps.SubscriptionHandler.Create, requireAuth)
	r.Get("/api/subscriptions", deps.SubscriptionHandler.List, requireAuth)
	r.Get("/api/subscriptions/{id}", deps.SubscriptionHandler.Get, requireAuth)
	r.Patch("/api/subscriptions/{id}", deps.SubscriptionHandler.Update, requireAuth)
	r.Post("/api/subscriptions/{id}/pause", deps.SubscriptionHandler.Pause, requireAuth)
	r.Post("/api/subscriptions/{id}/resume", deps.SubscriptionHandler.Resume, requireAuth)
	r.Post("/api/subscriptions/{id}/cancel", deps.SubscriptionHandler.Cancel, requireAuth)

	// Payments
	r.Get("/api/payments", deps.PaymentHandler.List, requireAuth)
	r.Get("/api/payments/{id}", deps.PaymentHandler.Get, requireAuth)

	// Notifications
	r.Get("/api/notifications", deps.NotificationHandler.List, requireAuth)
	r.Post("/api/notifications/{id}/read", deps.NotificationHandler.MarkRead, requireAuth)
	r.Post("/api/notifications/read-all", deps.NotificationHandler.MarkAllRead, requireAuth)
}
