package routes

import (
	"net/http"

	"github.com/sowerhq/sower/internal/handler/api"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	ProjectHandler      *api.ProjectHandler
	SubscriptionHandler *api.SubscriptionHandler
	PaymentHandler      *api.PaymentHandler
	NotificationHandler *api.NotificationHandler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	PaystackHandler http.HandlerFunc
}

// OpsDeps contains dependencies for operational routes
type OpsDeps struct {
	MetricsHandler http.Handler
	HealthHandler  http.HandlerFunc
}
