package routes

import (
	"github.com/sowerhq/sower/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// Note: Webhook routes do NOT have authentication middleware.
// The webhook handler verifies the gateway signature on the raw
// request body itself.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/paystack", deps.PaystackHandler)
}

// RegisterOpsRoutes registers health and metrics endpoints. These are
// meant to be reachable only from inside the deployment network.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.HealthHandler)
	r.Handle("GET", "/metrics", deps.MetricsHandler)
}
