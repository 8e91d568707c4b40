// Package routes defines HTTP route constants for the application.
package routes

// API Routes
const (
	// Posts
	APIPosts      = "/api/posts"
	APIPostsByRef = "/api/posts/{identifier...}"

	// Media
	APIMedia = "/api/media"

	// Public feed
	APIFeed = "/api/feed"

	// Webhook settings and delivery log
	APIWebhook = "/api/webhook"

	// Draft preview rendering
	APIPreview = "/api/preview"

	// Account lifecycle
	APIAccountConnect = "/api/account/connect"
	APIAccountKey     = "/api/account/apikey"

	// Health
	HealthPath = "/healthz"
)
