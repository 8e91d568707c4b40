package config

const (
	HCType    = "Content-Type"
	HAPIKey   = "X-API-KEY"
	HEvent    = "X-Pulsive-Event"
	HWebUA    = "User-Agent"
	WebhookUA = "PulsiveBlog-Webhook-Bot/1.0"

	CTypeJSON = "application/json"
	CTypeHTML = "text/html"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
)
