package model

import "time"

type UserID string

type User struct {
	ID UserID

	// GithubID is the stable external identity from the OAuth provider.
	GithubID string
	Username string
	Avatar   string

	// RepoName is the provisioned content repository. Only set for
	// users on the github storage backend.
	RepoName string

	// EncryptedToken is the user's long-lived access token, sealed by
	// the vault. Never store or log the plaintext.
	EncryptedToken string

	// APIKey grants machine access to the authoring API. Optional.
	APIKey string

	// WebhookURL, when set, receives a POST after every successful
	// post mutation.
	WebhookURL  string
	WebhookLogs []WebhookLog

	CreatedDate time.Time
}

// WebhookLog records one delivery attempt. The newest entry is kept
// first and the list is truncated to a configured limit.
type WebhookLog struct {
	Event     string    `json:"event"`
	Status    int       `json:"status"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
