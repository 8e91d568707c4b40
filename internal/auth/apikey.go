package auth

import (
	"net/http"

	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/user"
)

// APIKeyAuthProvider authenticates machine clients by the X-API-KEY
// header.
type APIKeyAuthProvider struct { // implements AuthProvider
	users *user.Store
}

func NewAPIKeyAuthProvider(users *user.Store) *APIKeyAuthProvider {
	return &APIKeyAuthProvider{users: users}
}

func (p *APIKeyAuthProvider) WithAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

func (p *APIKeyAuthProvider) Authenticate(r *http.Request) (*model.User, error) {
	return p.users.GetByAPIKey(r.Header.Get(config.HAPIKey))
}
