// Package auth resolves the authenticated platform user behind an
// incoming request. Two providers exist: machine credentials via the
// X-API-KEY header, and interactive sessions via Clerk.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	// WithAuthorization wraps a handler with any request decoration the
	// provider needs before Authenticate can run.
	WithAuthorization() func(http.Handler) http.Handler

	// Authenticate resolves the request to a stored user, or an
	// Unauthorized error.
	Authenticate(r *http.Request) (*model.User, error)
}
