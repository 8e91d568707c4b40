package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/user"
)

// ClerkAuthProvider authenticates interactive sessions. Stored users are
// keyed by their GitHub account id, so the session user's linked GitHub
// external account is resolved first and joined against the store.
type ClerkAuthProvider struct { // implements AuthProvider
	users *user.Store

	cookieExtractor clerkhttp.AuthorizationOption
	fetchUser       func(ctx context.Context, id string) (*clerk.User, error)
}

func NewClerkAuthProvider(clerkKey string, users *user.Store) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		users:     users,
		fetchUser: clerkuser.Get,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie("__session")
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkAuthProvider) WithAuthorization() func(http.Handler) http.Handler {
	return clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
}

func (c *ClerkAuthProvider) Authenticate(r *http.Request) (*model.User, error) {
	claims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok {
		return nil, apperr.New(apperr.KindUnauthorized, "no session")
	}

	usr, err := c.fetchUser(r.Context(), claims.Subject)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "resolving session user", err)
	}

	githubID, ok := githubAccountID(usr)
	if !ok {
		authLogger.Warn().Str("clerk_id", usr.ID).Msg("Session user has no linked GitHub account")
		return nil, apperr.New(apperr.KindUnauthorized, "no linked github account")
	}

	stored, err := c.users.GetByGithubID(githubID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		authLogger.Warn().Str("clerk_id", usr.ID).Str("github_id", githubID).Msg("Session user has no platform identity")
		return nil, apperr.New(apperr.KindUnauthorized, "unknown identity")
	}
	return stored, err
}

// githubAccountID extracts the GitHub user id from the session user's
// linked external accounts. Clerk reports OAuth providers with an
// "oauth_" prefix.
func githubAccountID(usr *clerk.User) (string, bool) {
	for _, acct := range usr.ExternalAccounts {
		if acct == nil {
			continue
		}
		if strings.TrimPrefix(acct.Provider, "oauth_") == "github" && acct.ProviderUserID != "" {
			return acct.ProviderUserID, true
		}
	}
	return "", false
}
