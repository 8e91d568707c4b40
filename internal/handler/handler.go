// Package handler is the HTTP boundary of the authoring API. Handlers
// translate requests into facade calls and map the error taxonomy onto
// status codes in one place, so a conflict is always a 409 and a stale
// credential always a 401 no matter which backend produced it.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/auth"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/github"
	"github.com/pulsiveblog/pulsive/internal/media"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/repository"
	"github.com/pulsiveblog/pulsive/internal/routes"
	"github.com/pulsiveblog/pulsive/internal/user"
	"github.com/pulsiveblog/pulsive/internal/vault"
)

var handlerLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	handlerLogger = l
}

// Aggregator supplies the public feed. Both repository variants
// implement it.
type Aggregator interface {
	AggregatePublished(ctx context.Context) ([]model.Post, error)
}

// AccountClient is the slice of the GitHub client the connect flow
// needs. Satisfied by *github.Client; narrowed for tests.
type AccountClient interface {
	Identity(ctx context.Context) (*github.Identity, error)
	Provision(ctx context.Context) (string, error)
}

type Deps struct {
	Repo       repository.PostRepository
	Aggregator Aggregator
	Users      *user.Store
	Media      media.Store
	Auth       auth.AuthProvider
	Vault      *vault.Vault

	// GithubAPIURL overrides the API endpoint for the connect flow.
	GithubAPIURL string

	// ProvisionRepos controls whether connecting an account creates a
	// content repository. Off for the database backend.
	ProvisionRepos bool
}

type Handler struct {
	repo  repository.PostRepository
	agg   Aggregator
	users *user.Store
	media media.Store
	auth  auth.AuthProvider
	vault *vault.Vault

	provisionRepos bool

	// newAccountClient builds a client for a raw token during account
	// connect. Replaced in tests.
	newAccountClient func(token string) (AccountClient, error)
}

func New(deps Deps) *Handler {
	return &Handler{
		repo:           deps.Repo,
		agg:            deps.Aggregator,
		users:          deps.Users,
		media:          deps.Media,
		auth:           deps.Auth,
		vault:          deps.Vault,
		provisionRepos: deps.ProvisionRepos,
		newAccountClient: func(token string) (AccountClient, error) {
			return github.NewClient(token, deps.GithubAPIURL)
		},
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	withAuth := h.auth.WithAuthorization()

	mux.HandleFunc("GET "+routes.HealthPath, h.serveHealth)
	mux.HandleFunc("GET "+routes.APIFeed, h.serveFeed)
	mux.HandleFunc("POST "+routes.APIAccountConnect, h.serveConnect)

	mux.Handle("POST "+routes.APIAccountKey, withAuth(h.authenticated(h.serveIssueAPIKey)))
	mux.Handle("GET "+routes.APIPosts, withAuth(h.authenticated(h.serveListPosts)))
	mux.Handle("POST "+routes.APIPosts, withAuth(h.authenticated(h.serveCreatePost)))
	mux.Handle("GET "+routes.APIPostsByRef, withAuth(h.authenticated(h.serveGetPost)))
	mux.Handle("PUT "+routes.APIPostsByRef, withAuth(h.authenticated(h.serveUpdatePost)))
	mux.Handle("DELETE "+routes.APIPostsByRef, withAuth(h.authenticated(h.serveDeletePost)))
	mux.Handle("POST "+routes.APIMedia, withAuth(h.authenticated(h.serveUploadMedia)))
	mux.Handle("GET "+routes.APIWebhook, withAuth(h.authenticated(h.serveGetWebhook)))
	mux.Handle("PUT "+routes.APIWebhook, withAuth(h.authenticated(h.serveSetWebhook)))
	mux.Handle("POST "+routes.APIPreview, withAuth(h.authenticated(h.servePreview)))
}

// authenticated resolves the caller before the wrapped handler runs.
func (h *Handler) authenticated(next func(http.ResponseWriter, *http.Request, model.UserID)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.auth.Authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		r = r.WithContext(auth.ContextWithUserID(r.Context(), u.ID))
		next(w, r, u.ID)
	})
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps each error kind onto exactly one HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		// KindInvalidCiphertext is an operator problem (wrong key,
		// corrupted token), never the caller's.
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		handlerLogger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		handlerLogger.Error().Err(err).Msg("Response encoding failed")
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, "malformed request body", err)
	}
	return nil
}
