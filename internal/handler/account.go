package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/model"
)

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar,omitempty"`
	RepoName    string    `json:"repo_name,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	CreatedDate time.Time `json:"created_at"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          string(u.ID),
		Username:    u.Username,
		Avatar:      u.Avatar,
		RepoName:    u.RepoName,
		WebhookURL:  u.WebhookURL,
		CreatedDate: u.CreatedDate,
	}
}

type connectPayload struct {
	Token string `json:"token"`
}

// serveConnect registers a GitHub account. The raw token is the
// credential: it identifies the caller, provisions the content
// repository when the backend needs one, and is stored sealed. The
// plaintext never touches the database or the logs.
func (h *Handler) serveConnect(w http.ResponseWriter, r *http.Request) {
	var payload connectPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Token == "" {
		writeError(w, apperr.New(apperr.KindValidation, "token is required"))
		return
	}

	client, err := h.newAccountClient(payload.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := client.Identity(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var repoName string
	if h.provisionRepos {
		repoName, err = client.Provision(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
	}

	sealed, err := h.vault.Encrypt(payload.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := h.users.Upsert(&model.User{
		GithubID:       strconv.FormatInt(identity.ID, 10),
		Username:       identity.Login,
		Avatar:         identity.Avatar,
		RepoName:       repoName,
		EncryptedToken: sealed,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	apiKey, err := h.users.IssueAPIKey(u.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	handlerLogger.Info().Str("username", u.Username).Str("repo", repoName).Msg("Account connected")
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    newUserResponse(u),
		"api_key": apiKey,
	})
}

func (h *Handler) serveIssueAPIKey(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	apiKey, err := h.users.IssueAPIKey(owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"api_key": apiKey})
}

type webhookSettings struct {
	URL  string             `json:"url"`
	Logs []model.WebhookLog `json:"logs"`
}

func (h *Handler) serveGetWebhook(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	u, err := h.users.GetByID(owner)
	if err != nil {
		writeError(w, err)
		return
	}

	logs := u.WebhookLogs
	if logs == nil {
		logs = []model.WebhookLog{}
	}
	writeJSON(w, http.StatusOK, webhookSettings{URL: u.WebhookURL, Logs: logs})
}

type webhookPayload struct {
	URL string `json:"url"`
}

// serveSetWebhook sets or clears the owner's delivery target. An empty
// URL disables deliveries.
func (h *Handler) serveSetWebhook(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	var payload webhookPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if payload.URL != "" {
		parsed, err := url.Parse(payload.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			writeError(w, apperr.Newf(apperr.KindValidation, "invalid webhook url %q", payload.URL))
			return
		}
	}

	if err := h.users.SetWebhookURL(owner, payload.URL); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": payload.URL})
}
