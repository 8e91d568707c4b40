// Package user persists platform identities: the external GitHub
// identity, the provisioned content repository, the vault-sealed access
// token, machine API keys and webhook settings.
package user

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/db"
	"github.com/pulsiveblog/pulsive/internal/model"
)

var userLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	userLogger = l
}

type Store struct {
	db db.Db
}

func NewStore(database db.Db) *Store {
	return &Store{db: database}
}

const userColumns = `id, github_id, username, avatar, repo_name, encrypted_token, api_key, webhook_url, webhook_logs, created_at`

// Upsert inserts a user keyed by the external GitHub identity, or
// refreshes the mutable profile fields when the identity is already
// known. Returns the stored user either way.
func (s *Store) Upsert(u *model.User) (*model.User, error) {
	existing, err := s.GetByGithubID(u.GithubID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if existing != nil {
		_, err = s.db.Exec(
			`UPDATE users SET username = ?, avatar = ?, encrypted_token = ?, repo_name = ? WHERE id = ?`,
			u.Username, u.Avatar, u.EncryptedToken, u.RepoName, existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
		return s.GetByID(existing.ID)
	}

	id := model.UserID(uuid.New().String())
	_, err = s.db.Exec(
		`INSERT INTO users (id, github_id, username, avatar, repo_name, encrypted_token, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, u.GithubID, u.Username, u.Avatar, u.RepoName, u.EncryptedToken, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	userLogger.Info().Str("user_id", string(id)).Str("username", u.Username).Msg("User created")
	return s.GetByID(id)
}

func (s *Store) GetByID(id model.UserID) (*model.User, error) {
	return s.scanOne(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) GetByGithubID(githubID string) (*model.User, error) {
	return s.scanOne(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID))
}

// GetByAPIKey resolves a machine credential to its user. An unknown
// key is Unauthorized, not NotFound: the caller holds a credential and
// it was rejected.
func (s *Store) GetByAPIKey(apiKey string) (*model.User, error) {
	if apiKey == "" {
		return nil, apperr.New(apperr.KindUnauthorized, "no API key provided")
	}
	u, err := s.scanOne(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE api_key = ?`, apiKey))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid API key")
	}
	return u, err
}

// IssueAPIKey generates and stores a fresh API key for the user.
func (s *Store) IssueAPIKey(id model.UserID) (string, error) {
	key := uuid.New().String()
	res, err := s.db.Exec(`UPDATE users SET api_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return "", fmt.Errorf("issuing api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", apperr.Newf(apperr.KindNotFound, "user %s not found", id)
	}
	return key, nil
}

func (s *Store) SetWebhookURL(id model.UserID, url string) error {
	res, err := s.db.Exec(`UPDATE users SET webhook_url = ? WHERE id = ?`, url, id)
	if err != nil {
		return fmt.Errorf("setting webhook url: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.KindNotFound, "user %s not found", id)
	}
	return nil
}

// AppendWebhookLog prepends a delivery attempt to the user's log and
// truncates it to limit entries, newest first.
func (s *Store) AppendWebhookLog(id model.UserID, entry model.WebhookLog, limit int) error {
	u, err := s.GetByID(id)
	if err != nil {
		return err
	}

	logs := append([]model.WebhookLog{entry}, u.WebhookLogs...)
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	encoded, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encoding webhook logs: %w", err)
	}

	_, err = s.db.Exec(`UPDATE users SET webhook_logs = ? WHERE id = ?`, string(encoded), id)
	if err != nil {
		return fmt.Errorf("saving webhook logs: %w", err)
	}
	return nil
}

// ListAll returns every known identity, used by the public feed's
// cross-owner aggregation.
func (s *Store) ListAll() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) scanOne(row *sql.Row) (*model.User, error) {
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

func scanUser(scan func(dest ...any) error) (*model.User, error) {
	var u model.User
	var avatar, repoName, token, apiKey, webhookURL sql.NullString
	var logsJSON string

	err := scan(&u.ID, &u.GithubID, &u.Username, &avatar, &repoName, &token, &apiKey, &webhookURL, &logsJSON, &u.CreatedDate)
	if err != nil {
		return nil, err
	}

	u.Avatar = avatar.String
	u.RepoName = repoName.String
	u.EncryptedToken = token.String
	u.APIKey = apiKey.String
	u.WebhookURL = webhookURL.String

	if logsJSON != "" && logsJSON != "[]" {
		if err := json.Unmarshal([]byte(logsJSON), &u.WebhookLogs); err != nil {
			return nil, fmt.Errorf("decoding webhook logs: %w", err)
		}
	}
	return &u, nil
}
