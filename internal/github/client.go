// Package github wraps the GitHub contents API as the remote system of
// record for file-backed posts. All operations are scoped to one
// authenticated identity and one repository, and mutations follow the
// contents API's sha-based optimistic concurrency: an update or delete
// must carry the last-known content hash and fails with a conflict when
// that hash is stale.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/pulsiveblog/pulsive/internal/apperr"
)

var ghLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	ghLogger = l
}

// Entry describes one immediate child of a repository directory.
type Entry struct {
	Name string
	Path string
	Size int
	SHA  string
}

// Client performs content operations against one user's repositories.
type Client struct {
	gh *gogithub.Client

	mu    sync.Mutex
	login string
}

// NewClient builds a client for the given access token. baseURL
// overrides the API endpoint (tests, GitHub Enterprise); empty means
// api.github.com.
func NewClient(token, baseURL string) (*Client, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	gh := gogithub.NewClient(oauth2.NewClient(context.Background(), source))

	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, err
		}
		gh.BaseURL = u
		gh.UploadURL = u
	}

	return &Client{gh: gh}, nil
}

// Identity describes the authenticated GitHub account.
type Identity struct {
	ID     int64
	Login  string
	Avatar string
}

// Identity fetches the authenticated account's profile.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, mapError("fetching authenticated user", err)
	}

	c.mu.Lock()
	c.login = user.GetLogin()
	c.mu.Unlock()

	return &Identity{
		ID:     user.GetID(),
		Login:  user.GetLogin(),
		Avatar: user.GetAvatarURL(),
	}, nil
}

// Login returns the authenticated user's handle, fetched once and cached.
func (c *Client) Login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.login != "" {
		return c.login, nil
	}

	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", mapError("fetching authenticated user", err)
	}
	c.login = user.GetLogin()
	return c.login, nil
}

// Create writes a new file. The contents API distinguishes create from
// update by the presence of a sha, so creating over an existing path
// fails with a conflict. Returns the new content hash.
func (c *Client) Create(ctx context.Context, repo, path string, raw []byte, message string) (string, error) {
	owner, err := c.Login(ctx)
	if err != nil {
		return "", err
	}

	res, _, err := c.gh.Repositories.CreateFile(ctx, owner, repo, path, &gogithub.RepositoryContentFileOptions{
		Message: gogithub.Ptr(message),
		Content: raw,
	})
	if err != nil {
		return "", mapError("creating "+path, err)
	}

	ghLogger.Debug().Str("repo", repo).Str("path", path).Msg("File created")
	return res.Content.GetSHA(), nil
}

// Read returns the decoded file content and its current hash.
func (c *Client) Read(ctx context.Context, repo, path string) ([]byte, string, error) {
	owner, err := c.Login(ctx)
	if err != nil {
		return nil, "", err
	}

	file, dir, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
	if err != nil {
		return nil, "", mapError("reading "+path, err)
	}
	if dir != nil {
		return nil, "", apperr.Newf(apperr.KindValidation, "path %s is a directory, not a document", path)
	}

	decoded, err := file.GetContent()
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindUpstreamUnavailable, "decoding content of "+path, err)
	}
	return []byte(decoded), file.GetSHA(), nil
}

// Update replaces a file's content. When sha is empty the current hash
// is fetched first; either way a hash that is stale by the time the
// write lands surfaces as a conflict rather than overwriting.
func (c *Client) Update(ctx context.Context, repo, path string, raw []byte, message, sha string) (string, error) {
	owner, err := c.Login(ctx)
	if err != nil {
		return "", err
	}

	if sha == "" {
		_, sha, err = c.Read(ctx, repo, path)
		if err != nil {
			return "", err
		}
	}

	res, _, err := c.gh.Repositories.UpdateFile(ctx, owner, repo, path, &gogithub.RepositoryContentFileOptions{
		Message: gogithub.Ptr(message),
		Content: raw,
		SHA:     gogithub.Ptr(sha),
	})
	if err != nil {
		return "", mapError("updating "+path, err)
	}

	ghLogger.Debug().Str("repo", repo).Str("path", path).Msg("File updated")
	return res.Content.GetSHA(), nil
}

// Delete removes a file, with the same hash semantics as Update.
func (c *Client) Delete(ctx context.Context, repo, path, message, sha string) error {
	owner, err := c.Login(ctx)
	if err != nil {
		return err
	}

	if sha == "" {
		_, sha, err = c.Read(ctx, repo, path)
		if err != nil {
			return err
		}
	}

	_, _, err = c.gh.Repositories.DeleteFile(ctx, owner, repo, path, &gogithub.RepositoryContentFileOptions{
		Message: gogithub.Ptr(message),
		SHA:     gogithub.Ptr(sha),
	})
	if err != nil {
		return mapError("deleting "+path, err)
	}

	ghLogger.Debug().Str("repo", repo).Str("path", path).Msg("File deleted")
	return nil
}

// List returns the immediate children of a directory in the
// authenticated user's repository. A directory that does not exist
// yields an empty list, not an error: "no posts yet" is a normal state.
func (c *Client) List(ctx context.Context, repo, dir string) ([]Entry, error) {
	owner, err := c.Login(ctx)
	if err != nil {
		return nil, err
	}
	return c.ListAs(ctx, owner, repo, dir)
}

// ListAs is List against an explicit owner's repository. Used by the
// public feed, which reads many owners' repositories through one
// authenticated client.
func (c *Client) ListAs(ctx context.Context, owner, repo, dir string) ([]Entry, error) {
	file, entries, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, dir, nil)
	if err != nil {
		mapped := mapError("listing "+dir, err)
		if apperr.IsKind(mapped, apperr.KindNotFound) {
			return []Entry{}, nil
		}
		return nil, mapped
	}
	if file != nil {
		return nil, apperr.Newf(apperr.KindValidation, "path %s is a document, not a directory", dir)
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			Name: e.GetName(),
			Path: e.GetPath(),
			Size: e.GetSize(),
			SHA:  e.GetSHA(),
		})
	}
	return out, nil
}

// mapError translates GitHub API failures into the shared taxonomy.
// Kinds are never collapsed into each other: a conflict stays a
// conflict so callers can surface it instead of blindly retrying.
func mapError(op string, err error) error {
	var ghErr *gogithub.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperr.Wrap(apperr.KindNotFound, op, err)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return apperr.Wrap(apperr.KindConflict, op, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.Wrap(apperr.KindUnauthorized, op, err)
		}
		return apperr.Wrap(apperr.KindUpstreamUnavailable, op, err)
	}

	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, op, err)
	}

	return apperr.Wrap(apperr.KindUpstreamUnavailable, op, err)
}
