package github

import (
	"context"
	"encoding/json"
	"fmt"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
)

// Provision creates the user's content repository and seeds its
// directory layout. The repository name is derived deterministically
// from the handle. Provisioning is best-effort idempotent: an already
// existing repository or seed file is logged and skipped so a retry
// after a partial run still succeeds. Only a total failure to create
// the repository propagates, since without it no posts can be stored.
func (c *Client) Provision(ctx context.Context) (string, error) {
	login, err := c.Login(ctx)
	if err != nil {
		return "", err
	}

	repoName := RepoNameFor(login)

	_, _, err = c.gh.Repositories.Create(ctx, "", &gogithub.Repository{
		Name:        gogithub.Ptr(repoName),
		Description: gogithub.Ptr("Content store for your Pulsive blog"),
		Private:     gogithub.Ptr(false),
		AutoInit:    gogithub.Ptr(true),
	})
	if err != nil {
		mapped := mapError("creating repository "+repoName, err)
		if !apperr.IsKind(mapped, apperr.KindConflict) {
			return "", mapped
		}
		ghLogger.Info().Str("repo", repoName).Msg("Repository already exists, reusing")
	}

	marker, _ := json.MarshalIndent(map[string]string{
		"platform":   "pulsiveblog",
		"built_with": "GitHub API",
	}, "", "  ")

	seeds := []struct {
		path    string
		content []byte
		message string
	}{
		{config.RepoConfigFile, marker, "chore: Initial platform configuration"},
		{config.RepoReadmeFile, []byte(fmt.Sprintf("# %s\n\nRepository auto-generated as the content store for your blog.\n", repoName)), "chore: Update README"},
		{config.PostsDir + "/" + config.RepoKeepFile, nil, "chore: Keep posts dir"},
		{config.MediaDir + "/" + config.RepoKeepFile, nil, "chore: Keep media dir"},
	}

	for _, seed := range seeds {
		if _, err := c.Create(ctx, repoName, seed.path, seed.content, seed.message); err != nil {
			// Individual seed failures are swallowed: the file may
			// already exist from an earlier partial run.
			ghLogger.Warn().Err(err).Str("repo", repoName).Str("path", seed.path).Msg("Seed file skipped")
		}
	}

	ghLogger.Info().Str("repo", repoName).Str("login", login).Msg("Repository provisioned")
	return repoName, nil
}

// RepoNameFor derives the content repository name for a user handle.
func RepoNameFor(handle string) string {
	return handle + config.RepoNameSuffix
}
