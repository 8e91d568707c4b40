package repository

import (
	"context"
	"sync"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/content"
	"github.com/pulsiveblog/pulsive/internal/model"
)

// AggregatePublished assembles the public feed across every known
// owner. One listing call is issued per owner, concurrently; a single
// owner's failure (deleted repository, revoked token) contributes
// nothing instead of failing the aggregate, and is only counted in
// logs.
func (r *GithubPostRepository) AggregatePublished(ctx context.Context) ([]model.Post, error) {
	users, err := r.users.ListAll()
	if err != nil {
		return nil, err
	}

	client, err := r.fallbackClient(users)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		posts  []model.Post
		failed int
	)

	for _, u := range users {
		if u.RepoName == "" {
			continue
		}
		wg.Add(1)
		go func(u model.User) {
			defer wg.Done()

			entries, err := client.ListAs(ctx, u.Username, u.RepoName, config.PostsDir)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				repoLogger.Warn().Err(err).Str("username", u.Username).Msg("Owner dropped from aggregate")
				return
			}

			var owned []model.Post
			for _, entry := range entries {
				if !content.IsPostFile(entry.Name) {
					continue
				}
				created := content.DateFromPath(entry.Path)
				owned = append(owned, model.Post{
					ID:           model.PostID(entry.Path),
					Title:        content.SlugFromPath(entry.Path),
					Slug:         content.SlugFromPath(entry.Path),
					Status:       model.StatusPublished,
					CreatedDate:  created,
					ModifiedDate: created,
					Path:         entry.Path,
					SHA:          entry.SHA,
					Owner:        u.ID,
				})
			}

			mu.Lock()
			posts = append(posts, owned...)
			mu.Unlock()
		}(u)
	}
	wg.Wait()

	if failed > 0 {
		repoLogger.Info().Int("failed_owners", failed).Int("posts", len(posts)).Msg("Aggregate completed with dropped owners")
	}
	return posts, nil
}

// fallbackClient builds one authenticated client for the aggregate to
// avoid unauthenticated rate limits: any user's valid token will do,
// since content repositories are public.
func (r *GithubPostRepository) fallbackClient(users []model.User) (ContentClient, error) {
	for _, u := range users {
		if u.EncryptedToken == "" {
			continue
		}
		token, err := r.vault.Decrypt(u.EncryptedToken)
		if err != nil {
			repoLogger.Warn().Str("username", u.Username).Msg("Skipping undecryptable token for aggregate")
			continue
		}
		return r.newClient(token, r.apiURL)
	}
	return nil, apperr.New(apperr.KindUnauthorized, "no usable credential for aggregate listing")
}
