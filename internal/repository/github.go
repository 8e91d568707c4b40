package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/content"
	"github.com/pulsiveblog/pulsive/internal/github"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/user"
	"github.com/pulsiveblog/pulsive/internal/vault"
)

// ContentClient is the slice of the GitHub content client the facade
// depends on. Satisfied by *github.Client; narrowed for tests.
type ContentClient interface {
	Create(ctx context.Context, repo, path string, raw []byte, message string) (string, error)
	Read(ctx context.Context, repo, path string) ([]byte, string, error)
	Update(ctx context.Context, repo, path string, raw []byte, message, sha string) (string, error)
	Delete(ctx context.Context, repo, path, message, sha string) error
	List(ctx context.Context, repo, dir string) ([]github.Entry, error)
	ListAs(ctx context.Context, owner, repo, dir string) ([]github.Entry, error)
}

type GithubPostRepository struct { // implements PostRepository
	users *user.Store
	vault *vault.Vault

	apiURL   string
	notifier Notifier

	// newClient builds a content client for a decrypted token.
	// Replaced in tests.
	newClient func(token, baseURL string) (ContentClient, error)
}

func NewGithubPostRepository(users *user.Store, v *vault.Vault, apiURL string) *GithubPostRepository {
	return &GithubPostRepository{
		users:  users,
		vault:  v,
		apiURL: apiURL,
		newClient: func(token, baseURL string) (ContentClient, error) {
			return github.NewClient(token, baseURL)
		},
	}
}

func (r *GithubPostRepository) SetNotifier(notifier Notifier) {
	r.notifier = notifier
}

func (r *GithubPostRepository) notify(owner model.UserID, action string, data map[string]any) {
	if r.notifier != nil {
		r.notifier.Notify(owner, action, data)
	}
}

// resolve loads the owner and builds a client acting as their stored
// credential.
func (r *GithubPostRepository) resolve(owner model.UserID) (*model.User, ContentClient, error) {
	u, err := r.users.GetByID(owner)
	if err != nil {
		return nil, nil, err
	}
	if u.RepoName == "" {
		return nil, nil, apperr.Newf(apperr.KindValidation, "user %s has no content repository", owner)
	}

	token, err := r.vault.Decrypt(u.EncryptedToken)
	if err != nil {
		return nil, nil, err
	}

	client, err := r.newClient(token, r.apiURL)
	if err != nil {
		return nil, nil, fmt.Errorf("building content client: %w", err)
	}
	return u, client, nil
}

func (r *GithubPostRepository) ListPosts(ctx context.Context, owner model.UserID, filter Filter) (*Page, error) {
	u, client, err := r.resolve(owner)
	if err != nil {
		return nil, err
	}

	entries, err := client.List(ctx, u.RepoName, config.PostsDir)
	if err != nil {
		return nil, err
	}

	// Fetch post documents concurrently; an unreadable file is dropped
	// from the listing rather than failing it.
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		posts []model.Post
	)
	for _, entry := range entries {
		if !content.IsPostFile(entry.Name) {
			continue
		}
		wg.Add(1)
		go func(entry github.Entry) {
			defer wg.Done()
			post, err := r.readPost(ctx, u, client, entry.Path)
			if err != nil {
				repoLogger.Warn().Err(err).Str("path", entry.Path).Msg("Skipping unreadable post")
				return
			}
			mu.Lock()
			posts = append(posts, *post)
			mu.Unlock()
		}(entry)
	}
	wg.Wait()

	return applyFilter(posts, filter), nil
}

func (r *GithubPostRepository) GetPost(ctx context.Context, owner model.UserID, identifier string) (*model.Post, error) {
	u, client, err := r.resolve(owner)
	if err != nil {
		return nil, err
	}

	path, err := r.resolvePath(ctx, u, client, identifier)
	if err != nil {
		return nil, err
	}
	return r.readPost(ctx, u, client, path)
}

func (r *GithubPostRepository) CreatePost(ctx context.Context, owner model.UserID, fields model.PostFields) (*model.Post, error) {
	if fields.Title == "" || fields.Content == "" {
		return nil, apperr.New(apperr.KindValidation, "title and content are required")
	}

	u, client, err := r.resolve(owner)
	if err != nil {
		return nil, err
	}

	slug := fields.Slug
	if slug == "" {
		slug = content.Slugify(fields.Title)
	}
	if !content.IsValidSlug(slug) {
		return nil, apperr.Newf(apperr.KindValidation, "cannot derive a valid slug from %q", fields.Title)
	}

	now := time.Now().UTC()
	path := content.PostPath(now, slug)
	body := content.SanitizeBody(fields.Content)

	doc := content.EncodeDocument(content.DocumentFields{
		Title: fields.Title,
		Date:  now.Format("2006-01-02"),
		Tags:  fields.Tags,
		Body:  body,
	})

	sha, err := client.Create(ctx, u.RepoName, path, []byte(doc), "feat: Add post "+fields.Title)
	if err != nil {
		return nil, err
	}

	post := r.buildPost(u, path, content.DocumentFields{
		Title: fields.Title,
		Date:  now.Format("2006-01-02"),
		Tags:  fields.Tags,
		Body:  body,
	}, sha)

	r.notify(owner, ActionPostCreated, map[string]any{"path": path, "title": post.Title, "slug": post.Slug})
	return post, nil
}

func (r *GithubPostRepository) UpdatePost(ctx context.Context, owner model.UserID, identifier string, fields model.PostFields) (*model.Post, error) {
	u, client, err := r.resolve(owner)
	if err != nil {
		return nil, err
	}

	path, err := r.resolvePath(ctx, u, client, identifier)
	if err != nil {
		return nil, err
	}

	// Re-fetch the current document and hash; the hash read here is the
	// one submitted with the write, so a commit landing in between
	// surfaces as a conflict instead of being overwritten.
	raw, sha, err := client.Read(ctx, u.RepoName, path)
	if err != nil {
		return nil, err
	}
	existing, err := content.DecodeDocument(string(raw))
	if err != nil {
		return nil, err
	}

	merged := existing
	if fields.Title != "" {
		merged.Title = fields.Title
	}
	if fields.Content != "" {
		merged.Body = content.SanitizeBody(fields.Content)
	}
	if fields.Tags != nil {
		merged.Tags = fields.Tags
	}
	if merged.Date == "" {
		merged.Date = content.DateFromPath(path).Format("2006-01-02")
	}

	newSHA, err := client.Update(ctx, u.RepoName, path, []byte(content.EncodeDocument(merged)), "chore: Update post "+merged.Title, sha)
	if err != nil {
		return nil, err
	}

	post := r.buildPost(u, path, merged, newSHA)
	r.notify(owner, ActionPostUpdated, map[string]any{"path": path, "title": post.Title, "slug": post.Slug})
	return post, nil
}

func (r *GithubPostRepository) DeletePost(ctx context.Context, owner model.UserID, identifier string) error {
	u, client, err := r.resolve(owner)
	if err != nil {
		return err
	}

	path, err := r.resolvePath(ctx, u, client, identifier)
	if err != nil {
		return err
	}

	// Empty sha makes the client fetch the current hash first; a stale
	// hash at commit time still surfaces as a conflict.
	if err := client.Delete(ctx, u.RepoName, path, "chore: Delete post at "+path, ""); err != nil {
		return err
	}

	r.notify(owner, ActionPostDeleted, map[string]any{"path": path})
	return nil
}

// UploadMedia stores an uploaded payload under media/ in the owner's
// repository and returns its repository path.
func (r *GithubPostRepository) UploadMedia(ctx context.Context, owner model.UserID, filename, payload string) (string, error) {
	if filename == "" {
		return "", apperr.New(apperr.KindValidation, "filename is required")
	}

	raw, err := content.DecodePayload(payload, config.AppConfig.Content.MaxUploadBytes)
	if err != nil {
		return "", err
	}

	u, client, err := r.resolve(owner)
	if err != nil {
		return "", err
	}

	path := content.MediaPath(time.Now().UTC(), filename)
	if _, err := client.Create(ctx, u.RepoName, path, raw, "feat: Upload media "+filename); err != nil {
		return "", err
	}
	return path, nil
}

// resolvePath maps an identifier to a repository path. Identifiers
// containing a separator are paths already; anything else is treated
// as a slug and matched against the posts directory.
func (r *GithubPostRepository) resolvePath(ctx context.Context, u *model.User, client ContentClient, identifier string) (string, error) {
	if strings.Contains(identifier, "/") {
		return identifier, nil
	}

	entries, err := client.List(ctx, u.RepoName, config.PostsDir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if content.IsPostFile(entry.Name) && content.SlugFromPath(entry.Path) == identifier {
			return entry.Path, nil
		}
	}
	return "", apperr.Newf(apperr.KindNotFound, "no post with slug %q", identifier)
}

func (r *GithubPostRepository) readPost(ctx context.Context, u *model.User, client ContentClient, path string) (*model.Post, error) {
	raw, sha, err := client.Read(ctx, u.RepoName, path)
	if err != nil {
		return nil, err
	}

	fields, err := content.DecodeDocument(string(raw))
	if err != nil {
		return nil, err
	}
	return r.buildPost(u, path, fields, sha), nil
}

func (r *GithubPostRepository) buildPost(u *model.User, path string, fields content.DocumentFields, sha string) *model.Post {
	title := fields.Title
	if title == "" {
		title = content.SlugFromPath(path)
	}

	created := content.DateFromPath(path)

	return &model.Post{
		ID:           model.PostID(path),
		Title:        title,
		Slug:         content.SlugFromPath(path),
		Content:      fields.Body,
		Excerpt:      content.Excerpt(fields.Body, config.AppConfig.Content.ExcerptLength),
		Tags:         fields.Tags,
		Status:       model.StatusPublished,
		CreatedDate:  created,
		ModifiedDate: created,
		Path:         path,
		SHA:          sha,
		Owner:        u.ID,
	}
}
