package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/db"
	"github.com/pulsiveblog/pulsive/internal/github"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/user"
	"github.com/pulsiveblog/pulsive/internal/vault"
)

// stubClient is an in-memory ContentClient with the contents API's sha
// semantics: create fails over an existing path, update and delete
// reject a stale sha.
type stubClient struct {
	mu    sync.Mutex
	files map[string]*stubFile
	seq   int
	calls int

	// updateHook runs at the top of Update, before the sha check.
	// Simulates a commit landing between the caller's read and write.
	updateHook func(c *stubClient)
}

type stubFile struct {
	repo    string
	content []byte
	sha     string
}

func newStubClient() *stubClient {
	return &stubClient{files: map[string]*stubFile{}}
}

func (c *stubClient) nextSHA() string {
	c.seq++
	return fmt.Sprintf("sha-%d", c.seq)
}

func (c *stubClient) Create(ctx context.Context, repo, p string, raw []byte, message string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	if f, ok := c.files[p]; ok && f.repo == repo {
		return "", apperr.Newf(apperr.KindConflict, "path %s already exists", p)
	}
	sha := c.nextSHA()
	c.files[p] = &stubFile{repo: repo, content: append([]byte(nil), raw...), sha: sha}
	return sha, nil
}

func (c *stubClient) Read(ctx context.Context, repo, p string) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	f, ok := c.files[p]
	if !ok || f.repo != repo {
		return nil, "", apperr.Newf(apperr.KindNotFound, "path %s not found", p)
	}
	return append([]byte(nil), f.content...), f.sha, nil
}

func (c *stubClient) Update(ctx context.Context, repo, p string, raw []byte, message, sha string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	if c.updateHook != nil {
		c.updateHook(c)
	}

	f, ok := c.files[p]
	if !ok || f.repo != repo {
		return "", apperr.Newf(apperr.KindNotFound, "path %s not found", p)
	}
	if sha != f.sha {
		return "", apperr.Newf(apperr.KindConflict, "stale sha for %s", p)
	}
	f.content = append([]byte(nil), raw...)
	f.sha = c.nextSHA()
	return f.sha, nil
}

func (c *stubClient) Delete(ctx context.Context, repo, p, message, sha string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	f, ok := c.files[p]
	if !ok || f.repo != repo {
		return apperr.Newf(apperr.KindNotFound, "path %s not found", p)
	}
	if sha != "" && sha != f.sha {
		return apperr.Newf(apperr.KindConflict, "stale sha for %s", p)
	}
	delete(c.files, p)
	return nil
}

func (c *stubClient) List(ctx context.Context, repo, dir string) ([]github.Entry, error) {
	return c.ListAs(ctx, "", repo, dir)
}

func (c *stubClient) ListAs(ctx context.Context, owner, repo, dir string) ([]github.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	var entries []github.Entry
	for p, f := range c.files {
		if f.repo != repo || path.Dir(p) != dir {
			continue
		}
		entries = append(entries, github.Entry{
			Name: path.Base(p),
			Path: p,
			Size: len(f.content),
			SHA:  f.sha,
		})
	}
	return entries, nil
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(owner model.UserID, action string, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, action)
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

const testKeyHex = "abababababababababababababababababababababababababababababababab"

type githubFixture struct {
	repo     *GithubPostRepository
	client   *stubClient
	users    *user.Store
	owner    model.UserID
	notifier *recordingNotifier
}

func newGithubFixture(t *testing.T) *githubFixture {
	t.Helper()

	database := db.NewSQLite()
	require.NoError(t, database.InitDb(":memory:"))
	t.Cleanup(func() { database.Close() })

	users := user.NewStore(database)

	v, err := vault.New(testKeyHex)
	require.NoError(t, err)
	sealed, err := v.Encrypt("gh-token")
	require.NoError(t, err)

	u, err := users.Upsert(&model.User{
		GithubID:       "12345",
		Username:       "octocat",
		RepoName:       "octocat-pulsive-content",
		EncryptedToken: sealed,
	})
	require.NoError(t, err)

	client := newStubClient()
	notifier := &recordingNotifier{}

	repo := NewGithubPostRepository(users, v, "")
	repo.newClient = func(token, baseURL string) (ContentClient, error) {
		require.Equal(t, "gh-token", token, "client must act as the decrypted credential")
		return client, nil
	}
	repo.SetNotifier(notifier)

	return &githubFixture{repo: repo, client: client, users: users, owner: u.ID, notifier: notifier}
}

func TestGithubCreatePost(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	post, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{
		Title:   "Hello, World!",
		Content: "# First post",
		Tags:    []string{"intro"},
	})
	require.NoError(t, err)

	today := time.Now().UTC().Format("2006-01-02")
	wantPath := "posts/" + today + "-hello-world.md"

	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, wantPath, post.Path)
	assert.Equal(t, model.PostID(wantPath), post.ID)
	assert.Equal(t, model.StatusPublished, post.Status)
	assert.NotEmpty(t, post.SHA)

	stored, ok := f.client.files[wantPath]
	require.True(t, ok, "document must land in the content repository")
	doc := string(stored.content)
	assert.True(t, strings.HasPrefix(doc, "---\n"), "document must carry front matter")
	assert.Contains(t, doc, "title: Hello, World!")
	assert.Contains(t, doc, "tags: intro")
	assert.Contains(t, doc, "# First post")

	assert.Equal(t, []string{ActionPostCreated}, f.notifier.actions())
}

func TestGithubCreatePostValidation(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	t.Run("missing title", func(t *testing.T) {
		_, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Content: "body"})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("missing content", func(t *testing.T) {
		_, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "T"})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("unsluggable title", func(t *testing.T) {
		_, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "!!!", Content: "body"})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	assert.Zero(t, f.client.callCount(), "validation failures must not reach the remote")
	assert.Empty(t, f.notifier.actions())
}

func TestGithubCreatePostDuplicateIsConflict(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	_, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Hello, World!", Content: "first"})
	require.NoError(t, err)

	_, err = f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Hello, World!", Content: "second"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict), "same title on the same day derives the same path")
	assert.Equal(t, []string{ActionPostCreated}, f.notifier.actions(), "failed create must not notify")
}

func TestGithubGetPost(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	created, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Findable", Content: "body", Tags: []string{"a", "b"}})
	require.NoError(t, err)

	t.Run("by slug", func(t *testing.T) {
		got, err := f.repo.GetPost(ctx, f.owner, "findable")
		require.NoError(t, err)
		assert.Equal(t, created.Path, got.Path)
		assert.Equal(t, "Findable", got.Title)
		assert.Equal(t, []string{"a", "b"}, got.Tags)
	})

	t.Run("by path", func(t *testing.T) {
		got, err := f.repo.GetPost(ctx, f.owner, created.Path)
		require.NoError(t, err)
		assert.Equal(t, created.Slug, got.Slug)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := f.repo.GetPost(ctx, f.owner, "missing")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestGithubUpdatePost(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	created, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Original", Content: "original body"})
	require.NoError(t, err)

	updated, err := f.repo.UpdatePost(ctx, f.owner, "original", model.PostFields{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Contains(t, updated.Content, "original body", "untouched fields must survive the merge")
	assert.NotEqual(t, created.SHA, updated.SHA, "a write must advance the content hash")
	assert.Equal(t, []string{ActionPostCreated, ActionPostUpdated}, f.notifier.actions())
}

func TestGithubUpdatePostInterleavedCommitIsConflict(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	created, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Contended", Content: "body"})
	require.NoError(t, err)

	// A commit lands after the facade's read and before its write. The
	// stale hash must surface as a conflict, never as an overwrite.
	f.client.updateHook = func(c *stubClient) {
		c.files[created.Path].sha = c.nextSHA()
	}

	_, err = f.repo.UpdatePost(ctx, f.owner, "contended", model.PostFields{Content: "mine"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, []string{ActionPostCreated}, f.notifier.actions(), "failed update must not notify")
}

func TestGithubDeletePost(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	created, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Doomed", Content: "body"})
	require.NoError(t, err)

	require.NoError(t, f.repo.DeletePost(ctx, f.owner, "doomed"))
	_, ok := f.client.files[created.Path]
	assert.False(t, ok)
	assert.Equal(t, []string{ActionPostCreated, ActionPostDeleted}, f.notifier.actions())

	t.Run("already gone", func(t *testing.T) {
		err := f.repo.DeletePost(ctx, f.owner, "doomed")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestGithubListPosts(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: title, Content: "body of " + title})
		require.NoError(t, err)
	}

	page, err := f.repo.ListPosts(ctx, f.owner, Filter{Status: StatusAll, All: true})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Posts, 3, "all sentinel plus unpaginated must return everything")

	t.Run("search narrows", func(t *testing.T) {
		page, err := f.repo.ListPosts(ctx, f.owner, Filter{Search: "beta"})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, "beta", page.Posts[0].Slug)
	})
}

func TestGithubUploadMedia(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))

	p, err := f.repo.UploadMedia(ctx, f.owner, "logo.png", payload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "media/"))
	assert.True(t, strings.HasSuffix(p, "-logo.png"))

	stored, ok := f.client.files[p]
	require.True(t, ok)
	assert.Equal(t, []byte("png bytes"), stored.content)

	t.Run("oversized payload is rejected before any network call", func(t *testing.T) {
		saved := config.AppConfig.Content.MaxUploadBytes
		config.AppConfig.Content.MaxUploadBytes = 8
		defer func() { config.AppConfig.Content.MaxUploadBytes = saved }()

		before := f.client.callCount()
		_, err := f.repo.UploadMedia(ctx, f.owner, "big.png", payload)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		assert.Equal(t, before, f.client.callCount())
	})

	t.Run("missing filename", func(t *testing.T) {
		_, err := f.repo.UploadMedia(ctx, f.owner, "", payload)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}

func TestGithubAggregatePublished(t *testing.T) {
	f := newGithubFixture(t)
	ctx := context.Background()

	_, err := f.repo.CreatePost(ctx, f.owner, model.PostFields{Title: "Public Post", Content: "body"})
	require.NoError(t, err)

	// A second owner with an empty content repository contributes
	// nothing instead of failing the aggregate.
	v, err := vault.New(testKeyHex)
	require.NoError(t, err)
	sealed, err := v.Encrypt("other-token")
	require.NoError(t, err)
	_, err = f.users.Upsert(&model.User{
		GithubID:       "67890",
		Username:       "hubot",
		RepoName:       "hubot-pulsive-content",
		EncryptedToken: sealed,
	})
	require.NoError(t, err)

	posts, err := f.repo.AggregatePublished(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "public-post", posts[0].Slug)
	assert.Equal(t, f.owner, posts[0].Owner)
}
