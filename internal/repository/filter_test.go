package repository

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/model"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{}
	config.ApplyDefaults(config.AppConfig)
	os.Exit(m.Run())
}

func day(n int) time.Time {
	return time.Date(2026, time.March, n, 0, 0, 0, 0, time.UTC)
}

func samplePosts() []model.Post {
	return []model.Post{
		{ID: "1", Title: "Go Concurrency", Content: "channels and goroutines", Status: model.StatusPublished, Tags: []string{"go"}, CreatedDate: day(1)},
		{ID: "2", Title: "SQL Tips", Content: "indexes matter", Status: model.StatusPublished, Tags: []string{"db"}, CreatedDate: day(2)},
		{ID: "3", Title: "Draft Thoughts", Content: "unfinished", Status: model.StatusDraft, Tags: []string{"go"}, CreatedDate: day(3)},
		{ID: "4", Title: "Caching", Content: "layers of goroutine-safe caches", Status: model.StatusPublished, Tags: nil, CreatedDate: day(4)},
	}
}

func TestApplyFilterStatus(t *testing.T) {
	t.Run("default matches all statuses", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{})
		assert.Equal(t, 4, page.Total)
	})

	t.Run("all sentinel matches all statuses", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Status: StatusAll})
		assert.Equal(t, 4, page.Total)
	})

	t.Run("published only", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Status: "published"})
		assert.Equal(t, 3, page.Total)
		for _, p := range page.Posts {
			assert.Equal(t, model.StatusPublished, p.Status)
		}
	})

	t.Run("draft only", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Status: "draft"})
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, model.PostID("3"), page.Posts[0].ID)
	})
}

func TestApplyFilterTagAndSearch(t *testing.T) {
	t.Run("tag", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Tag: "go"})
		assert.Equal(t, 2, page.Total)
	})

	t.Run("search matches title case-insensitively", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Search: "sql"})
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, model.PostID("2"), page.Posts[0].ID)
	})

	t.Run("search matches body", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Search: "goroutine"})
		assert.Equal(t, 2, page.Total)
	})

	t.Run("no match", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Search: "rust"})
		assert.Zero(t, page.Total)
		assert.Empty(t, page.Posts)
	})
}

func TestApplyFilterOrderingAndPaging(t *testing.T) {
	t.Run("newest first", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{})
		assert.Equal(t, model.PostID("4"), page.Posts[0].ID)
		assert.Equal(t, model.PostID("1"), page.Posts[len(page.Posts)-1].ID)
	})

	t.Run("pagination", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Limit: 3, Page: 2})
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Posts, 1)
		assert.Equal(t, model.PostID("1"), page.Posts[0].ID)
	})

	t.Run("page past the end is empty, not an error", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{Limit: 3, Page: 9})
		assert.Empty(t, page.Posts)
		assert.Equal(t, 4, page.Total)
	})

	t.Run("all disables pagination", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{All: true, Limit: 1})
		assert.Len(t, page.Posts, 4)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("zero limit falls back to configured page size", func(t *testing.T) {
		page := applyFilter(samplePosts(), Filter{})
		assert.Equal(t, config.AppConfig.Content.PostsPerPage, page.Limit)
	})

	t.Run("zero configured page size clamps to one", func(t *testing.T) {
		old := config.AppConfig.Content.PostsPerPage
		config.AppConfig.Content.PostsPerPage = 0
		defer func() { config.AppConfig.Content.PostsPerPage = old }()

		page := applyFilter(samplePosts(), Filter{})
		assert.Equal(t, 1, page.Limit)
		assert.Equal(t, 4, page.TotalPages)
		assert.Len(t, page.Posts, 1)
	})
}
