// Package repository is the persistence facade for posts. One contract
// is exposed regardless of backing store; the variant is selected once
// at startup. GithubPostRepository stores each post as a markdown file
// in the owner's content repository, DBPostRepository stores rows in
// the local database.
package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

// StatusAll is the filter sentinel matching every lifecycle status.
const StatusAll = "all"

// Filter narrows and pages a post listing.
type Filter struct {
	// Status is "draft", "published" or "all". Empty means all.
	Status string
	// Tag keeps only posts carrying this tag.
	Tag string
	// Search keeps posts whose title or body contains this string,
	// case-insensitively.
	Search string

	// Page is 1-based. Limit <= 0 falls back to the configured page
	// size. All disables pagination and returns every match.
	Page  int
	Limit int
	All   bool
}

// Page is one page of a listing.
type Page struct {
	Posts      []model.Post
	Total      int
	PageNum    int
	Limit      int
	TotalPages int
}

type PostRepository interface {
	// ListPosts returns the owner's posts matching filter.
	ListPosts(ctx context.Context, owner model.UserID, filter Filter) (*Page, error)

	// GetPost resolves identifier as a stored id first, then as a slug.
	GetPost(ctx context.Context, owner model.UserID, identifier string) (*model.Post, error)

	CreatePost(ctx context.Context, owner model.UserID, fields model.PostFields) (*model.Post, error)
	UpdatePost(ctx context.Context, owner model.UserID, identifier string, fields model.PostFields) (*model.Post, error)
	DeletePost(ctx context.Context, owner model.UserID, identifier string) error

	// SetNotifier sets the hook invoked after every successful
	// mutation. The notifier must not block.
	SetNotifier(notifier Notifier)
}

// Notifier receives post mutation events. Implemented by the webhook
// package; delivery is asynchronous and never blocks the mutation.
type Notifier interface {
	Notify(owner model.UserID, action string, data map[string]any)
}

// Mutation action names carried in webhook payloads.
const (
	ActionPostCreated = "post_created"
	ActionPostUpdated = "post_updated"
	ActionPostDeleted = "post_deleted"
)
