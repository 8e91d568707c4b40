// Package model defines core data structures and types for the blog platform.
package model

import (
	"time"
)

type PostID string

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// ValidStatus reports whether s is a recognized lifecycle status.
func ValidStatus(s PostStatus) bool {
	return s == StatusDraft || s == StatusPublished
}

type Post struct {
	ID PostID

	Title string
	Slug  string

	// Markdown body, sanitized before persistence.
	Content string
	Excerpt string

	FeaturedImage string
	Tags          []string
	Status        PostStatus

	// SEO metadata.
	MetaTitle       string
	MetaDescription string
	OpenGraphImage  string

	CreatedDate  time.Time
	ModifiedDate time.Time

	// Path is the repository-relative file path when the post is
	// file-backed (posts/<date>-<slug>.md). Empty for database posts.
	Path string

	// SHA is the content hash last returned by the remote host for
	// Path. It must be captured before any update or delete; the remote
	// API rejects writes carrying a stale hash.
	SHA string

	// Owner of the post (the user who created it).
	Owner UserID
}

// PostFields carries the writable fields of a post through the
// persistence facade. Zero values mean "not provided" on update.
type PostFields struct {
	Title           string
	Slug            string
	Content         string
	Excerpt         string
	FeaturedImage   string
	Tags            []string
	Status          PostStatus
	MetaTitle       string
	MetaDescription string
	OpenGraphImage  string
}
