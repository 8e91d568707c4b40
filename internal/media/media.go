// Package media stores uploaded assets. The backend is selected at
// startup: "repo" writes into the owner's content repository, "s3"
// uploads to a bucket.
package media

import (
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/model"
)

var mediaLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	mediaLogger = l
}

// Store saves one uploaded payload and returns a reference the caller
// can embed in post bodies.
type Store interface {
	Upload(ctx context.Context, owner model.UserID, filename, payload string) (string, error)
}

// Uploader is the slice of the post repository the repo-backed store
// needs.
type Uploader interface {
	UploadMedia(ctx context.Context, owner model.UserID, filename, payload string) (string, error)
}

type RepoStore struct { // implements Store
	uploader Uploader
}

func NewRepoStore(uploader Uploader) *RepoStore {
	return &RepoStore{uploader: uploader}
}

func (s *RepoStore) Upload(ctx context.Context, owner model.UserID, filename, payload string) (string, error) {
	return s.uploader.UploadMedia(ctx, owner, filename, payload)
}

// contentType derives a MIME type from the payload's data URI prefix,
// falling back to the filename extension.
func contentType(payload, filename string) string {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ';'); i != -1 {
			return payload[len("data:"):i]
		}
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
