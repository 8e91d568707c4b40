package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/mattn/go-sqlite3"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/content"
	"github.com/pulsiveblog/pulsive/internal/db"
	"github.com/pulsiveblog/pulsive/internal/model"
)

// Post bodies are zstd-compressed at rest. EncodeAll/DecodeAll on
// shared instances are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

type DBPostRepository struct { // implements PostRepository
	db       db.Db
	notifier Notifier
}

func NewDBPostRepository(database db.Db) *DBPostRepository {
	return &DBPostRepository{db: database}
}

func (r *DBPostRepository) SetNotifier(notifier Notifier) {
	r.notifier = notifier
}

func (r *DBPostRepository) notify(owner model.UserID, action string, data map[string]any) {
	if r.notifier != nil {
		r.notifier.Notify(owner, action, data)
	}
}

const postColumns = `id, owner, title, slug, content, content_hash, excerpt, featured_image, tags, status, meta_title, meta_description, og_image, created_at, modified_at`

func (r *DBPostRepository) ListPosts(ctx context.Context, owner model.UserID, filter Filter) (*Page, error) {
	rows, err := r.db.Query(`SELECT `+postColumns+` FROM posts WHERE owner = ?`, owner)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "querying posts", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "reading posts", err)
	}

	return applyFilter(posts, filter), nil
}

// GetPost resolves identifier as a stored id first, then as a slug.
func (r *DBPostRepository) GetPost(ctx context.Context, owner model.UserID, identifier string) (*model.Post, error) {
	if _, err := uuid.Parse(identifier); err == nil {
		post, err := r.scanOne(r.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE owner = ? AND id = ?`, owner, identifier))
		if err == nil || !apperr.IsKind(err, apperr.KindNotFound) {
			return post, err
		}
	}
	return r.scanOne(r.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE owner = ? AND slug = ?`, owner, identifier))
}

func (r *DBPostRepository) CreatePost(ctx context.Context, owner model.UserID, fields model.PostFields) (*model.Post, error) {
	if fields.Title == "" || fields.Content == "" {
		return nil, apperr.New(apperr.KindValidation, "title and content are required")
	}

	slug := fields.Slug
	if slug == "" {
		slug = content.Slugify(fields.Title)
	}
	if !content.IsValidSlug(slug) {
		return nil, apperr.Newf(apperr.KindValidation, "cannot derive a valid slug from %q", fields.Title)
	}

	status := fields.Status
	if status == "" {
		status = model.StatusPublished
	}
	if !model.ValidStatus(status) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid status %q", status)
	}

	body := content.SanitizeBody(fields.Content)
	excerpt := fields.Excerpt
	if excerpt == "" {
		excerpt = content.Excerpt(body, config.AppConfig.Content.ExcerptLength)
	}

	compressed := zstdEncoder.EncodeAll([]byte(body), nil)
	tagsJSON, err := json.Marshal(emptyIfNil(fields.Tags))
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	now := time.Now().UTC()
	id := model.PostID(uuid.New().String())

	_, err = r.db.Exec(
		`INSERT INTO posts (id, owner, title, slug, content, content_hash, excerpt, featured_image, tags, status, meta_title, meta_description, og_image, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, owner, fields.Title, slug, compressed, content.Hash(compressed), excerpt, fields.FeaturedImage,
		string(tagsJSON), status, fields.MetaTitle, fields.MetaDescription, fields.OpenGraphImage, now, now,
	)
	if err != nil {
		if isConstraintErr(err) {
			return nil, apperr.Newf(apperr.KindConflict, "post with slug %q already exists", slug)
		}
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "inserting post", err)
	}

	repoLogger.Info().Str("post_id", string(id)).Str("slug", slug).Msg("Post created")

	post, err := r.GetPost(ctx, owner, string(id))
	if err != nil {
		return nil, err
	}
	r.notify(owner, ActionPostCreated, map[string]any{"id": string(id), "title": post.Title, "slug": post.Slug})
	return post, nil
}

func (r *DBPostRepository) UpdatePost(ctx context.Context, owner model.UserID, identifier string, fields model.PostFields) (*model.Post, error) {
	existing, err := r.GetPost(ctx, owner, identifier)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if fields.Title != "" {
		merged.Title = fields.Title
	}
	if fields.Slug != "" {
		if !content.IsValidSlug(fields.Slug) {
			return nil, apperr.Newf(apperr.KindValidation, "invalid slug %q", fields.Slug)
		}
		merged.Slug = fields.Slug
	}
	if fields.Content != "" {
		merged.Content = content.SanitizeBody(fields.Content)
	}
	if fields.Excerpt != "" {
		merged.Excerpt = fields.Excerpt
	} else if fields.Content != "" {
		merged.Excerpt = content.Excerpt(merged.Content, config.AppConfig.Content.ExcerptLength)
	}
	if fields.Tags != nil {
		merged.Tags = fields.Tags
	}
	if fields.Status != "" {
		if !model.ValidStatus(fields.Status) {
			return nil, apperr.Newf(apperr.KindValidation, "invalid status %q", fields.Status)
		}
		merged.Status = fields.Status
	}
	if fields.FeaturedImage != "" {
		merged.FeaturedImage = fields.FeaturedImage
	}
	if fields.MetaTitle != "" {
		merged.MetaTitle = fields.MetaTitle
	}
	if fields.MetaDescription != "" {
		merged.MetaDescription = fields.MetaDescription
	}
	if fields.OpenGraphImage != "" {
		merged.OpenGraphImage = fields.OpenGraphImage
	}

	compressed := zstdEncoder.EncodeAll([]byte(merged.Content), nil)
	tagsJSON, err := json.Marshal(emptyIfNil(merged.Tags))
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}

	_, err = r.db.Exec(
		`UPDATE posts SET title = ?, slug = ?, content = ?, content_hash = ?, excerpt = ?, featured_image = ?, tags = ?, status = ?, meta_title = ?, meta_description = ?, og_image = ?, modified_at = ?
		 WHERE owner = ? AND id = ?`,
		merged.Title, merged.Slug, compressed, content.Hash(compressed), merged.Excerpt, merged.FeaturedImage,
		string(tagsJSON), merged.Status, merged.MetaTitle, merged.MetaDescription, merged.OpenGraphImage, time.Now().UTC(),
		owner, existing.ID,
	)
	if err != nil {
		if isConstraintErr(err) {
			return nil, apperr.Newf(apperr.KindConflict, "post with slug %q already exists", merged.Slug)
		}
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "updating post", err)
	}

	post, err := r.GetPost(ctx, owner, string(existing.ID))
	if err != nil {
		return nil, err
	}
	r.notify(owner, ActionPostUpdated, map[string]any{"id": string(post.ID), "title": post.Title, "slug": post.Slug})
	return post, nil
}

func (r *DBPostRepository) DeletePost(ctx context.Context, owner model.UserID, identifier string) error {
	existing, err := r.GetPost(ctx, owner, identifier)
	if err != nil {
		return err
	}

	res, err := r.db.Exec(`DELETE FROM posts WHERE owner = ? AND id = ?`, owner, existing.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "deleting post", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.KindNotFound, "post %q not found", identifier)
	}

	r.notify(owner, ActionPostDeleted, map[string]any{"id": string(existing.ID), "slug": existing.Slug})
	return nil
}

// AggregatePublished returns every published post across all owners
// for the public feed.
func (r *DBPostRepository) AggregatePublished(ctx context.Context) ([]model.Post, error) {
	rows, err := r.db.Query(`SELECT `+postColumns+` FROM posts WHERE status = ?`, model.StatusPublished)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "querying feed", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *DBPostRepository) scanOne(row *sql.Row) (*model.Post, error) {
	post, err := scanPost(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "post not found")
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func scanPost(scan func(dest ...any) error) (*model.Post, error) {
	var post model.Post
	var compressed []byte
	var tagsJSON string
	var excerpt, featured, metaTitle, metaDesc, ogImage sql.NullString

	err := scan(&post.ID, &post.Owner, &post.Title, &post.Slug, &compressed, &post.SHA, &excerpt, &featured,
		&tagsJSON, &post.Status, &metaTitle, &metaDesc, &ogImage, &post.CreatedDate, &post.ModifiedDate)
	if err != nil {
		return nil, err
	}

	if len(compressed) > 0 {
		raw, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing content: %w", err)
		}
		post.Content = string(raw)
	}

	if tagsJSON != "" && tagsJSON != "[]" {
		if err := json.Unmarshal([]byte(tagsJSON), &post.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
	}

	post.Excerpt = excerpt.String
	post.FeaturedImage = featured.String
	post.MetaTitle = metaTitle.String
	post.MetaDescription = metaDesc.String
	post.OpenGraphImage = ogImage.String

	return &post, nil
}

func isConstraintErr(err error) bool {
	var sqErr sqlite3.Error
	return errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
