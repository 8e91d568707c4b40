package handler

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/pulsiveblog/pulsive/internal/apperr"
	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/content"
	"github.com/pulsiveblog/pulsive/internal/model"
	"github.com/pulsiveblog/pulsive/internal/render"
	"github.com/pulsiveblog/pulsive/internal/repository"
)

type postPayload struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Content         string   `json:"content"`
	Excerpt         string   `json:"excerpt"`
	FeaturedImage   string   `json:"featured_image"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	OpenGraphImage  string   `json:"og_image"`
}

func (p postPayload) fields() model.PostFields {
	return model.PostFields{
		Title:           p.Title,
		Slug:            p.Slug,
		Content:         p.Content,
		Excerpt:         p.Excerpt,
		FeaturedImage:   p.FeaturedImage,
		Tags:            p.Tags,
		Status:          model.PostStatus(p.Status),
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		OpenGraphImage:  p.OpenGraphImage,
	}
}

type postResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Content         string    `json:"content,omitempty"`
	Excerpt         string    `json:"excerpt,omitempty"`
	FeaturedImage   string    `json:"featured_image,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Status          string    `json:"status"`
	MetaTitle       string    `json:"meta_title,omitempty"`
	MetaDescription string    `json:"meta_description,omitempty"`
	OpenGraphImage  string    `json:"og_image,omitempty"`
	Path            string    `json:"path,omitempty"`
	SHA             string    `json:"sha,omitempty"`
	CreatedDate     time.Time `json:"created_at"`
	ModifiedDate    time.Time `json:"modified_at"`
}

func newPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:              string(p.ID),
		Title:           p.Title,
		Slug:            p.Slug,
		Content:         p.Content,
		Excerpt:         p.Excerpt,
		FeaturedImage:   p.FeaturedImage,
		Tags:            p.Tags,
		Status:          string(p.Status),
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		OpenGraphImage:  p.OpenGraphImage,
		Path:            p.Path,
		SHA:             p.SHA,
		CreatedDate:     p.CreatedDate,
		ModifiedDate:    p.ModifiedDate,
	}
}

type pageResponse struct {
	Posts      []postResponse `json:"posts"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// filterFromQuery reads status, tag, search, page and limit. A limit of
// "all" disables pagination.
func filterFromQuery(r *http.Request) repository.Filter {
	q := r.URL.Query()

	filter := repository.Filter{
		Status: q.Get("status"),
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	switch limit := q.Get("limit"); limit {
	case "all":
		filter.All = true
	default:
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}

	return filter
}

func (h *Handler) serveListPosts(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	page, err := h.repo.ListPosts(r.Context(), owner, filterFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := pageResponse{
		Posts:      make([]postResponse, 0, len(page.Posts)),
		Total:      page.Total,
		Page:       page.PageNum,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
	for i := range page.Posts {
		resp.Posts = append(resp.Posts, newPostResponse(&page.Posts[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) serveCreatePost(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	var payload postPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.repo.CreatePost(r.Context(), owner, payload.fields())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPostResponse(post))
}

func (h *Handler) serveGetPost(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	post, err := h.repo.GetPost(r.Context(), owner, r.PathValue("identifier"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostResponse(post))
}

func (h *Handler) serveUpdatePost(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	var payload postPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.repo.UpdatePost(r.Context(), owner, r.PathValue("identifier"), payload.fields())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPostResponse(post))
}

func (h *Handler) serveDeletePost(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	if err := h.repo.DeletePost(r.Context(), owner, r.PathValue("identifier")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mediaPayload struct {
	Filename string `json:"filename"`
	Payload  string `json:"payload"`
}

func (h *Handler) serveUploadMedia(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	var payload mediaPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	path, err := h.media.Upload(r.Context(), owner, payload.Filename, payload.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

type feedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedDate time.Time `json:"created_at"`
}

// serveFeed is the unauthenticated cross-owner feed of published posts.
func (h *Handler) serveFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.agg.AggregatePublished(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	slices.SortStableFunc(posts, func(a, b model.Post) int {
		return -a.CreatedDate.Compare(b.CreatedDate)
	})

	items := make([]feedItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, feedItem{
			ID:          string(p.ID),
			Title:       p.Title,
			Slug:        p.Slug,
			Excerpt:     p.Excerpt,
			Tags:        p.Tags,
			CreatedDate: p.CreatedDate,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": items, "total": len(items)})
}

type previewPayload struct {
	Content string `json:"content"`
}

// servePreview renders a draft body to HTML without persisting it.
func (h *Handler) servePreview(w http.ResponseWriter, r *http.Request, owner model.UserID) {
	var payload previewPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, err)
		return
	}
	if payload.Content == "" {
		writeError(w, apperr.New(apperr.KindValidation, "content is required"))
		return
	}

	body := content.SanitizeBody(payload.Content)
	html := render.RenderPreviewCached([]byte(body), content.Hash([]byte(body)))

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}
