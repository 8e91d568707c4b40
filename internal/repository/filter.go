package repository

import (
	"slices"
	"strings"

	"github.com/pulsiveblog/pulsive/internal/config"
	"github.com/pulsiveblog/pulsive/internal/model"
)

// applyFilter narrows, sorts and pages posts. Both variants share this
// so filter semantics cannot drift between backends.
func applyFilter(posts []model.Post, filter Filter) *Page {
	matched := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if !matchesFilter(&p, filter) {
			continue
		}
		matched = append(matched, p)
	}

	// Newest first.
	slices.SortStableFunc(matched, func(a, b model.Post) int {
		return -a.CreatedDate.Compare(b.CreatedDate)
	})

	total := len(matched)

	if filter.All {
		return &Page{Posts: matched, Total: total, PageNum: 1, Limit: total, TotalPages: 1}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = config.AppConfig.Content.PostsPerPage
	}
	if limit < 1 {
		limit = 1
	}
	pageNum := filter.Page
	if pageNum < 1 {
		pageNum = 1
	}

	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (pageNum - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &Page{
		Posts:      matched[start:end],
		Total:      total,
		PageNum:    pageNum,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

func matchesFilter(p *model.Post, filter Filter) bool {
	if filter.Status != "" && filter.Status != StatusAll && string(p.Status) != filter.Status {
		return false
	}
	if filter.Tag != "" && !slices.Contains(p.Tags, filter.Tag) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) {
			return false
		}
	}
	return true
}
