package content

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// bodyPolicy neutralizes markup outside the allow-list so stored
// content is safe to render later: headers, emphasis, code blocks,
// images and links survive, script vectors do not.
var bodyPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("p", "br", "blockquote", "ul", "ol", "li")
	p.AllowElements("em", "strong", "b", "i", "del", "s")
	p.AllowElements("pre", "code")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[a-zA-Z0-9-]+$`)).OnElements("code")
	p.AllowImages()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	return p
}()

// SanitizeBody strips disallowed HTML from a markdown body. Plain
// markdown passes through untouched; embedded raw HTML is filtered.
func SanitizeBody(body string) string {
	return bodyPolicy.Sanitize(body)
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// Excerpt derives a short plain-text excerpt from a body: tags
// stripped, truncated to limit characters, ellipsis appended. The limit
// counts runes, not bytes, so multi-byte text is never cut mid-rune.
func Excerpt(body string, limit int) string {
	plain := htmlTag.ReplaceAllString(body, "")
	plain = strings.TrimSpace(plain)
	runes := []rune(plain)
	if len(runes) <= limit {
		return plain
	}
	return string(runes[:limit]) + "..."
}
