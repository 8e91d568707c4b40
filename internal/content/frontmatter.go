// Package content converts between structured post fields and the
// markdown documents stored in a user's content repository: front
// matter encoding, slug derivation, body sanitization, upload payload
// decoding and the repository path conventions.
package content

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"

	"github.com/pulsiveblog/pulsive/internal/apperr"
)

const fmDelimiter = "---"

// DocumentFields is the structured form of a stored post document.
type DocumentFields struct {
	Title string
	Date  string // YYYY-MM-DD
	Tags  []string
	Body  string
}

// EncodeDocument composes the front matter block (title, date,
// comma-joined tags) followed by a blank line and the body.
func EncodeDocument(fields DocumentFields) string {
	var b strings.Builder
	b.WriteString(fmDelimiter)
	b.WriteString("\n")
	fmt.Fprintf(&b, "title: %s\n", fields.Title)
	fmt.Fprintf(&b, "date: %s\n", fields.Date)
	fmt.Fprintf(&b, "tags: %s\n", strings.Join(fields.Tags, ", "))
	b.WriteString(fmDelimiter)
	b.WriteString("\n\n")
	b.WriteString(fields.Body)
	return b.String()
}

// DecodeDocument parses a document produced by EncodeDocument back into
// its fields. Documents without a front matter block decode to a bare
// body so hand-committed files still load.
func DecodeDocument(doc string) (DocumentFields, error) {
	normalized := string(markdown.NormalizeNewlines([]byte(doc)))

	if !strings.HasPrefix(normalized, fmDelimiter+"\n") {
		return DocumentFields{Body: normalized}, nil
	}

	rest := normalized[len(fmDelimiter)+1:]
	end := strings.Index(rest, "\n"+fmDelimiter)
	if end == -1 {
		return DocumentFields{}, apperr.New(apperr.KindValidation, "unterminated front matter block")
	}

	var fields DocumentFields
	for _, line := range strings.Split(rest[:end], "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "title":
			fields.Title = value
		case "date":
			fields.Date = value
		case "tags":
			fields.Tags = splitTags(value)
		}
	}

	body := rest[end+1+len(fmDelimiter):]
	body = strings.TrimPrefix(body, "\n") // newline closing the delimiter line
	body = strings.TrimPrefix(body, "\n") // blank separator line
	fields.Body = body

	return fields, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
