package content

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pulsiveblog/pulsive/internal/config"
)

const dateLayout = "2006-01-02"

var pathDate = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// PostPath builds the repository-relative path for a post:
// posts/<YYYY-MM-DD>-<slug>.md
func PostPath(created time.Time, slug string) string {
	return path.Join(config.PostsDir, fmt.Sprintf("%s-%s.md", created.UTC().Format(dateLayout), slug))
}

// MediaPath builds the repository-relative path for an upload:
// media/<unix-ms>-<filename>
func MediaPath(now time.Time, filename string) string {
	return path.Join(config.MediaDir, fmt.Sprintf("%d-%s", now.UnixMilli(), path.Base(filename)))
}

// DateFromPath extracts the creation date embedded in a post path.
// Returns the zero time when the path carries no date prefix.
func DateFromPath(p string) time.Time {
	m := pathDate.FindString(p)
	if m == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, m)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SlugFromPath extracts the slug embedded in a post path, i.e. the
// file name with the date prefix and .md suffix removed.
func SlugFromPath(p string) string {
	name := strings.TrimSuffix(path.Base(p), ".md")
	if m := pathDate.FindStringIndex(name); m != nil && m[0] == 0 {
		name = strings.TrimPrefix(name[m[1]:], "-")
	}
	return name
}

// IsPostFile reports whether a directory entry name looks like a
// stored post document.
func IsPostFile(name string) bool {
	return strings.HasSuffix(name, ".md") && name != config.RepoReadmeFile
}
