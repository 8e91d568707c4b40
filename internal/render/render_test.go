package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pulsiveblog/pulsive/internal/cache"
)

func setupTest() {
	cache.ClearRenderedPreviewCache()
}

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		markdown []byte
		contains string
	}{
		{
			name:     "heading",
			markdown: []byte("# Test Header\n\nSome content"),
			contains: "<h1",
		},
		{
			name:     "inline code",
			markdown: []byte("Some content with `code`"),
			contains: "<code>code</code>",
		},
		{
			name:     "code block is highlighted",
			markdown: []byte("```go\nfunc main() {\n    fmt.Println(\"Hello\")\n}\n```"),
			contains: `<div class="highlight">`,
		},
		{
			name:     "link opens in new tab",
			markdown: []byte("[here](https://example.com)"),
			contains: `target="_blank"`,
		},
		{
			name:     "crlf input",
			markdown: []byte("# Title\r\n\r\nbody"),
			contains: "<h1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := RenderMarkdown(tt.markdown, "github")
			if !strings.Contains(string(html), tt.contains) {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, html)
			}
		})
	}
}

func TestHighlightCode(t *testing.T) {
	t.Run("known language", func(t *testing.T) {
		out := HighlightCode("func main() {}", "go", "github")
		if !strings.Contains(out, "<span") {
			t.Errorf("Expected highlighted markup, got %q", out)
		}
	})

	t.Run("unknown language falls back", func(t *testing.T) {
		out := HighlightCode("plain text", "no-such-language", "github")
		if out == "" {
			t.Error("Expected non-empty output")
		}
	})

	t.Run("unknown style falls back", func(t *testing.T) {
		out := HighlightCode("func main() {}", "go", "no-such-style")
		if out == "" {
			t.Error("Expected non-empty output")
		}
	})
}

func TestRenderPreviewCached(t *testing.T) {
	setupTest()

	md := []byte("# Cached\n\nbody")

	html1 := RenderPreviewCached(md, "hash-1")
	if len(html1) == 0 {
		t.Fatal("Expected rendered HTML, got empty")
	}

	cached, found := cache.GetRenderedPreview("hash-1")
	if !found {
		t.Fatal("Expected preview to be cached")
	}
	if !bytes.Equal(cached, html1) {
		t.Error("Cached HTML must match the rendered output")
	}

	html2 := RenderPreviewCached(md, "hash-1")
	if !bytes.Equal(html1, html2) {
		t.Error("Cache hit should return identical HTML")
	}

	t.Run("empty hash skips the cache", func(t *testing.T) {
		setupTest()
		html := RenderPreviewCached(md, "")
		if len(html) == 0 {
			t.Error("Expected rendered HTML, got empty")
		}
		if _, found := cache.GetRenderedPreview(""); found {
			t.Error("Empty hash must not be cached")
		}
	})
}

func TestRenderPreviewCached_Concurrency(t *testing.T) {
	setupTest()

	const numGoroutines = 20
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			md := []byte(fmt.Sprintf("# Post %d\n\nbody %d", id%5, id%5))
			RenderPreviewCached(md, fmt.Sprintf("hash-%d", id%5))
		}(i)
	}
	wg.Wait()
}
