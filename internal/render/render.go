// Package render turns markdown post bodies into preview HTML with
// syntax-highlighted code blocks.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chroma_html "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/pulsiveblog/pulsive/internal/cache"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

const defaultHighlightStyle = "github"

var formatter = chroma_html.New(
	chroma_html.WithClasses(true),
	chroma_html.WithLineNumbers(false),
	chroma_html.PreventSurroundingPre(true),
)

func HighlightCode(code, language, highlightStyle string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return html.UnescapeString(buf.String())
}

// RenderMarkdown renders a markdown body to HTML. Fenced code blocks
// are replaced with chroma-highlighted markup.
func RenderMarkdown(md []byte, highlightStyle string) []byte {
	opts := md_html.RendererOptions{
		Flags:    md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if code, ok := node.(*ast.CodeBlock); ok && entering {
				var lang string
				if info := code.Info; info != nil {
					lang = string(info)
				}
				highlighted := HighlightCode(string(code.Literal), lang, highlightStyle)
				fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
			parser.HeadingIDs | parser.BackslashLineBreak | parser.DefinitionLists | parser.MathJax |
			parser.AutoHeadingIDs | parser.Footnotes | parser.OrderedListStart | parser.Attributes,
	).Parse(markdown.NormalizeNewlines(md))

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// Mutex to protect the check-render-set operation in RenderPreviewCached
var previewCacheMutex sync.Mutex

// RenderPreviewCached renders a body keyed by its content hash, so
// repeated previews of unchanged content hit the cache.
func RenderPreviewCached(md []byte, contentHash string) []byte {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md, defaultHighlightStyle)
	}

	if cached, found := cache.GetRenderedPreview(contentHash); found {
		renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache hit for rendered preview")
		return cached
	}

	renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache miss for rendered preview")
	previewCacheMutex.Lock()
	defer previewCacheMutex.Unlock()

	rendered := RenderMarkdown(md, defaultHighlightStyle)
	cache.SetRenderedPreview(contentHash, rendered)
	return rendered
}
