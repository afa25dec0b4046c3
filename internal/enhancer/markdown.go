package enhancer

import (
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderMarkdown turns markdown content into HTML so tables and code blocks
// of both formats go through the same DOM queries. Fenced code keeps its
// info string as a language-* class.
func renderMarkdown(content []byte) []byte {
	// a parser cannot be reused across documents
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.FencedCode | parser.Tables)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.ToHTML(content, p, renderer)
}
