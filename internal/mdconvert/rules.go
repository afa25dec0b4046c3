package mdconvert

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/sanitizer"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"golang.org/x/net/html"
)

/*
Design Principles
- Semantic fidelity over visual fidelity
- No inferred structure
- No code reformatting
- GitHub-Flavored Markdown compatibility

Conversion Rules
- markdown: headings, code blocks, tables (GFM), links and images
- html: the sanitized node serialized as-is
- text: visible text with block boundaries kept as line breaks
- DOM order preserved
*/

// ConvertRule defines the interface for rendering sanitized HTML.
// Implementations must produce deterministic output.
type ConvertRule interface {
	Convert(sanitizedHTMLDoc sanitizer.SanitizedHTMLDoc, target Target) (ConversionResult, failure.ClassifiedError)
}

// Compile-time interface check
var _ ConvertRule = (*StrictConversionRule)(nil)

type StrictConversionRule struct {
	metadataSink metadata.MetadataSink
}

func NewRule(metadataSink metadata.MetadataSink) *StrictConversionRule {
	return &StrictConversionRule{
		metadataSink: metadataSink,
	}
}

func (s *StrictConversionRule) Convert(
	sanitizedHTMLDoc sanitizer.SanitizedHTMLDoc,
	target Target,
) (ConversionResult, failure.ClassifiedError) {
	conversionResult, err := convert(sanitizedHTMLDoc.GetContentNode(), target)
	if err != nil {
		var conversionError *ConversionError
		errors.As(err, &conversionError)

		s.metadataSink.RecordError(
			time.Now(),
			"mdconvert",
			"StrictConversionRule.Convert",
			mapConversionErrorToMetadataCause(conversionError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrFormat, string(target)),
			},
		)
		return ConversionResult{}, conversionError
	}
	return conversionResult, nil
}

// convert is a stateless pure function that renders a sanitized HTML node
// into the requested target.
func convert(node *html.Node, target Target) (ConversionResult, error) {
	if node == nil {
		return ConversionResult{}, &ConversionError{
			Message:   "cannot convert nil HTML node",
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
	}

	switch target {
	case TargetMarkdown:
		return toMarkdown(node)
	case TargetHTML:
		return toHTML(node)
	case TargetText:
		return NewConversionResult([]byte(toText(node)), TargetText), nil
	default:
		return ConversionResult{}, &ConversionError{
			Message:   fmt.Sprintf("target %q", target),
			Retryable: false,
			Cause:     ErrCauseUnknownTarget,
		}
	}
}

func toMarkdown(node *html.Node) (ConversionResult, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	markdown, err := conv.ConvertNode(node)
	if err != nil {
		return ConversionResult{}, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
	}
	return NewConversionResult(markdown, TargetMarkdown), nil
}

func toHTML(node *html.Node) (ConversionResult, error) {
	var buf bytes.Buffer
	// body and document wrappers are dropped, their children kept
	if node.Type == html.DocumentNode || (node.Type == html.ElementNode && node.Data == "body") {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return ConversionResult{}, renderError(err)
			}
		}
	} else if err := html.Render(&buf, node); err != nil {
		return ConversionResult{}, renderError(err)
	}
	return NewConversionResult(bytes.TrimSpace(buf.Bytes()), TargetHTML), nil
}

func renderError(err error) *ConversionError {
	return &ConversionError{
		Message:   err.Error(),
		Retryable: false,
		Cause:     ErrCauseConversionFailure,
	}
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "pre": true, "blockquote": true,
	"table": true, "tr": true, "br": true, "hr": true, "dt": true, "dd": true,
	"figure": true, "figcaption": true,
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\r]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// toText flattens the node into plain text. Text inside <pre> is kept
// verbatim; everywhere else runs of whitespace collapse to one space.
func toText(node *html.Node) string {
	var sb strings.Builder
	atLineStart := true
	write := func(s string) {
		if s == "" {
			return
		}
		sb.WriteString(s)
		atLineStart = strings.HasSuffix(s, "\n")
	}

	var walk func(n *html.Node, inPre bool)
	walk = func(n *html.Node, inPre bool) {
		switch n.Type {
		case html.TextNode:
			if inPre {
				write(n.Data)
				return
			}
			collapsed := horizontalSpace.ReplaceAllString(strings.ReplaceAll(n.Data, "\n", " "), " ")
			if atLineStart {
				collapsed = strings.TrimLeft(collapsed, " ")
			}
			write(collapsed)
			return
		case html.ElementNode:
			if (n.Data == "td" || n.Data == "th") && !atLineStart {
				write(" ")
			}
			if blockElements[n.Data] {
				write("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inPre || (n.Type == html.ElementNode && n.Data == "pre"))
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			write("\n")
		}
	}
	walk(node, false)

	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text := strings.Join(lines, "\n")
	// paragraph breaks survive as one blank line
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
