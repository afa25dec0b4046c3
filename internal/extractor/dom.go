package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Parse HTML into a DOM tree
- Read page title and description
- Isolate the content the caller asked for

Extraction Strategy
- ExcludeTags are removed from the document first
- IncludeTags, when given, select the content exclusively
- With OnlyMainContent, priority order:
	- Semantic containers (main, article, [role=main])
	- Known content selectors
	- Readability article extraction
	- <body>
- Otherwise the whole <body> is kept
*/

type DomExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewDomExtractor(
	metadataSink metadata.MetadataSink,
) DomExtractor {
	return DomExtractor{
		metadataSink: metadataSink,
	}
}

func (d *DomExtractor) Extract(
	sourceUrl url.URL,
	htmlByte []byte,
	param ExtractParam,
) (ExtractionResult, failure.ClassifiedError) {
	result, err := d.extract(sourceUrl, htmlByte, param)
	if err != nil {
		var extractionError *ExtractionError
		errors.As(err, &extractionError)
		d.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"DomExtractor.Extract",
			mapExtractionErrorToMetadataCause(extractionError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceUrl.String()),
			},
		)
		return ExtractionResult{}, extractionError
	}
	return result, nil
}

func (d *DomExtractor) extract(sourceUrl url.URL, htmlByte []byte, param ExtractParam) (ExtractionResult, error) {
	if !looksLikeHTML(htmlByte) {
		return ExtractionResult{}, &ExtractionError{
			Message:   "input is not an HTML document",
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}

	doc, err := html.Parse(bytes.NewReader(htmlByte))
	if err != nil {
		return ExtractionResult{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	gqDoc := goquery.NewDocumentFromNode(doc)

	title, description := readHeadMetadata(gqDoc)

	for _, selector := range param.ExcludeTags {
		gqDoc.Find(selector).Remove()
	}

	var contentNode *html.Node
	var layer SelectionLayer
	switch {
	case len(param.IncludeTags) > 0:
		contentNode, layer = collectIncluded(gqDoc, param.IncludeTags), LayerInclude
	case param.OnlyMainContent:
		contentNode, layer = selectMainContent(gqDoc, sourceUrl)
	default:
		contentNode, layer = bodyNode(gqDoc), LayerBody
	}

	if contentNode == nil || !hasText(contentNode) {
		return ExtractionResult{}, &ExtractionError{
			Message:   "no content left after selection",
			Retryable: false,
			Cause:     ErrCauseNoContent,
		}
	}

	return ExtractionResult{
		DocumentRoot: doc,
		ContentNode:  contentNode,
		Title:        title,
		Description:  description,
		Layer:        layer,
	}, nil
}

// looksLikeHTML rejects payloads html.Parse would happily wrap in a
// synthetic document, such as plain text or XML feeds.
func looksLikeHTML(raw []byte) bool {
	head := strings.ToLower(string(raw[:min(len(raw), 2048)]))
	if strings.HasPrefix(strings.TrimSpace(head), "<?xml") && !strings.Contains(head, "<html") {
		return false
	}
	return strings.Contains(head, "<html") ||
		strings.Contains(head, "<!doctype html") ||
		strings.Contains(head, "<body") ||
		strings.Contains(head, "<head")
}

func readHeadMetadata(doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = metaContent(doc, `meta[property="og:title"]`)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	description := metaContent(doc, `meta[name="description"]`)
	if description == "" {
		description = metaContent(doc, `meta[property="og:description"]`)
	}
	return title, description
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func bodyNode(doc *goquery.Document) *html.Node {
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body.Nodes[0]
	}
	return nil
}

// collectIncluded gathers every top-level match of the selectors, in
// document order, under a fresh <div>.
func collectIncluded(doc *goquery.Document, selectors []string) *html.Node {
	container := &html.Node{Type: html.ElementNode, Data: "div"}
	matched := doc.Find(strings.Join(selectors, ", "))

	matched.Each(func(_ int, s *goquery.Selection) {
		// nested matches are already carried by their ancestor
		if s.ParentsFiltered(strings.Join(selectors, ", ")).Length() > 0 {
			return
		}
		container.AppendChild(cloneNode(s.Nodes[0]))
	})

	if container.FirstChild == nil {
		return nil
	}
	return container
}

func selectMainContent(doc *goquery.Document, sourceUrl url.URL) (*html.Node, SelectionLayer) {
	if node := extractSemanticContainer(doc); node != nil {
		return node, LayerSemantic
	}
	if node := extractKnownContainer(doc); node != nil {
		return node, LayerKnown
	}
	if node := extractReadabilityArticle(doc, sourceUrl); node != nil {
		return node, LayerReadability
	}
	return bodyNode(doc), LayerBody
}

// extractSemanticContainer applies the first heuristic layer:
// Priority: <main> -> <article> -> [role="main"]
func extractSemanticContainer(doc *goquery.Document) *html.Node {
	for _, selector := range []string{"main", "article", "[role='main']"} {
		if match := doc.Find(selector).First(); match.Length() > 0 {
			if node := match.Nodes[0]; isMeaningful(node) {
				return node
			}
		}
	}
	return nil
}

func extractKnownContainer(doc *goquery.Document) *html.Node {
	for _, selector := range contentSelectors() {
		if match := doc.Find(selector).First(); match.Length() > 0 {
			if node := match.Nodes[0]; isMeaningful(node) {
				return node
			}
		}
	}
	return nil
}

// extractReadabilityArticle runs the readability scorer over the current
// (already filtered) document and returns the article body it finds.
func extractReadabilityArticle(doc *goquery.Document, sourceUrl url.URL) *html.Node {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Nodes[0]); err != nil {
		return nil
	}

	article, err := readability.FromReader(&buf, &sourceUrl)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return nil
	}

	articleDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil
	}
	node := bodyNode(articleDoc)
	if !isMeaningful(node) {
		return nil
	}
	return node
}

func cloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}
	return clone
}

func hasText(node *html.Node) bool {
	if node.Type == html.TextNode && strings.TrimSpace(node.Data) != "" {
		return true
	}
	if node.Type == html.ElementNode && node.Data == "img" {
		return true
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if hasText(c) {
			return true
		}
	}
	return false
}

// isMeaningful checks if a node contains meaningful content.
// A node is meaningful if it contains substantive text together with
// paragraphs, code blocks or headings, and is not dominated by links.
func isMeaningful(node *html.Node) bool {
	if node == nil {
		return false
	}

	var stats struct {
		textLength     int
		nonWhitespace  int
		headings       int
		paragraphs     int
		codeBlocks     int
		links          int
		linkTextLength int
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			stats.textLength += len(n.Data)
			for _, r := range n.Data {
				if !unicode.IsSpace(r) {
					stats.nonWhitespace++
				}
			}
		case html.ElementNode:
			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				stats.headings++
			case "p":
				stats.paragraphs++
			case "pre":
				stats.codeBlocks++
			case "a":
				stats.links++
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.TextNode {
						stats.linkTextLength += len(strings.TrimSpace(c.Data))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	const minNonWhitespace = 50
	const minParagraphsOrCode = 1
	const maxLinkDensity = 0.8

	if stats.nonWhitespace < minNonWhitespace {
		return false
	}
	if stats.textLength > 0 {
		linkDensity := float64(stats.linkTextLength) / float64(stats.textLength)
		if linkDensity > maxLinkDensity && stats.links > 2 {
			return false
		}
	}

	hasContent := stats.paragraphs >= minParagraphsOrCode || stats.codeBlocks >= minParagraphsOrCode
	hasHeadingsWithText := stats.headings > 0 && stats.nonWhitespace >= 20
	return hasContent || hasHeadingsWithText
}
