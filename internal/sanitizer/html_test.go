package sanitizer_test

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/sanitizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// mockMetadataSink is a test double for metadata.MetadataSink
type mockMetadataSink struct {
	metadata.NoopSink
	causes []metadata.ErrorCause
}

func (m *mockMetadataSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.causes = append(m.causes, cause)
}

func parseBody(t *testing.T, fragment string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + fragment + "</body></html>"))
	require.NoError(t, err)
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil && body == nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	require.NotNil(t, body)
	return body
}

func renderHtmlForTest(t *testing.T, node *html.Node) string {
	t.Helper()
	var buf strings.Builder
	require.NoError(t, html.Render(&buf, node))
	return buf.String()
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestSanitize_RemovesNonContentElements(t *testing.T) {
	body := parseBody(t, `
<nav>menu</nav>
<script>alert(1)</script>
<style>p{}</style>
<!-- note -->
<p>Kept paragraph</p>
<footer>legal</footer>`)

	s := sanitizer.NewHTMLSanitizer(&mockMetadataSink{}, sanitizer.DefaultSanitizeParam())
	doc, err := s.Sanitize(mustURL(t, "https://example.com/"), body)

	require.Nil(t, err)
	out := renderHtmlForTest(t, doc.GetContentNode())
	assert.Contains(t, out, "Kept paragraph")
	for _, gone := range []string{"menu", "alert", "p{}", "note", "legal"} {
		assert.NotContains(t, out, gone)
	}
}

func TestSanitize_KeepsChromeWhenNotStripping(t *testing.T) {
	body := parseBody(t, `<header>Site name</header><p>Body</p>`)

	s := sanitizer.NewHTMLSanitizer(&mockMetadataSink{}, sanitizer.SanitizeParam{StripChrome: false})
	doc, err := s.Sanitize(mustURL(t, "https://example.com/"), body)

	require.Nil(t, err)
	assert.Contains(t, renderHtmlForTest(t, doc.GetContentNode()), "Site name")
}

func TestSanitize_AlwaysDropsNavAndFooter(t *testing.T) {
	body := parseBody(t, `<nav>menu</nav><aside>related</aside><p>Body</p><footer>legal</footer>`)

	s := sanitizer.NewHTMLSanitizer(&mockMetadataSink{}, sanitizer.SanitizeParam{StripChrome: false})
	doc, err := s.Sanitize(mustURL(t, "https://example.com/"), body)

	require.Nil(t, err)
	out := renderHtmlForTest(t, doc.GetContentNode())
	assert.Contains(t, out, "Body")
	assert.Contains(t, out, "related")
	assert.NotContains(t, out, "menu")
	assert.NotContains(t, out, "legal")
}

func TestSanitize_ResolvesAndCollectsReferences(t *testing.T) {
	body := parseBody(t, `
<p><a href="/guide">Guide</a>
<a href="intro#part">Intro</a>
<a href="/guide">Guide again</a>
<a href="#top">Top</a>
<a href="mailto:me@example.com">Mail</a></p>
<img src="img/logo.png" alt="logo">
<img data-src="https://cdn.example.com/lazy.png" alt="lazy">`)

	s := sanitizer.NewHTMLSanitizer(&mockMetadataSink{}, sanitizer.DefaultSanitizeParam())
	doc, err := s.Sanitize(mustURL(t, "https://example.com/docs/page"), body)

	require.Nil(t, err)

	var links []string
	for _, l := range doc.GetLinks() {
		links = append(links, l.String())
	}
	assert.Equal(t, []string{"https://example.com/guide", "https://example.com/docs/intro"}, links)

	var images []string
	for _, i := range doc.GetImages() {
		images = append(images, i.String())
	}
	assert.Equal(t, []string{"https://example.com/docs/img/logo.png", "https://cdn.example.com/lazy.png"}, images)

	out := renderHtmlForTest(t, doc.GetContentNode())
	assert.Contains(t, out, `href="https://example.com/guide"`)
	assert.Contains(t, out, `href="#top"`)
	assert.Contains(t, out, `src="https://example.com/docs/img/logo.png"`)
}

func TestSanitize_RemovesEmptyNodesButKeepsTableCells(t *testing.T) {
	body := parseBody(t, `
<div><span> </span><div></div></div>
<table><tr><td>a</td><td></td></tr></table>
<p>text<br></p>`)

	s := sanitizer.NewHTMLSanitizer(&mockMetadataSink{}, sanitizer.DefaultSanitizeParam())
	doc, err := s.Sanitize(mustURL(t, "https://example.com/"), body)

	require.Nil(t, err)
	out := renderHtmlForTest(t, doc.GetContentNode())
	assert.NotContains(t, out, "<span>")
	assert.NotContains(t, out, "<div>")
	assert.Contains(t, out, "<td></td>")
	assert.Contains(t, out, "<br/>")
}

func TestSanitize_EmptyResultIsAnError(t *testing.T) {
	body := parseBody(t, `<script>x()</script><div> </div>`)

	sink := &mockMetadataSink{}
	s := sanitizer.NewHTMLSanitizer(sink, sanitizer.DefaultSanitizeParam())
	_, err := s.Sanitize(mustURL(t, "https://example.com/"), body)

	require.NotNil(t, err)
	var sanitizationErr *sanitizer.SanitizationError
	require.ErrorAs(t, err, &sanitizationErr)
	assert.Equal(t, sanitizer.ErrCauseEmptyContent, sanitizationErr.Cause)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseContentInvalid}, sink.causes)
}

func TestSanitize_NilNode(t *testing.T) {
	sink := &mockMetadataSink{}
	s := sanitizer.NewHTMLSanitizer(sink, sanitizer.DefaultSanitizeParam())
	_, err := s.Sanitize(mustURL(t, "https://example.com/"), nil)

	require.NotNil(t, err)
	var sanitizationErr *sanitizer.SanitizationError
	require.ErrorAs(t, err, &sanitizationErr)
	assert.Equal(t, sanitizer.ErrCauseBrokenDOM, sanitizationErr.Cause)
	assert.Len(t, sink.causes, 1)
}
