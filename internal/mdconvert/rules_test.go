package mdconvert_test

import (
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/mdconvert"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/sanitizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

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

func sanitizedBody(t *testing.T, fragment string) sanitizer.SanitizedHTMLDoc {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + fragment + "</body></html>"))
	require.NoError(t, err)

	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
		}
		for c := n.FirstChild; c != nil && body == nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	require.NotNil(t, body)
	return sanitizer.NewSanitizedHTMLDoc(body, nil, nil)
}

func TestConvert_Markdown(t *testing.T) {
	doc := sanitizedBody(t, `<h1>Title</h1>
<p>Hello <strong>world</strong>, see <a href="https://example.com/a">docs</a>.</p>
<table><thead><tr><th>Name</th><th>Value</th></tr></thead>
<tbody><tr><td>a</td><td>1</td></tr></tbody></table>`)

	rule := mdconvert.NewRule(&mockMetadataSink{})
	result, err := rule.Convert(doc, mdconvert.TargetMarkdown)

	require.Nil(t, err)
	md := string(result.GetContent())
	assert.Equal(t, mdconvert.TargetMarkdown, result.GetTarget())
	assert.Contains(t, md, "# Title")
	assert.Contains(t, md, "**world**")
	assert.Contains(t, md, "[docs](https://example.com/a)")
	assert.Contains(t, md, "| Name")
}

func TestConvert_HTMLDropsBodyWrapper(t *testing.T) {
	doc := sanitizedBody(t, `<h1>Title</h1><p>Body</p>`)

	rule := mdconvert.NewRule(&mockMetadataSink{})
	result, err := rule.Convert(doc, mdconvert.TargetHTML)

	require.Nil(t, err)
	assert.Equal(t, "<h1>Title</h1><p>Body</p>", string(result.GetContent()))
}

func TestConvert_Text(t *testing.T) {
	doc := sanitizedBody(t, `<h1>Title</h1>
<p>Hello
   <strong>world</strong></p>
<p>x</p><pre>  a
    b</pre>`)

	rule := mdconvert.NewRule(&mockMetadataSink{})
	result, err := rule.Convert(doc, mdconvert.TargetText)

	require.Nil(t, err)
	assert.Equal(t, "Title\n\nHello world\n\nx\n\n  a\n    b", string(result.GetContent()))
}

func TestConvert_UnknownTarget(t *testing.T) {
	doc := sanitizedBody(t, `<p>Body</p>`)

	sink := &mockMetadataSink{}
	rule := mdconvert.NewRule(sink)
	_, err := rule.Convert(doc, mdconvert.Target("pdf"))

	require.NotNil(t, err)
	var conversionErr *mdconvert.ConversionError
	require.ErrorAs(t, err, &conversionErr)
	assert.Equal(t, mdconvert.ErrCauseUnknownTarget, conversionErr.Cause)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseInvariantViolation}, sink.causes)
}

func TestConvert_NilNode(t *testing.T) {
	sink := &mockMetadataSink{}
	rule := mdconvert.NewRule(sink)
	_, err := rule.Convert(sanitizer.NewSanitizedHTMLDoc(nil, nil, nil), mdconvert.TargetMarkdown)

	require.NotNil(t, err)
	assert.Len(t, sink.causes, 1)
}

func TestParseTarget(t *testing.T) {
	target, err := mdconvert.ParseTarget("text")
	require.NoError(t, err)
	assert.Equal(t, mdconvert.TargetText, target)

	_, err = mdconvert.ParseTarget("docx")
	assert.Error(t, err)
}
