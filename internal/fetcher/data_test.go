package fetcher_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []fetcher.Format
		want    fetcher.Format
	}{
		{"empty defaults to markdown", nil, fetcher.FormatMarkdown},
		{"single", []fetcher.Format{fetcher.FormatText}, fetcher.FormatText},
		{"markdown wins regardless of order", []fetcher.Format{fetcher.FormatHTML, fetcher.FormatMarkdown}, fetcher.FormatMarkdown},
		{"html before raw", []fetcher.Format{fetcher.FormatRawHTML, fetcher.FormatText, fetcher.FormatHTML}, fetcher.FormatHTML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fetcher.PrimaryFormat(tt.formats))
		})
	}
}

func TestSortedFormats_OrderIndependent(t *testing.T) {
	a := fetcher.SortedFormats([]fetcher.Format{fetcher.FormatMarkdown, fetcher.FormatHTML, fetcher.FormatMarkdown})
	b := fetcher.SortedFormats([]fetcher.Format{fetcher.FormatHTML, fetcher.FormatMarkdown})
	assert.Equal(t, []string{"html", "markdown"}, a)
	assert.Equal(t, a, b)
}

func TestParseFormat(t *testing.T) {
	f, err := fetcher.ParseFormat("rawHtml")
	require.NoError(t, err)
	assert.Equal(t, fetcher.FormatRawHTML, f)

	_, err = fetcher.ParseFormat("pdf")
	assert.Error(t, err)
}

func TestNewFetchResult_WordCountAndReadingTime(t *testing.T) {
	u := mustURL(t, "https://example.com/a")

	short := fetcher.NewFetchResult(u, fetcher.Page{Content: "one two three"}, fetcher.FormatMarkdown, time.Now(), nil)
	assert.Equal(t, 3, short.WordCount())
	assert.Equal(t, 1, short.ReadingTimeMinutes())

	long := fetcher.NewFetchResult(u, fetcher.Page{Content: strings.Repeat("word ", 450)}, fetcher.FormatText, time.Now(), nil)
	assert.Equal(t, 450, long.WordCount())
	assert.Equal(t, 2, long.ReadingTimeMinutes())
}

func TestNewFetchResult_HTMLWordCountIgnoresMarkup(t *testing.T) {
	u := mustURL(t, "https://example.com/a")
	content := `<p>Hello <b>brave</b> world</p><script>var x = 1;</script><style>p { color: red }</style>`

	result := fetcher.NewFetchResult(u, fetcher.Page{Content: content}, fetcher.FormatHTML, time.Now(), nil)

	assert.Equal(t, 3, result.WordCount())
}

func TestFetchResult_WithMetadataLeavesOriginalUntouched(t *testing.T) {
	u := mustURL(t, "https://example.com/a")
	original := fetcher.NewFetchResult(u, fetcher.Page{Content: "x"}, fetcher.FormatMarkdown, time.Now(), map[string]string{
		"strategy": "direct_http",
	})

	enhanced := original.WithMetadata(map[string]string{"language": "en"})

	assert.Equal(t, map[string]string{"strategy": "direct_http"}, original.Metadata())
	assert.Equal(t, map[string]string{"strategy": "direct_http", "language": "en"}, enhanced.Metadata())

	leaked := enhanced.Metadata()
	leaked["strategy"] = "changed"
	v, _ := enhanced.MetadataValue("strategy")
	assert.Equal(t, "direct_http", v)
}

func TestFetchResult_JSON(t *testing.T) {
	u := mustURL(t, "https://example.com/a")
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	page := fetcher.Page{
		Content:     "# Title\n\nbody text",
		Title:       "Title",
		Description: "desc",
		Links:       []url.URL{mustURL(t, "https://example.com/b")},
	}
	result := fetcher.NewFetchResult(u, page, fetcher.FormatMarkdown, stamp, map[string]string{"strategy": "remote_api"})

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"readingTimeMinutes":1`)

	var decoded fetcher.FetchResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"content":"x"}`), &decoded))
}
