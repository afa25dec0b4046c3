package fetcher

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Format is an output representation a caller may ask for.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatRawHTML  Format = "rawHtml"
	FormatText     Format = "text"
)

// formatPrecedence decides the primary format of a request: the first
// entry present in the requested set wins.
var formatPrecedence = []Format{FormatMarkdown, FormatHTML, FormatRawHTML, FormatText}

func ParseFormat(s string) (Format, error) {
	for _, f := range formatPrecedence {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// PrimaryFormat returns the format results are rendered in. An empty set
// means markdown.
func PrimaryFormat(formats []Format) Format {
	for _, f := range formatPrecedence {
		if slices.Contains(formats, f) {
			return f
		}
	}
	return FormatMarkdown
}

// SortedFormats returns the distinct formats in lexical order.
func SortedFormats(formats []Format) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, string(f))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type ExtractionOptions struct {
	OnlyMainContent bool
	IncludeTags     []string
	ExcludeTags     []string
}

// FetchParam describes one retrieval through the chain.
type FetchParam struct {
	URL     url.URL
	Formats []Format
	Options ExtractionOptions
	// Timeout bounds the whole chain; zero means no extra deadline.
	Timeout time.Duration
}

// Page is what a single strategy produces: content already rendered in the
// primary format plus what was learned about the page on the way.
type Page struct {
	Content     string
	Title       string
	Description string
	Links       []url.URL
	Images      []url.URL
	StatusCode  int
	ContentType string
}

// Attempt records one strategy's turn in the chain.
type Attempt struct {
	Strategy string
	Err      error
	Duration time.Duration
	// Skipped is set when the strategy was not configured.
	Skipped bool
}

type Outcome struct {
	Result   FetchResult
	Attempts []Attempt
	// LimiterWait is the time spent blocked on the rate limiter.
	LimiterWait time.Duration
}

const wordsPerMinute = 200

// FetchResult is the immutable outcome of a successful retrieval.
type FetchResult struct {
	url         string
	title       string
	description string
	content     string
	format      Format
	timestamp   time.Time
	metadata    map[string]string
	links       []string
	images      []string
	wordCount   int
	readingTime int
}

func NewFetchResult(
	sourceUrl url.URL,
	page Page,
	format Format,
	timestamp time.Time,
	metadata map[string]string,
) FetchResult {
	words := countWords(page.Content, format)
	return FetchResult{
		url:         sourceUrl.String(),
		title:       page.Title,
		description: page.Description,
		content:     page.Content,
		format:      format,
		timestamp:   timestamp,
		metadata:    maps.Clone(metadata),
		links:       urlStrings(page.Links),
		images:      urlStrings(page.Images),
		wordCount:   words,
		readingTime: readingMinutes(words),
	}
}

func (f FetchResult) URL() string             { return f.url }
func (f FetchResult) Title() string           { return f.title }
func (f FetchResult) Description() string     { return f.description }
func (f FetchResult) Content() string         { return f.content }
func (f FetchResult) Format() Format          { return f.format }
func (f FetchResult) Timestamp() time.Time    { return f.timestamp }
func (f FetchResult) WordCount() int          { return f.wordCount }
func (f FetchResult) ReadingTimeMinutes() int { return f.readingTime }

func (f FetchResult) Metadata() map[string]string {
	return maps.Clone(f.metadata)
}

func (f FetchResult) MetadataValue(key string) (string, bool) {
	v, ok := f.metadata[key]
	return v, ok
}

func (f FetchResult) Links() []string {
	return slices.Clone(f.links)
}

func (f FetchResult) Images() []string {
	return slices.Clone(f.images)
}

// WithMetadata returns a copy of f carrying the extra entries; f itself is
// left untouched.
func (f FetchResult) WithMetadata(entries map[string]string) FetchResult {
	merged := make(map[string]string, len(f.metadata)+len(entries))
	maps.Copy(merged, f.metadata)
	maps.Copy(merged, entries)
	f.metadata = merged
	return f
}

func (f FetchResult) IsZero() bool {
	return f.url == ""
}

type fetchResultDTO struct {
	URL                string            `json:"url"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Content            string            `json:"content"`
	Format             Format            `json:"format"`
	Timestamp          time.Time         `json:"timestamp"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	Links              []string          `json:"links,omitempty"`
	Images             []string          `json:"images,omitempty"`
	WordCount          int               `json:"wordCount"`
	ReadingTimeMinutes int               `json:"readingTimeMinutes"`
}

func (f FetchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(fetchResultDTO{
		URL:                f.url,
		Title:              f.title,
		Description:        f.description,
		Content:            f.content,
		Format:             f.format,
		Timestamp:          f.timestamp,
		Metadata:           f.metadata,
		Links:              f.links,
		Images:             f.images,
		WordCount:          f.wordCount,
		ReadingTimeMinutes: f.readingTime,
	})
}

func (f *FetchResult) UnmarshalJSON(data []byte) error {
	var dto fetchResultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	if dto.URL == "" {
		return fmt.Errorf("fetch result without url")
	}
	*f = FetchResult{
		url:         dto.URL,
		title:       dto.Title,
		description: dto.Description,
		content:     dto.Content,
		format:      dto.Format,
		timestamp:   dto.Timestamp,
		metadata:    dto.Metadata,
		links:       dto.Links,
		images:      dto.Images,
		wordCount:   dto.WordCount,
		readingTime: dto.ReadingTimeMinutes,
	}
	return nil
}

func countWords(content string, format Format) int {
	if format == FormatHTML || format == FormatRawHTML {
		content = visibleText(content)
	}
	return len(strings.Fields(content))
}

func readingMinutes(words int) int {
	return max(1, words/wordsPerMinute)
}

func urlStrings(urls []url.URL) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.String())
	}
	return out
}
