package cmd

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/engine"
	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/spf13/cobra"
)

// requestFlags are the per-request flags shared by fetch and batch.
type requestFlags struct {
	formats         []string
	onlyMainContent bool
	includeTags     []string
	excludeTags     []string
	ttl             time.Duration
}

func (r *requestFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&r.formats, "format", []string{string(fetcher.FormatMarkdown)}, "markdown, html, rawHtml or text (can be repeated)")
	f.BoolVar(&r.onlyMainContent, "only-main-content", true, "strip navigation, headers and footers")
	f.StringArrayVar(&r.includeTags, "include-tag", []string{}, "CSS selector of content to keep (can be repeated)")
	f.StringArrayVar(&r.excludeTags, "exclude-tag", []string{}, "CSS selector of content to drop (can be repeated)")
	f.DurationVar(&r.ttl, "ttl", 0, "cache lifetime of this result, 0 for the default")
}

func (r *requestFlags) request(rawUrl string, priority engine.Priority) (engine.FetchRequest, error) {
	target, err := parseTargetURL(rawUrl)
	if err != nil {
		return engine.FetchRequest{}, err
	}
	formats := make([]fetcher.Format, 0, len(r.formats))
	for _, name := range r.formats {
		format, err := fetcher.ParseFormat(strings.TrimSpace(name))
		if err != nil {
			return engine.FetchRequest{}, err
		}
		formats = append(formats, format)
	}
	return engine.FetchRequest{
		URL:     target,
		Formats: formats,
		Options: fetcher.ExtractionOptions{
			OnlyMainContent: r.onlyMainContent,
			IncludeTags:     r.includeTags,
			ExcludeTags:     r.excludeTags,
		},
		Priority: priority,
		TTL:      r.ttl,
	}, nil
}

// parseTargetURL accepts absolute http(s) URLs only.
func parseTargetURL(rawUrl string) (url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawUrl))
	if err != nil {
		return url.URL{}, fmt.Errorf("error parsing URL %s: %w", rawUrl, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return url.URL{}, fmt.Errorf("error parsing URL %s: absolute http(s) URL required", rawUrl)
	}
	return *parsed, nil
}
