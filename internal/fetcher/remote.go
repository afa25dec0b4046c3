package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/urlutil"
)

type ScrapeRequest struct {
	URL             string
	Formats         []Format
	OnlyMainContent bool
	IncludeTags     []string
	ExcludeTags     []string
	Timeout         time.Duration
}

type ScrapeMetadata struct {
	Title       string
	Description string
	StatusCode  int
}

// ScrapeResponse carries the content of the first requested format.
type ScrapeResponse struct {
	Content  string
	Metadata ScrapeMetadata
	Links    []string
}

// RemoteScraper is a managed scraping service.
type RemoteScraper interface {
	Scrape(ctx context.Context, req ScrapeRequest) (ScrapeResponse, error)
}

// RemoteStrategy delegates retrieval to a RemoteScraper. Text output is
// not offered by scraping services, so it is requested as HTML and
// converted locally.
type RemoteStrategy struct {
	scraper  RemoteScraper
	pipeline *contentPipeline
}

// NewRemoteStrategy accepts a nil scraper; the strategy then reports
// itself unavailable.
func NewRemoteStrategy(metadataSink metadata.MetadataSink, scraper RemoteScraper) *RemoteStrategy {
	return &RemoteStrategy{
		scraper:  scraper,
		pipeline: newContentPipeline(metadataSink),
	}
}

func (r *RemoteStrategy) Name() string {
	return StrategyRemoteAPI
}

func (r *RemoteStrategy) Available() bool {
	return r.scraper != nil
}

func (r *RemoteStrategy) Retrieve(ctx context.Context, param FetchParam, format Format) (Page, failure.ClassifiedError) {
	requested := format
	if format == FormatText {
		requested = FormatHTML
	}

	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	resp, err := r.scraper.Scrape(ctx, ScrapeRequest{
		URL:             param.URL.String(),
		Formats:         []Format{requested},
		OnlyMainContent: param.Options.OnlyMainContent,
		IncludeTags:     param.Options.IncludeTags,
		ExcludeTags:     param.Options.ExcludeTags,
		Timeout:         timeout,
	})
	if err != nil {
		var classified failure.ClassifiedError
		if errors.As(err, &classified) {
			return Page{}, classified
		}
		return Page{}, &FetchError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseUpstreamRejected,
		}
	}

	page := Page{
		Content:     resp.Content,
		Title:       resp.Metadata.Title,
		Description: resp.Metadata.Description,
		StatusCode:  resp.Metadata.StatusCode,
		Links:       resolveAll(&param.URL, resp.Links),
	}

	if format == FormatText {
		// the remote already applied the selection rules
		converted, convErr := r.pipeline.render(param.URL, []byte(wrapFragment(resp.Content)), FormatText, ExtractionOptions{})
		if convErr != nil {
			return Page{}, convErr
		}
		page.Content = converted.Content
		page.Images = converted.Images
		if len(page.Links) == 0 {
			page.Links = converted.Links
		}
	}

	if page.Content == "" {
		return Page{}, &FetchError{
			Message:   fmt.Sprintf("empty %s content", requested),
			Retryable: false,
			Cause:     ErrCauseUpstreamRejected,
		}
	}
	return page, nil
}

func wrapFragment(fragment string) string {
	return "<html><body>" + fragment + "</body></html>"
}

func resolveAll(base *url.URL, refs []string) []url.URL {
	var out []url.URL
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		resolved, ok := urlutil.Resolve(base, ref)
		if !ok {
			continue
		}
		if _, dup := seen[resolved.String()]; dup {
			continue
		}
		seen[resolved.String()] = struct{}{}
		out = append(out, *resolved)
	}
	return out
}
