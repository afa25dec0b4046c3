package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

// robots.txt bodies past this size are truncated.
const maxBodySize = 500 * 1024

/*
Fetcher

Responsibilities:
- Fetch robots.txt once per scheme and host
- Treat a missing robots.txt (any 4xx but 429) as empty rules
- Report 429, 5xx and transport failures as errors, which are not cached
- Record every failure to the metadata sink

A Fetcher is safe for concurrent use.
*/
type Fetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string

	mu    sync.Mutex
	rules map[string]Rules
}

func NewFetcher(metadataSink metadata.MetadataSink, httpClient *http.Client, userAgent string) *Fetcher {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
		rules:        make(map[string]Rules),
	}
}

// Fetch returns the robots.txt rules of the host of site.
func (f *Fetcher) Fetch(ctx context.Context, site url.URL) (Rules, failure.ClassifiedError) {
	robotsUrl := fmt.Sprintf("%s://%s/robots.txt", site.Scheme, site.Host)

	f.mu.Lock()
	cached, ok := f.rules[robotsUrl]
	f.mu.Unlock()
	if ok {
		return cached, nil
	}

	rules, err := f.fetch(ctx, robotsUrl, site.Host)
	if err != nil {
		f.metadataSink.RecordError(
			time.Now(),
			"robots",
			"Fetcher.Fetch",
			mapRobotsErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, robotsUrl),
			},
		)
		return Rules{}, err
	}

	f.mu.Lock()
	f.rules[robotsUrl] = rules
	f.mu.Unlock()
	return rules, nil
}

func (f *Fetcher) fetch(ctx context.Context, robotsUrl, host string) (Rules, *RobotsError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsUrl, nil)
	if err != nil {
		return Rules{}, &RobotsError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRequestFailure,
		}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/plain,*/*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Rules{}, &RobotsError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseRequestFailure,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		content, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return Rules{}, &RobotsError{
				Message:   err.Error(),
				Retryable: true,
				Cause:     ErrCauseReadFailure,
			}
		}
		rules, err := Parse(content, host)
		if err != nil {
			return Rules{}, &RobotsError{
				Message:   err.Error(),
				Retryable: false,
				Cause:     ErrCauseParseFailure,
			}
		}
		return rules, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return Rules{}, &RobotsError{
			Message:   fmt.Sprintf("status %d for %s", resp.StatusCode, robotsUrl),
			Retryable: true,
			Cause:     ErrCauseTooManyRequests,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Rules{Host: host}, nil

	default:
		return Rules{}, &RobotsError{
			Message:   fmt.Sprintf("status %d for %s", resp.StatusCode, robotsUrl),
			Retryable: true,
			Cause:     ErrCauseServerError,
		}
	}
}
