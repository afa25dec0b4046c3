package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/retry"
)

/*
DirectStrategy performs a plain HTTP GET and processes the body locally.

- Applies browser-like headers and the configured user agent
- Follows redirects (bounded by the http.Client)
- Only HTML responses are accepted
- Transient failures (network, 429, 5xx) are retried with backoff
*/
type DirectStrategy struct {
	httpClient *http.Client
	userAgent  string
	retryParam retry.RetryParam
	pipeline   *contentPipeline
}

type rawResponse struct {
	body        []byte
	statusCode  int
	contentType string
}

func NewDirectStrategy(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
	retryParam retry.RetryParam,
) *DirectStrategy {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &DirectStrategy{
		httpClient: httpClient,
		userAgent:  userAgent,
		retryParam: retryParam,
		pipeline:   newContentPipeline(metadataSink),
	}
}

func (d *DirectStrategy) Name() string {
	return StrategyDirectHTTP
}

func (d *DirectStrategy) Available() bool {
	return true
}

func (d *DirectStrategy) Retrieve(ctx context.Context, param FetchParam, format Format) (Page, failure.ClassifiedError) {
	result := retry.Retry(ctx, d.retryParam, func(ctx context.Context) (rawResponse, failure.ClassifiedError) {
		return d.performFetch(ctx, param.URL)
	})
	if result.IsFailure() {
		return Page{}, result.Err()
	}

	raw := result.Value()
	page, err := d.pipeline.render(param.URL, raw.body, format, param.Options)
	if err != nil {
		return Page{}, err
	}
	page.StatusCode = raw.statusCode
	page.ContentType = raw.contentType
	return page, nil
}

func (d *DirectStrategy) performFetch(ctx context.Context, fetchUrl url.URL) (rawResponse, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return rawResponse{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	for key, value := range requestHeaders(d.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		// transport errors are retried unless the caller gave up
		return rawResponse{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if classified := classifyStatus(resp.StatusCode); classified != nil {
		return rawResponse{}, classified
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return rawResponse{}, &FetchError{
			Message:    fmt.Sprintf("non-HTML content type: %s", contentType),
			Retryable:  false,
			Cause:      ErrCauseContentTypeInvalid,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResponse{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	return rawResponse{
		body:        body,
		statusCode:  resp.StatusCode,
		contentType: contentType,
	}, nil
}

// classifyStatus returns nil for 2xx responses.
func classifyStatus(statusCode int) *FetchError {
	switch {
	case statusCode >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", statusCode),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: statusCode,
		}
	case statusCode == http.StatusForbidden:
		return &FetchError{
			Message:    "access forbidden (403)",
			Retryable:  false,
			Cause:      ErrCauseRequestPageForbidden,
			StatusCode: statusCode,
		}
	case statusCode >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRequestClientError,
			StatusCode: statusCode,
		}
	case statusCode >= 300:
		// redirects are followed by http.Client; one surfacing here was not
		return &FetchError{
			Message:    fmt.Sprintf("redirect error: %d", statusCode),
			Retryable:  false,
			Cause:      ErrCauseRedirectLimitExceeded,
			StatusCode: statusCode,
		}
	}
	return nil
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"DNT":             "1",
	}
}
