package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/retry"
)

// HTTPRemoteScraper talks to a Firecrawl-compatible scraping API
// (POST /v1/scrape and POST /v1/map).
type HTTPRemoteScraper struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	retryParam retry.RetryParam
}

func NewHTTPRemoteScraper(
	baseURL string,
	apiKey string,
	userAgent string,
	httpClient *http.Client,
	retryParam retry.RetryParam,
) *HTTPRemoteScraper {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPRemoteScraper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  userAgent,
		httpClient: httpClient,
		retryParam: retryParam,
	}
}

type scrapeRequestBody struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	TimeoutMs       int64    `json:"timeout,omitempty"`
}

type scrapeResponseBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string   `json:"markdown"`
		HTML     string   `json:"html"`
		RawHTML  string   `json:"rawHtml"`
		Links    []string `json:"links"`
		Metadata struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			StatusCode  int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

type mapRequestBody struct {
	URL   string `json:"url"`
	Limit int    `json:"limit,omitempty"`
}

type mapResponseBody struct {
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
	Links   []string `json:"links"`
}

func (h *HTTPRemoteScraper) Scrape(ctx context.Context, req ScrapeRequest) (ScrapeResponse, error) {
	formats := make([]string, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, string(f))
	}
	body := scrapeRequestBody{
		URL:             req.URL,
		Formats:         formats,
		OnlyMainContent: req.OnlyMainContent,
		IncludeTags:     req.IncludeTags,
		ExcludeTags:     req.ExcludeTags,
		TimeoutMs:       req.Timeout.Milliseconds(),
	}

	var decoded scrapeResponseBody
	if err := h.postWithRetry(ctx, "/v1/scrape", body, &decoded); err != nil {
		return ScrapeResponse{}, err
	}
	if !decoded.Success {
		return ScrapeResponse{}, &FetchError{
			Message:   fmt.Sprintf("scrape rejected: %s", decoded.Error),
			Retryable: false,
			Cause:     ErrCauseUpstreamRejected,
		}
	}

	var content string
	switch PrimaryFormat(req.Formats) {
	case FormatHTML:
		content = decoded.Data.HTML
	case FormatRawHTML:
		content = decoded.Data.RawHTML
	default:
		content = decoded.Data.Markdown
	}

	return ScrapeResponse{
		Content: content,
		Metadata: ScrapeMetadata{
			Title:       decoded.Data.Metadata.Title,
			Description: decoded.Data.Metadata.Description,
			StatusCode:  decoded.Data.Metadata.StatusCode,
		},
		Links: decoded.Data.Links,
	}, nil
}

// Map asks the service for the URLs it knows on a site.
func (h *HTTPRemoteScraper) Map(ctx context.Context, siteUrl string, limit int) ([]string, error) {
	var decoded mapResponseBody
	if err := h.postWithRetry(ctx, "/v1/map", mapRequestBody{URL: siteUrl, Limit: limit}, &decoded); err != nil {
		return nil, err
	}
	if !decoded.Success {
		return nil, &FetchError{
			Message:   fmt.Sprintf("map rejected: %s", decoded.Error),
			Retryable: false,
			Cause:     ErrCauseUpstreamRejected,
		}
	}
	return decoded.Links, nil
}

func (h *HTTPRemoteScraper) postWithRetry(ctx context.Context, path string, payload any, out any) failure.ClassifiedError {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return &FetchError{
			Message:   fmt.Sprintf("failed to encode request: %v", err),
			Retryable: false,
			Cause:     ErrCauseUpstreamRejected,
		}
	}

	result := retry.Retry(ctx, h.retryParam, func(ctx context.Context) ([]byte, failure.ClassifiedError) {
		return h.post(ctx, path, encoded)
	})
	if result.IsFailure() {
		return result.Err()
	}

	if err := json.Unmarshal(result.Value(), out); err != nil {
		return &FetchError{
			Message:   fmt.Sprintf("failed to decode response: %v", err),
			Retryable: false,
			Cause:     ErrCauseUpstreamRejected,
		}
	}
	return nil
}

func (h *HTTPRemoteScraper) post(ctx context.Context, path string, encoded []byte) ([]byte, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if classified := classifyStatus(resp.StatusCode); classified != nil {
		return nil, classified
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}
	return body, nil
}
