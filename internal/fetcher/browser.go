package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

// BrowserPage is one tab of a headless browser.
type BrowserPage interface {
	Navigate(ctx context.Context, pageUrl string) error
	// WaitForNetworkIdle blocks until the page stops loading resources or
	// timeout passes.
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	Content(ctx context.Context) (string, error)
	Close() error
}

type BrowserRenderer interface {
	NewPage(ctx context.Context) (BrowserPage, error)
}

var ErrNetworkIdleTimeout = errors.New("network idle not reached")

// BrowserStrategy renders the page in a headless browser so client-side
// content is present, then processes the resulting DOM locally.
type BrowserStrategy struct {
	metadataSink metadata.MetadataSink
	renderer     BrowserRenderer
	idleTimeout  time.Duration
	pipeline     *contentPipeline
}

// NewBrowserStrategy accepts a nil renderer; the strategy then reports
// itself unavailable.
func NewBrowserStrategy(
	metadataSink metadata.MetadataSink,
	renderer BrowserRenderer,
	idleTimeout time.Duration,
) *BrowserStrategy {
	return &BrowserStrategy{
		metadataSink: metadataSink,
		renderer:     renderer,
		idleTimeout:  idleTimeout,
		pipeline:     newContentPipeline(metadataSink),
	}
}

func (b *BrowserStrategy) Name() string {
	return StrategyBrowserRender
}

func (b *BrowserStrategy) Available() bool {
	return b.renderer != nil
}

func (b *BrowserStrategy) Retrieve(ctx context.Context, param FetchParam, format Format) (Page, failure.ClassifiedError) {
	page, err := b.renderer.NewPage(ctx)
	if err != nil {
		return Page{}, browserError(ctx, "open page", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, param.URL.String()); err != nil {
		return Page{}, browserError(ctx, "navigate", err)
	}

	if err := page.WaitForNetworkIdle(ctx, b.idleTimeout); err != nil {
		if ctx.Err() != nil {
			return Page{}, browserError(ctx, "wait for network idle", err)
		}
		// pages that keep polling never go idle; take what has rendered
		b.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			"BrowserStrategy.Retrieve",
			metadata.CauseNetworkFailure,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, param.URL.String()),
			},
		)
	}

	content, err := page.Content(ctx)
	if err != nil {
		return Page{}, browserError(ctx, "read content", err)
	}

	rendered, classified := b.pipeline.render(param.URL, []byte(content), format, param.Options)
	if classified != nil {
		return Page{}, classified
	}
	rendered.ContentType = "text/html"
	return rendered, nil
}

func browserError(ctx context.Context, step string, err error) *FetchError {
	cause := ErrCauseBrowserFailure
	if ctx.Err() != nil {
		cause = ErrCauseTimeout
	}
	return &FetchError{
		Message:   fmt.Sprintf("%s: %v", step, err),
		Retryable: false,
		Cause:     cause,
	}
}
