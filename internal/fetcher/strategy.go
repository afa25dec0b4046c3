package fetcher

import (
	"context"

	"github.com/rohmanhakim/fetchkit/pkg/failure"
)

const (
	StrategyRemoteAPI     = "remote_api"
	StrategyBrowserRender = "browser_render"
	StrategyDirectHTTP    = "direct_http"
)

// Strategy is one way of retrieving a page. Strategies are tried in order
// by the Chain.
type Strategy interface {
	Name() string
	// Available reports whether the strategy is configured at all.
	// Unavailable strategies are skipped without counting as a failure.
	Available() bool
	// Retrieve returns the page rendered in format.
	Retrieve(ctx context.Context, param FetchParam, format Format) (Page, failure.ClassifiedError)
}

var (
	_ Strategy = (*RemoteStrategy)(nil)
	_ Strategy = (*BrowserStrategy)(nil)
	_ Strategy = (*DirectStrategy)(nil)
)
