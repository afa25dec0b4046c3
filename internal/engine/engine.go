package engine

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/cache"
	"github.com/rohmanhakim/fetchkit/internal/config"
	"github.com/rohmanhakim/fetchkit/internal/enhancer"
	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/metrics"
	"github.com/rohmanhakim/fetchkit/internal/scheduler"
	"github.com/rohmanhakim/fetchkit/internal/sitemap"
	"github.com/rohmanhakim/fetchkit/pkg/limiter"
	"github.com/rohmanhakim/fetchkit/pkg/retry"
	"github.com/rohmanhakim/fetchkit/pkg/timeutil"
)

/*
Engine is the single handle through which every retrieval flows.

Fetch path:
  cache lookup -> rate limiter -> strategy chain -> enhancement -> cache write

Responsibilities
- Build every component once from a Config
- Serve fresh cached results without touching the network
- Keep caching advisory: a cache failure never fails a fetch
- Release stores and the browser on Close

An Engine is safe for concurrent use.
*/
type Engine struct {
	cfg          config.Config
	cache        *cache.Manager
	rateLimiter  limiter.RateLimiter
	chain        *fetcher.Chain
	enhancer     *enhancer.Enhancer
	scheduler    *scheduler.BatchScheduler[FetchRequest]
	mapper       *sitemap.Mapper
	remote       *fetcher.HTTPRemoteScraper
	renderer     *fetcher.ChromeRenderer
	metrics      *metrics.Metrics
	metadataSink metadata.MetadataSink

	closeOnce sync.Once
	closeErr  error
}

// Param carries the collaborators that do not come from configuration.
// Every field is optional.
type Param struct {
	// MetadataSink also receives batch stats when it implements
	// metadata.BatchFinalizer.
	MetadataSink metadata.MetadataSink
	// Metrics, when set, observes every sink event.
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
	// Store replaces the store the cache backend setting would open.
	Store cache.Store
	// Renderer replaces the chrome renderer when the browser is enabled.
	Renderer fetcher.BrowserRenderer
	// Summarizer replaces the OpenAI client when summaries are enabled.
	Summarizer enhancer.Summarizer
	Clock      func() time.Time
}

func New(ctx context.Context, cfg config.Config, param Param) (*Engine, error) {
	sink := param.MetadataSink
	if sink == nil {
		sink = &metadata.NoopSink{}
	}
	var finalizer metadata.BatchFinalizer
	if f, ok := sink.(metadata.BatchFinalizer); ok {
		finalizer = f
	}
	var inFlight scheduler.Gauge
	if param.Metrics != nil {
		metricsSink := metrics.NewSink(sink, param.Metrics)
		sink = metricsSink
		finalizer = metricsSink
		inFlight = param.Metrics.BatchInFlight
	}

	e := &Engine{
		cfg:          cfg,
		metrics:      param.Metrics,
		metadataSink: sink,
	}

	rateLimiter, err := limiter.New(cfg.RateLimitStrategy(), limiter.Param{
		RequestsPerSecond: cfg.RequestsPerSecond(),
		BurstLimit:        cfg.BurstLimit(),
		BackoffFactor:     cfg.BackoffFactor(),
	})
	if err != nil {
		return nil, &EngineError{Message: "rate limiter", Cause: ErrCauseSetupFailure, Err: err}
	}
	e.rateLimiter = rateLimiter

	store := param.Store
	if store == nil {
		store, err = openStore(ctx, cfg)
		if err != nil {
			return nil, &EngineError{Message: "cache store", Cause: ErrCauseSetupFailure, Err: err}
		}
	}
	manager, err := cache.NewManager(cache.ManagerParam{
		Strategy:       cache.Strategy(cfg.CacheStrategy()),
		MemoryCapacity: cfg.CacheCapacity(),
		Store:          store,
		DefaultTTL:     cfg.DefaultTTL(),
		MetadataSink:   sink,
		Clock:          param.Clock,
	})
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, &EngineError{Message: "cache manager", Cause: ErrCauseSetupFailure, Err: err}
	}
	e.cache = manager

	httpClient := param.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	retryParam := retry.NewRetryParam(
		100*time.Millisecond,
		time.Now().UnixNano(),
		cfg.MaxRetries(),
		timeutil.NewBackoffParam(500*time.Millisecond, cfg.BackoffFactor(), 10*time.Second),
	)

	// nil interfaces leave a strategy unavailable
	var scraper fetcher.RemoteScraper
	if cfg.RemoteAPIURL() != "" {
		e.remote = fetcher.NewHTTPRemoteScraper(cfg.RemoteAPIURL(), cfg.RemoteAPIKey(), cfg.UserAgent(), httpClient, retryParam)
		scraper = e.remote
	}
	var renderer fetcher.BrowserRenderer
	if cfg.BrowserEnabled() {
		if param.Renderer != nil {
			renderer = param.Renderer
		} else {
			e.renderer = fetcher.NewChromeRenderer(cfg.BrowserExecPath(), cfg.UserAgent())
			renderer = e.renderer
		}
	}
	e.chain = fetcher.NewChain(
		sink,
		rateLimiter,
		fetcher.NewRemoteStrategy(sink, scraper),
		fetcher.NewBrowserStrategy(sink, renderer, cfg.NetworkIdleTimeout()),
		fetcher.NewDirectStrategy(sink, httpClient, cfg.UserAgent(), retryParam),
	)

	var summarizer enhancer.Summarizer
	var truncator enhancer.Truncator
	if cfg.Summarize() {
		summarizer = param.Summarizer
		if summarizer == nil {
			summarizer = enhancer.NewOpenAISummarizer(cfg.SummaryAPIKey(), cfg.SummaryAPIURL(), cfg.SummaryModel())
		}
		truncator = enhancer.NewTruncator(cfg.SummaryModel())
	}
	e.enhancer = enhancer.NewEnhancer(sink, enhancer.Param{
		ExtractTables:     cfg.ExtractTables(),
		ExtractCodeBlocks: cfg.ExtractCodeBlocks(),
		DetectLanguage:    cfg.DetectLanguage(),
		Summarize:         cfg.Summarize(),
		MaxInputTokens:    cfg.SummaryMaxInputTokens(),
		MaxOutputTokens:   cfg.SummaryMaxOutputTokens(),
	}, summarizer, truncator)

	e.scheduler = scheduler.NewBatchScheduler[FetchRequest](scheduler.Param{
		MetadataSink:   sink,
		BatchFinalizer: finalizer,
		InFlight:       inFlight,
	}, e.Fetch)

	e.mapper = sitemap.NewMapper(sink, cfg.UserAgent(), cfg.Timeout())

	return e, nil
}

func openStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	switch cfg.CacheStrategy() {
	case config.CacheDisk, config.CacheHybrid:
	default:
		return nil, nil
	}
	switch cfg.CacheBackend() {
	case config.BackendSQLite:
		store, err := cache.OpenSQLiteStore(ctx, cfg.CachePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		store, err := cache.OpenRedisStore(ctx, cfg.RedisAddress(), cfg.RedisPassword(), cfg.RedisDB())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := cache.OpenBoltStore(cfg.CachePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Fetch returns the result for one request, from cache when a fresh entry
// exists. Only retrieval failures are returned; enhancement and caching
// problems are recorded and skipped.
func (e *Engine) Fetch(ctx context.Context, request FetchRequest) (fetcher.FetchResult, error) {
	if request.URL.Scheme != "http" && request.URL.Scheme != "https" {
		return fetcher.FetchResult{}, &EngineError{
			Message: request.URL.String(),
			Cause:   ErrCauseInvalidURL,
		}
	}

	key, keyErr := cache.DeriveKey(cache.KeyParam{
		URL:             request.URL,
		Formats:         request.Formats,
		OnlyMainContent: request.Options.OnlyMainContent,
		IncludeTags:     request.Options.IncludeTags,
		ExcludeTags:     request.Options.ExcludeTags,
	}, e.cfg.HashAlgo())
	if keyErr == nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			return cached.Payload, nil
		}
	}

	outcome, err := e.chain.Fetch(ctx, fetcher.FetchParam{
		URL:     request.URL,
		Formats: request.Formats,
		Options: request.Options,
		Timeout: e.cfg.Timeout(),
	})
	if e.metrics != nil {
		e.metrics.ObserveLimiterWait(outcome.LimiterWait)
	}
	if err != nil {
		return fetcher.FetchResult{}, err
	}

	result := e.enhancer.Enhance(ctx, outcome.Result)
	if keyErr == nil {
		// recorded by the manager
		_ = e.cache.Put(ctx, key, result, request.TTL)
	}
	return result, nil
}

// ScrapeBatch fetches every request with at most concurrency in flight and
// returns the successful results in dequeue order. A concurrency below one
// uses the configured value.
func (e *Engine) ScrapeBatch(ctx context.Context, requests []FetchRequest, concurrency int) []fetcher.FetchResult {
	results, _ := e.ScrapeBatchReport(ctx, requests, concurrency)
	return results
}

func (e *Engine) ScrapeBatchReport(ctx context.Context, requests []FetchRequest, concurrency int) ([]fetcher.FetchResult, scheduler.BatchReport) {
	if concurrency < 1 {
		concurrency = e.cfg.Concurrency()
	}
	return e.scheduler.ScrapeBatchReport(ctx, requests, concurrency)
}

// MapSite lists the URLs of a site in one call. The remote API is used when
// configured; when it is absent or fails the site is mapped locally.
func (e *Engine) MapSite(ctx context.Context, site url.URL, limit int) ([]string, error) {
	if site.Scheme != "http" && site.Scheme != "https" {
		return nil, &EngineError{Message: site.String(), Cause: ErrCauseInvalidURL}
	}
	if e.remote != nil {
		links, err := e.remote.Map(ctx, site.String(), limit)
		if err == nil {
			return links, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		e.metadataSink.RecordError(
			time.Now(),
			"engine",
			"Engine.MapSite",
			metadata.CauseUpstreamFailure,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, site.String()),
				metadata.NewAttr(metadata.AttrStrategy, fetcher.StrategyRemoteAPI),
			},
		)
	}
	links, err := e.mapper.Map(ctx, site, limit)
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (e *Engine) CacheStats(ctx context.Context) (cache.Stats, error) {
	return e.cache.Stats(ctx)
}

func (e *Engine) ClearCache(ctx context.Context, tier cache.Tier) error {
	return e.cache.Clear(ctx, tier)
}

// PurgeExpiredCache drops expired entries and keeps fresh ones.
func (e *Engine) PurgeExpiredCache(ctx context.Context) (int, error) {
	return e.cache.PurgeExpired(ctx)
}

func (e *Engine) LimiterState() limiter.State {
	return e.rateLimiter.State()
}

// Strategies lists the configured fallback order.
func (e *Engine) Strategies() []string {
	return e.chain.StrategyNames()
}

// Close releases the cache store and the browser. It is safe to call more
// than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var errs []error
		if err := e.cache.Close(); err != nil {
			errs = append(errs, err)
		}
		if e.renderer != nil {
			if err := e.renderer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		e.closeErr = errors.Join(errs...)
	})
	return e.closeErr
}
