package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/config"
	"github.com/rohmanhakim/fetchkit/pkg/hashutil"
	"github.com/rohmanhakim/fetchkit/pkg/limiter"
	"github.com/spf13/cobra"
)

// flagValues holds every persistent flag. NewRootCommand resets it, so each
// command tree starts from the defaults.
type flagValues struct {
	cfgFile string

	cacheStrategy string
	cacheCapacity int
	cacheBackend  string
	cachePath     string
	redisAddress  string
	redisPassword string
	redisDB       int
	defaultTTL    time.Duration
	hashAlgo      string

	rateLimitStrategy string
	requestsPerSecond float64
	burstLimit        int
	maxRetries        int
	backoffFactor     float64

	concurrency        int
	timeout            time.Duration
	userAgent          string
	remoteAPIURL       string
	remoteAPIKey       string
	browser            bool
	browserExecPath    string
	networkIdleTimeout time.Duration

	extractTables     bool
	extractCodeBlocks bool
	detectLanguage    bool
	summarize         bool
	summaryModel      string
	summaryAPIURL     string
	summaryAPIKey     string

	outputDir   string
	dryRun      bool
	logLevel    string
	metricsAddr string
}

var flags flagValues

// NewRootCommand builds the fetchkit command tree.
func NewRootCommand() *cobra.Command {
	flags = flagValues{}
	defaults := config.WithDefault()

	rootCmd := &cobra.Command{
		Use:   "fetchkit",
		Short: "Cached, rate-limited web content retrieval.",
		Long: `fetchkit retrieves web pages through an ordered chain of strategies
(a managed scraping API, a headless browser, then plain HTTP), enhances the
content with tables, code blocks, language and an optional summary, and caches
the results in memory and in a persistent store.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.cfgFile, "config-file", "", "config file path, JSON or YAML (e.g., /home/myuser/fetchkit.yaml)")

	pf.StringVar(&flags.cacheStrategy, "cache-strategy", string(defaults.CacheStrategy()), "cache tiers: none, memory, disk or hybrid")
	pf.IntVar(&flags.cacheCapacity, "cache-capacity", defaults.CacheCapacity(), "maximum entries of the memory tier")
	pf.StringVar(&flags.cacheBackend, "cache-backend", string(defaults.CacheBackend()), "persistent store: bolt, sqlite or redis")
	pf.StringVar(&flags.cachePath, "cache-path", defaults.CachePath(), "file of the bolt or sqlite store")
	pf.StringVar(&flags.redisAddress, "redis-address", defaults.RedisAddress(), "redis server address")
	pf.StringVar(&flags.redisPassword, "redis-password", "", "redis password")
	pf.IntVar(&flags.redisDB, "redis-db", 0, "redis database number")
	pf.DurationVar(&flags.defaultTTL, "default-ttl", defaults.DefaultTTL(), "lifetime of cached results")
	pf.StringVar(&flags.hashAlgo, "hash-algo", string(defaults.HashAlgo()), "hash for cache keys and file names: sha256 or blake3")

	pf.StringVar(&flags.rateLimitStrategy, "rate-limit-strategy", string(defaults.RateLimitStrategy()), "fixed, exponential, adaptive or token_bucket")
	pf.Float64Var(&flags.requestsPerSecond, "requests-per-second", defaults.RequestsPerSecond(), "base request rate")
	pf.IntVar(&flags.burstLimit, "burst-limit", defaults.BurstLimit(), "token bucket capacity")
	pf.IntVar(&flags.maxRetries, "max-retries", defaults.MaxRetries(), "attempts per HTTP-based strategy")
	pf.Float64Var(&flags.backoffFactor, "backoff-factor", defaults.BackoffFactor(), "multiplier of exponential backoff")

	pf.IntVar(&flags.concurrency, "concurrency", defaults.Concurrency(), "number of concurrent batch workers")
	pf.DurationVar(&flags.timeout, "timeout", defaults.Timeout(), "deadline of one fetch across every strategy")
	pf.StringVar(&flags.userAgent, "user-agent", defaults.UserAgent(), "user agent string for HTTP requests")
	pf.StringVar(&flags.remoteAPIURL, "remote-api-url", "", "base URL of the managed scraping API")
	pf.StringVar(&flags.remoteAPIKey, "remote-api-key", "", "API key of the managed scraping API")
	pf.BoolVar(&flags.browser, "browser", defaults.BrowserEnabled(), "enable the headless browser strategy")
	pf.StringVar(&flags.browserExecPath, "browser-exec-path", "", "chrome executable, empty to auto-detect")
	pf.DurationVar(&flags.networkIdleTimeout, "network-idle-timeout", defaults.NetworkIdleTimeout(), "how long the browser waits for network idle")

	pf.BoolVar(&flags.extractTables, "extract-tables", defaults.ExtractTables(), "add tables to result metadata")
	pf.BoolVar(&flags.extractCodeBlocks, "extract-code-blocks", defaults.ExtractCodeBlocks(), "add code blocks to result metadata")
	pf.BoolVar(&flags.detectLanguage, "detect-language", defaults.DetectLanguage(), "add the detected language to result metadata")
	pf.BoolVar(&flags.summarize, "summarize", defaults.Summarize(), "add an LLM summary to result metadata")
	pf.StringVar(&flags.summaryModel, "summary-model", defaults.SummaryModel(), "model used for summaries")
	pf.StringVar(&flags.summaryAPIURL, "summary-api-url", "", "OpenAI-compatible API base URL")
	pf.StringVar(&flags.summaryAPIKey, "summary-api-key", "", "API key of the summary model")

	pf.StringVar(&flags.outputDir, "output-dir", defaults.OutputDir(), "directory receiving fetched results")
	pf.BoolVar(&flags.dryRun, "dry-run", defaults.DryRun(), "fetch without writing output")
	pf.StringVar(&flags.logLevel, "log-level", defaults.LogLevel(), "debug, info, warn or error")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(
		newFetchCommand(),
		newBatchCommand(),
		newMapCommand(),
		newCacheCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command tree. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// InitConfigWithError resolves the configuration of cmd. A config file is
// the base when given; flags set on the command line override it.
func InitConfigWithError(cmd *cobra.Command) (config.Config, error) {
	builder := config.WithDefault()
	if flags.cfgFile != "" {
		fileCfg, err := config.WithConfigFile(flags.cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		builder = &fileCfg
	}

	changed := func(names ...string) bool {
		for _, name := range names {
			if cmd.Flags().Changed(name) {
				return true
			}
		}
		return false
	}

	if changed("cache-strategy") {
		builder = builder.WithCacheStrategy(config.CacheStrategy(flags.cacheStrategy))
	}
	if changed("cache-capacity") {
		builder = builder.WithCacheCapacity(flags.cacheCapacity)
	}
	if changed("cache-backend") {
		builder = builder.WithCacheBackend(config.CacheBackend(flags.cacheBackend))
	}
	if changed("cache-path") {
		builder = builder.WithCachePath(flags.cachePath)
	}
	if changed("redis-address", "redis-password", "redis-db") {
		address, password, db := builder.RedisAddress(), builder.RedisPassword(), builder.RedisDB()
		if changed("redis-address") {
			address = flags.redisAddress
		}
		if changed("redis-password") {
			password = flags.redisPassword
		}
		if changed("redis-db") {
			db = flags.redisDB
		}
		builder = builder.WithRedis(address, password, db)
	}
	if changed("default-ttl") {
		builder = builder.WithDefaultTTL(flags.defaultTTL)
	}
	if changed("hash-algo") {
		builder = builder.WithHashAlgo(hashutil.HashAlgo(flags.hashAlgo))
	}

	if changed("rate-limit-strategy") {
		builder = builder.WithRateLimitStrategy(limiter.Strategy(flags.rateLimitStrategy))
	}
	if changed("requests-per-second") {
		builder = builder.WithRequestsPerSecond(flags.requestsPerSecond)
	}
	if changed("burst-limit") {
		builder = builder.WithBurstLimit(flags.burstLimit)
	}
	if changed("max-retries") {
		builder = builder.WithMaxRetries(flags.maxRetries)
	}
	if changed("backoff-factor") {
		builder = builder.WithBackoffFactor(flags.backoffFactor)
	}

	if changed("concurrency") {
		builder = builder.WithConcurrency(flags.concurrency)
	}
	if changed("timeout") {
		builder = builder.WithTimeout(flags.timeout)
	}
	if changed("user-agent") {
		builder = builder.WithUserAgent(flags.userAgent)
	}
	if changed("remote-api-url", "remote-api-key") {
		apiURL, apiKey := builder.RemoteAPIURL(), builder.RemoteAPIKey()
		if changed("remote-api-url") {
			apiURL = flags.remoteAPIURL
		}
		if changed("remote-api-key") {
			apiKey = flags.remoteAPIKey
		}
		builder = builder.WithRemoteAPI(apiURL, apiKey)
	}
	if changed("browser", "browser-exec-path") {
		enabled, execPath := builder.BrowserEnabled(), builder.BrowserExecPath()
		if changed("browser") {
			enabled = flags.browser
		}
		if changed("browser-exec-path") {
			execPath = flags.browserExecPath
		}
		builder = builder.WithBrowser(enabled, execPath)
	}
	if changed("network-idle-timeout") {
		builder = builder.WithNetworkIdleTimeout(flags.networkIdleTimeout)
	}

	if changed("extract-tables", "extract-code-blocks", "detect-language") {
		tables, codeBlocks, language := builder.ExtractTables(), builder.ExtractCodeBlocks(), builder.DetectLanguage()
		if changed("extract-tables") {
			tables = flags.extractTables
		}
		if changed("extract-code-blocks") {
			codeBlocks = flags.extractCodeBlocks
		}
		if changed("detect-language") {
			language = flags.detectLanguage
		}
		builder = builder.WithEnhancements(tables, codeBlocks, language)
	}
	if changed("summarize", "summary-model", "summary-api-url", "summary-api-key") {
		enabled, model := builder.Summarize(), builder.SummaryModel()
		apiURL, apiKey := builder.SummaryAPIURL(), builder.SummaryAPIKey()
		if changed("summarize") {
			enabled = flags.summarize
		}
		if changed("summary-model") {
			model = flags.summaryModel
		}
		if changed("summary-api-url") {
			apiURL = flags.summaryAPIURL
		}
		if changed("summary-api-key") {
			apiKey = flags.summaryAPIKey
		}
		builder = builder.WithSummary(enabled, model, apiURL, apiKey)
	}

	if changed("output-dir") {
		builder = builder.WithOutputDir(flags.outputDir)
	}
	if changed("dry-run") {
		builder = builder.WithDryRun(flags.dryRun)
	}
	if changed("log-level") {
		builder = builder.WithLogLevel(flags.logLevel)
	}
	if changed("metrics-addr") {
		builder = builder.WithMetricsAddr(flags.metricsAddr)
	}

	return builder.Build()
}
