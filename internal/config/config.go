package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohmanhakim/fetchkit/pkg/hashutil"
	"github.com/rohmanhakim/fetchkit/pkg/limiter"
	"gopkg.in/yaml.v3"
)

type CacheStrategy string

const (
	CacheNone   CacheStrategy = "none"
	CacheMemory CacheStrategy = "memory"
	CacheDisk   CacheStrategy = "disk"
	CacheHybrid CacheStrategy = "hybrid"
)

type CacheBackend string

const (
	BackendBolt   CacheBackend = "bolt"
	BackendSQLite CacheBackend = "sqlite"
	BackendRedis  CacheBackend = "redis"
)

type Config struct {
	//===============
	// Cache
	//===============
	// Which tiers serve lookups: none, memory, disk or hybrid
	cacheStrategy CacheStrategy
	// Maximum number of entries held by the memory tier
	cacheCapacity int
	// Store behind the persistent tier
	cacheBackend CacheBackend
	// File path of the bolt or sqlite store
	cachePath string
	// Address of the redis server when cacheBackend is redis
	redisAddress  string
	redisPassword string
	redisDB       int
	// TTL used when a request carries none
	defaultTTL time.Duration
	// Algorithm used to derive cache keys and output file names
	hashAlgo hashutil.HashAlgo

	//===============
	// Rate limiting
	//===============
	rateLimitStrategy limiter.Strategy
	requestsPerSecond float64
	burstLimit        int
	// Attempts made by a single HTTP-based strategy before it gives up
	maxRetries    int
	backoffFactor float64

	//===============
	// Fetch
	//===============
	// Number of batch workers fetching concurrently
	concurrency int
	// Overall deadline of a single fetch across every strategy
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Managed scraping API. Empty URL disables the remote strategy
	remoteAPIURL string
	remoteAPIKey string
	// Headless browser strategy
	browserEnabled     bool
	browserExecPath    string
	networkIdleTimeout time.Duration

	//===============
	// Enhancement
	//===============
	extractTables          bool
	extractCodeBlocks      bool
	detectLanguage         bool
	summarize              bool
	summaryModel           string
	summaryAPIURL          string
	summaryAPIKey          string
	summaryMaxInputTokens  int
	summaryMaxOutputTokens int

	//===============
	// Output
	//===============
	// Root directory in which to store exported results
	outputDir string
	// Whether the program will simulate what it would do without
	// actually performing any side-effecting writes
	dryRun bool

	//===============
	// Observability
	//===============
	logLevel    string
	metricsAddr string
}

type configDTO struct {
	CacheStrategy          string  `json:"cacheStrategy,omitempty" yaml:"cacheStrategy,omitempty"`
	CacheCapacity          int     `json:"cacheCapacity,omitempty" yaml:"cacheCapacity,omitempty"`
	CacheBackend           string  `json:"cacheBackend,omitempty" yaml:"cacheBackend,omitempty"`
	CachePath              string  `json:"cachePath,omitempty" yaml:"cachePath,omitempty"`
	RedisAddress           string  `json:"redisAddress,omitempty" yaml:"redisAddress,omitempty"`
	RedisPassword          string  `json:"redisPassword,omitempty" yaml:"redisPassword,omitempty"`
	RedisDB                int     `json:"redisDb,omitempty" yaml:"redisDb,omitempty"`
	DefaultTTL             string  `json:"defaultTtl,omitempty" yaml:"defaultTtl,omitempty"`
	HashAlgo               string  `json:"hashAlgo,omitempty" yaml:"hashAlgo,omitempty"`
	RateLimitStrategy      string  `json:"rateLimitStrategy,omitempty" yaml:"rateLimitStrategy,omitempty"`
	RequestsPerSecond      float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`
	BurstLimit             int     `json:"burstLimit,omitempty" yaml:"burstLimit,omitempty"`
	MaxRetries             int     `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	BackoffFactor          float64 `json:"backoffFactor,omitempty" yaml:"backoffFactor,omitempty"`
	Concurrency            int     `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Timeout                string  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent              string  `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	RemoteAPIURL           string  `json:"remoteApiUrl,omitempty" yaml:"remoteApiUrl,omitempty"`
	RemoteAPIKey           string  `json:"remoteApiKey,omitempty" yaml:"remoteApiKey,omitempty"`
	BrowserEnabled         *bool   `json:"browserEnabled,omitempty" yaml:"browserEnabled,omitempty"`
	BrowserExecPath        string  `json:"browserExecPath,omitempty" yaml:"browserExecPath,omitempty"`
	NetworkIdleTimeout     string  `json:"networkIdleTimeout,omitempty" yaml:"networkIdleTimeout,omitempty"`
	ExtractTables          *bool   `json:"extractTables,omitempty" yaml:"extractTables,omitempty"`
	ExtractCodeBlocks      *bool   `json:"extractCodeBlocks,omitempty" yaml:"extractCodeBlocks,omitempty"`
	DetectLanguage         *bool   `json:"detectLanguage,omitempty" yaml:"detectLanguage,omitempty"`
	Summarize              *bool   `json:"summarize,omitempty" yaml:"summarize,omitempty"`
	SummaryModel           string  `json:"summaryModel,omitempty" yaml:"summaryModel,omitempty"`
	SummaryAPIURL          string  `json:"summaryApiUrl,omitempty" yaml:"summaryApiUrl,omitempty"`
	SummaryAPIKey          string  `json:"summaryApiKey,omitempty" yaml:"summaryApiKey,omitempty"`
	SummaryMaxInputTokens  int     `json:"summaryMaxInputTokens,omitempty" yaml:"summaryMaxInputTokens,omitempty"`
	SummaryMaxOutputTokens int     `json:"summaryMaxOutputTokens,omitempty" yaml:"summaryMaxOutputTokens,omitempty"`
	OutputDir              string  `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	DryRun                 bool    `json:"dryRun,omitempty" yaml:"dryRun,omitempty"`
	LogLevel               string  `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	MetricsAddr            string  `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	// Only override when a non-zero value is provided
	if dto.CacheStrategy != "" {
		cfg.cacheStrategy = CacheStrategy(dto.CacheStrategy)
	}
	if dto.CacheCapacity != 0 {
		cfg.cacheCapacity = dto.CacheCapacity
	}
	if dto.CacheBackend != "" {
		cfg.cacheBackend = CacheBackend(dto.CacheBackend)
	}
	if dto.CachePath != "" {
		cfg.cachePath = dto.CachePath
	}
	if dto.RedisAddress != "" {
		cfg.redisAddress = dto.RedisAddress
	}
	cfg.redisPassword = dto.RedisPassword
	cfg.redisDB = dto.RedisDB
	if dto.HashAlgo != "" {
		cfg.hashAlgo = hashutil.HashAlgo(dto.HashAlgo)
	}
	if dto.RateLimitStrategy != "" {
		cfg.rateLimitStrategy = limiter.Strategy(dto.RateLimitStrategy)
	}
	if dto.RequestsPerSecond != 0 {
		cfg.requestsPerSecond = dto.RequestsPerSecond
	}
	if dto.BurstLimit != 0 {
		cfg.burstLimit = dto.BurstLimit
	}
	if dto.MaxRetries != 0 {
		cfg.maxRetries = dto.MaxRetries
	}
	if dto.BackoffFactor != 0 {
		cfg.backoffFactor = dto.BackoffFactor
	}
	if dto.Concurrency != 0 {
		cfg.concurrency = dto.Concurrency
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	cfg.remoteAPIURL = dto.RemoteAPIURL
	cfg.remoteAPIKey = dto.RemoteAPIKey
	if dto.BrowserEnabled != nil {
		cfg.browserEnabled = *dto.BrowserEnabled
	}
	cfg.browserExecPath = dto.BrowserExecPath
	if dto.ExtractTables != nil {
		cfg.extractTables = *dto.ExtractTables
	}
	if dto.ExtractCodeBlocks != nil {
		cfg.extractCodeBlocks = *dto.ExtractCodeBlocks
	}
	if dto.DetectLanguage != nil {
		cfg.detectLanguage = *dto.DetectLanguage
	}
	if dto.Summarize != nil {
		cfg.summarize = *dto.Summarize
	}
	if dto.SummaryModel != "" {
		cfg.summaryModel = dto.SummaryModel
	}
	cfg.summaryAPIURL = dto.SummaryAPIURL
	cfg.summaryAPIKey = dto.SummaryAPIKey
	if dto.SummaryMaxInputTokens != 0 {
		cfg.summaryMaxInputTokens = dto.SummaryMaxInputTokens
	}
	if dto.SummaryMaxOutputTokens != 0 {
		cfg.summaryMaxOutputTokens = dto.SummaryMaxOutputTokens
	}
	if dto.OutputDir != "" {
		cfg.outputDir = dto.OutputDir
	}
	cfg.dryRun = dto.DryRun
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	cfg.metricsAddr = dto.MetricsAddr

	durations := []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{field: "defaultTtl", raw: dto.DefaultTTL, dst: &cfg.defaultTTL},
		{field: "timeout", raw: dto.Timeout, dst: &cfg.timeout},
		{field: "networkIdleTimeout", raw: dto.NetworkIdleTimeout, dst: &cfg.networkIdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %s", ErrConfigParsingFail, d.field, err.Error())
		}
		*d.dst = parsed
	}

	return cfg.Build()
}

// WithConfigFile loads a JSON or YAML config file. The format is chosen by
// the file extension; anything other than .yaml or .yml is read as JSON.
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		err = json.Unmarshal(configContent, &cfgDTO)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		cacheStrategy:          CacheMemory,
		cacheCapacity:          100,
		cacheBackend:           BackendBolt,
		cachePath:              "fetchkit-cache.db",
		redisAddress:           "localhost:6379",
		defaultTTL:             time.Hour,
		hashAlgo:               hashutil.HashAlgoSHA256,
		rateLimitStrategy:      limiter.StrategyFixed,
		requestsPerSecond:      2,
		burstLimit:             5,
		maxRetries:             3,
		backoffFactor:          2.0,
		concurrency:            5,
		timeout:                30 * time.Second,
		userAgent:              "fetchkit/1.0",
		browserEnabled:         false,
		networkIdleTimeout:     5 * time.Second,
		extractTables:          true,
		extractCodeBlocks:      true,
		detectLanguage:         true,
		summarize:              false,
		summaryModel:           "gpt-4o-mini",
		summaryMaxInputTokens:  4000,
		summaryMaxOutputTokens: 200,
		outputDir:              "output",
		dryRun:                 false,
		logLevel:               "info",
	}
	return &defaultConfig
}

func (c *Config) WithCacheStrategy(strategy CacheStrategy) *Config {
	c.cacheStrategy = strategy
	return c
}

func (c *Config) WithCacheCapacity(capacity int) *Config {
	c.cacheCapacity = capacity
	return c
}

func (c *Config) WithCacheBackend(backend CacheBackend) *Config {
	c.cacheBackend = backend
	return c
}

func (c *Config) WithCachePath(path string) *Config {
	c.cachePath = path
	return c
}

func (c *Config) WithRedis(address string, password string, db int) *Config {
	c.redisAddress = address
	c.redisPassword = password
	c.redisDB = db
	return c
}

func (c *Config) WithDefaultTTL(ttl time.Duration) *Config {
	c.defaultTTL = ttl
	return c
}

func (c *Config) WithHashAlgo(algo hashutil.HashAlgo) *Config {
	c.hashAlgo = algo
	return c
}

func (c *Config) WithRateLimitStrategy(strategy limiter.Strategy) *Config {
	c.rateLimitStrategy = strategy
	return c
}

func (c *Config) WithRequestsPerSecond(rps float64) *Config {
	c.requestsPerSecond = rps
	return c
}

func (c *Config) WithBurstLimit(burst int) *Config {
	c.burstLimit = burst
	return c
}

func (c *Config) WithMaxRetries(retries int) *Config {
	c.maxRetries = retries
	return c
}

func (c *Config) WithBackoffFactor(factor float64) *Config {
	c.backoffFactor = factor
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithRemoteAPI(apiURL string, apiKey string) *Config {
	c.remoteAPIURL = apiURL
	c.remoteAPIKey = apiKey
	return c
}

func (c *Config) WithBrowser(enabled bool, execPath string) *Config {
	c.browserEnabled = enabled
	c.browserExecPath = execPath
	return c
}

func (c *Config) WithNetworkIdleTimeout(timeout time.Duration) *Config {
	c.networkIdleTimeout = timeout
	return c
}

func (c *Config) WithEnhancements(tables bool, codeBlocks bool, language bool) *Config {
	c.extractTables = tables
	c.extractCodeBlocks = codeBlocks
	c.detectLanguage = language
	return c
}

func (c *Config) WithSummary(enabled bool, model string, apiURL string, apiKey string) *Config {
	c.summarize = enabled
	if model != "" {
		c.summaryModel = model
	}
	c.summaryAPIURL = apiURL
	c.summaryAPIKey = apiKey
	return c
}

func (c *Config) WithSummaryTokenBudget(maxInput int, maxOutput int) *Config {
	c.summaryMaxInputTokens = maxInput
	c.summaryMaxOutputTokens = maxOutput
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDryRun(dryRun bool) *Config {
	c.dryRun = dryRun
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithMetricsAddr(addr string) *Config {
	c.metricsAddr = addr
	return c
}

// Build validates the accumulated settings and returns an immutable Config.
func (c *Config) Build() (Config, error) {
	switch c.cacheStrategy {
	case CacheNone, CacheMemory, CacheDisk, CacheHybrid:
	default:
		return Config{}, fmt.Errorf("%w: unknown cacheStrategy %q", ErrInvalidConfig, c.cacheStrategy)
	}
	switch c.cacheBackend {
	case BackendBolt, BackendSQLite, BackendRedis:
	default:
		return Config{}, fmt.Errorf("%w: unknown cacheBackend %q", ErrInvalidConfig, c.cacheBackend)
	}
	if c.cacheCapacity < 1 {
		return Config{}, fmt.Errorf("%w: cacheCapacity must be at least 1", ErrInvalidConfig)
	}
	if c.defaultTTL <= 0 {
		return Config{}, fmt.Errorf("%w: defaultTtl must be positive", ErrInvalidConfig)
	}
	if _, err := hashutil.ParseHashAlgo(string(c.hashAlgo)); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if _, err := limiter.ParseStrategy(string(c.rateLimitStrategy)); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if c.requestsPerSecond <= 0 {
		return Config{}, fmt.Errorf("%w: requestsPerSecond must be positive", ErrInvalidConfig)
	}
	if c.burstLimit < 1 {
		return Config{}, fmt.Errorf("%w: burstLimit must be at least 1", ErrInvalidConfig)
	}
	if c.maxRetries < 1 {
		return Config{}, fmt.Errorf("%w: maxRetries must be at least 1", ErrInvalidConfig)
	}
	if c.backoffFactor < 1 {
		return Config{}, fmt.Errorf("%w: backoffFactor must be at least 1", ErrInvalidConfig)
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.remoteAPIURL != "" {
		if _, err := url.ParseRequestURI(c.remoteAPIURL); err != nil {
			return Config{}, fmt.Errorf("%w: remoteApiUrl: %s", ErrInvalidConfig, err.Error())
		}
	}
	if c.summarize && c.summaryMaxInputTokens < 1 {
		return Config{}, fmt.Errorf("%w: summaryMaxInputTokens must be at least 1", ErrInvalidConfig)
	}

	return *c, nil
}

func (c Config) CacheStrategy() CacheStrategy {
	return c.cacheStrategy
}

func (c Config) CacheCapacity() int {
	return c.cacheCapacity
}

func (c Config) CacheBackend() CacheBackend {
	return c.cacheBackend
}

func (c Config) CachePath() string {
	return c.cachePath
}

func (c Config) RedisAddress() string {
	return c.redisAddress
}

func (c Config) RedisPassword() string {
	return c.redisPassword
}

func (c Config) RedisDB() int {
	return c.redisDB
}

func (c Config) DefaultTTL() time.Duration {
	return c.defaultTTL
}

func (c Config) HashAlgo() hashutil.HashAlgo {
	return c.hashAlgo
}

func (c Config) RateLimitStrategy() limiter.Strategy {
	return c.rateLimitStrategy
}

func (c Config) RequestsPerSecond() float64 {
	return c.requestsPerSecond
}

func (c Config) BurstLimit() int {
	return c.burstLimit
}

func (c Config) MaxRetries() int {
	return c.maxRetries
}

func (c Config) BackoffFactor() float64 {
	return c.backoffFactor
}

func (c Config) Concurrency() int {
	return c.concurrency
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) RemoteAPIURL() string {
	return c.remoteAPIURL
}

func (c Config) RemoteAPIKey() string {
	return c.remoteAPIKey
}

func (c Config) BrowserEnabled() bool {
	return c.browserEnabled
}

func (c Config) BrowserExecPath() string {
	return c.browserExecPath
}

func (c Config) NetworkIdleTimeout() time.Duration {
	return c.networkIdleTimeout
}

func (c Config) ExtractTables() bool {
	return c.extractTables
}

func (c Config) ExtractCodeBlocks() bool {
	return c.extractCodeBlocks
}

func (c Config) DetectLanguage() bool {
	return c.detectLanguage
}

func (c Config) Summarize() bool {
	return c.summarize
}

func (c Config) SummaryModel() string {
	return c.summaryModel
}

func (c Config) SummaryAPIURL() string {
	return c.summaryAPIURL
}

func (c Config) SummaryAPIKey() string {
	return c.summaryAPIKey
}

func (c Config) SummaryMaxInputTokens() int {
	return c.summaryMaxInputTokens
}

func (c Config) SummaryMaxOutputTokens() int {
	return c.summaryMaxOutputTokens
}

func (c Config) OutputDir() string {
	return c.outputDir
}

func (c Config) DryRun() bool {
	return c.dryRun
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) MetricsAddr() string {
	return c.metricsAddr
}
