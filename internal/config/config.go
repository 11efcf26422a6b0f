package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FetchStrategy selects which Fetcher implementation serves a crawl.
type FetchStrategy string

const (
	// FetchStrategyDirect issues a plain HTTP GET with the configured
	// user-agent and timeout.
	FetchStrategyDirect FetchStrategy = "direct"
	// FetchStrategyRendered sends a best-effort HEAD probe first, then
	// fetches every content-type with the same direct GET; no headless
	// rendering is performed.
	FetchStrategyRendered FetchStrategy = "rendered"
)

// Config is the crawler's immutable, builder-constructed configuration.
// Defensive-copy getters mirror the teacher's pattern: callers never get a
// handle to the config's own backing slices/maps.
type Config struct {
	//===============
	// Crawl scope
	//===============
	seedURL      string
	maxPages     int
	allowDomains []string
	denyDomains  []string
	denyPatterns []string

	//===============
	// Limits
	//===============
	maxDepth int

	//===============
	// Worker pool
	//===============
	workerCount int

	//===============
	// Fetch
	//===============
	fetchStrategy   FetchStrategy
	directTimeout   time.Duration
	renderedTimeout time.Duration
	userAgent       string

	//===============
	// Retry / rate-limit
	//===============
	rateLimitRetries    int
	rateLimitRetryDelay time.Duration
	transientRetries    int
	backoffInitialDelay time.Duration
	backoffMultiplier   float64
	backoffMaxDelay     time.Duration
	hostCourtesyDelay   time.Duration

	//===============
	// Archive fallback
	//===============
	archiveFallbackEnabled bool
	archiveBaseURL         string

	//===============
	// PDF processing
	//===============
	pdfProcessingEnabled bool

	//===============
	// Dedup ring
	//===============
	dedupRingCapacity     uint
	dedupRingFalsePosRate float64

	//===============
	// Output / persistence
	//===============
	corpusDir   string
	cacheDBPath string
	logPath     string

	//===============
	// Startup toggles
	//===============
	flushCacheOnStart       bool
	loadPendingQueueOnStart bool

	//===============
	// Progress reporting
	//===============
	progressReportEveryNPages int
}

type configDTO struct {
	SeedURL                   string        `json:"seedUrl,omitempty"`
	MaxPages                  int           `json:"maxPages,omitempty"`
	AllowDomains              []string      `json:"allowDomains,omitempty"`
	DenyDomains               []string      `json:"denyDomains,omitempty"`
	DenyPatterns              []string      `json:"denyPatterns,omitempty"`
	MaxDepth                  int           `json:"maxDepth,omitempty"`
	WorkerCount               int           `json:"workerCount,omitempty"`
	FetchStrategy             string        `json:"fetchStrategy,omitempty"`
	DirectTimeout             time.Duration `json:"directTimeout,omitempty"`
	RenderedTimeout           time.Duration `json:"renderedTimeout,omitempty"`
	UserAgent                 string        `json:"userAgent,omitempty"`
	RateLimitRetries          int           `json:"rateLimitRetries,omitempty"`
	RateLimitRetryDelay       time.Duration `json:"rateLimitRetryDelay,omitempty"`
	TransientRetries          int           `json:"transientRetries,omitempty"`
	BackoffInitialDelay       time.Duration `json:"backoffInitialDelay,omitempty"`
	BackoffMultiplier         float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDelay           time.Duration `json:"backoffMaxDelay,omitempty"`
	HostCourtesyDelay         time.Duration `json:"hostCourtesyDelay,omitempty"`
	ArchiveFallbackEnabled    bool          `json:"archiveFallbackEnabled,omitempty"`
	ArchiveBaseURL            string        `json:"archiveBaseUrl,omitempty"`
	PDFProcessingEnabled      bool          `json:"pdfProcessingEnabled,omitempty"`
	DedupRingCapacity         uint          `json:"dedupRingCapacity,omitempty"`
	DedupRingFalsePosRate     float64       `json:"dedupRingFalsePosRate,omitempty"`
	CorpusDir                 string        `json:"corpusDir,omitempty"`
	CacheDBPath               string        `json:"cacheDbPath,omitempty"`
	LogPath                   string        `json:"logPath,omitempty"`
	FlushCacheOnStart         bool          `json:"flushCacheOnStart,omitempty"`
	LoadPendingQueueOnStart   bool          `json:"loadPendingQueueOnStart,omitempty"`
	ProgressReportEveryNPages int           `json:"progressReportEveryNPages,omitempty"`
}

// WithConfigFile loads a JSON config file and layers it over WithDefault,
// mirroring the teacher's configDTO load pattern.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	var dto configDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	seed := dto.SeedURL
	if seed == "" {
		seed = "http://www.example-home.test/"
	}
	builder := WithDefault(seed)
	if len(dto.AllowDomains) > 0 {
		builder = builder.WithAllowDomains(dto.AllowDomains)
	}
	if len(dto.DenyDomains) > 0 {
		builder = builder.WithDenyDomains(dto.DenyDomains)
	}
	if len(dto.DenyPatterns) > 0 {
		builder = builder.WithDenyPatterns(dto.DenyPatterns)
	}
	if dto.MaxDepth != 0 {
		builder = builder.WithMaxDepth(dto.MaxDepth)
	}
	if dto.MaxPages != 0 {
		builder = builder.WithMaxPages(dto.MaxPages)
	}
	if dto.WorkerCount != 0 {
		builder = builder.WithWorkerCount(dto.WorkerCount)
	}
	if dto.FetchStrategy != "" {
		builder = builder.WithFetchStrategy(FetchStrategy(dto.FetchStrategy))
	}
	if dto.DirectTimeout != 0 {
		builder = builder.WithDirectTimeout(dto.DirectTimeout)
	}
	if dto.RenderedTimeout != 0 {
		builder = builder.WithRenderedTimeout(dto.RenderedTimeout)
	}
	if dto.UserAgent != "" {
		builder = builder.WithUserAgent(dto.UserAgent)
	}
	if dto.RateLimitRetries != 0 {
		builder = builder.WithRateLimitRetries(dto.RateLimitRetries)
	}
	if dto.RateLimitRetryDelay != 0 {
		builder = builder.WithRateLimitRetryDelay(dto.RateLimitRetryDelay)
	}
	if dto.TransientRetries != 0 {
		builder = builder.WithTransientRetries(dto.TransientRetries)
	}
	if dto.BackoffInitialDelay != 0 {
		builder = builder.WithBackoffInitialDelay(dto.BackoffInitialDelay)
	}
	if dto.BackoffMultiplier != 0 {
		builder = builder.WithBackoffMultiplier(dto.BackoffMultiplier)
	}
	if dto.BackoffMaxDelay != 0 {
		builder = builder.WithBackoffMaxDelay(dto.BackoffMaxDelay)
	}
	if dto.HostCourtesyDelay != 0 {
		builder = builder.WithHostCourtesyDelay(dto.HostCourtesyDelay)
	}
	builder = builder.WithArchiveFallbackEnabled(dto.ArchiveFallbackEnabled)
	if dto.ArchiveBaseURL != "" {
		builder = builder.WithArchiveBaseURL(dto.ArchiveBaseURL)
	}
	builder = builder.WithPDFProcessingEnabled(dto.PDFProcessingEnabled)
	if dto.DedupRingCapacity != 0 {
		builder = builder.WithDedupRingCapacity(dto.DedupRingCapacity)
	}
	if dto.DedupRingFalsePosRate != 0 {
		builder = builder.WithDedupRingFalsePosRate(dto.DedupRingFalsePosRate)
	}
	if dto.CorpusDir != "" {
		builder = builder.WithCorpusDir(dto.CorpusDir)
	}
	if dto.CacheDBPath != "" {
		builder = builder.WithCacheDBPath(dto.CacheDBPath)
	}
	if dto.LogPath != "" {
		builder = builder.WithLogPath(dto.LogPath)
	}
	builder = builder.WithFlushCacheOnStart(dto.FlushCacheOnStart)
	builder = builder.WithLoadPendingQueueOnStart(dto.LoadPendingQueueOnStart)
	if dto.ProgressReportEveryNPages != 0 {
		builder = builder.WithProgressReportEveryNPages(dto.ProgressReportEveryNPages)
	}
	return builder.Build()
}

// WithDefault creates a new Config builder seeded with the given start URL
// and default values for every other field. seedURL is mandatory.
func WithDefault(seedURL string) *Config {
	return &Config{
		seedURL:                   seedURL,
		maxPages:                  0,
		maxDepth:                  3,
		workerCount:               8,
		fetchStrategy:             FetchStrategyDirect,
		directTimeout:             15 * time.Second,
		renderedTimeout:           60 * time.Second,
		userAgent:                 "AiBot/1.0",
		rateLimitRetries:          3,
		rateLimitRetryDelay:       2 * time.Second,
		transientRetries:          2,
		backoffInitialDelay:       100 * time.Millisecond,
		backoffMultiplier:         2.0,
		backoffMaxDelay:           10 * time.Second,
		hostCourtesyDelay:         0,
		archiveFallbackEnabled:    true,
		archiveBaseURL:            "http://archive.org/wayback/available",
		pdfProcessingEnabled:      true,
		dedupRingCapacity:         1_000_000,
		dedupRingFalsePosRate:     1e-5,
		corpusDir:                 "./corpus",
		cacheDBPath:               "./db_cache/meta_cache.db",
		logPath:                   "./logs/scraper.log",
		flushCacheOnStart:         false,
		loadPendingQueueOnStart:   true,
		progressReportEveryNPages: 25,
	}
}

func (c *Config) WithSeedURL(u string) *Config              { c.seedURL = u; return c }
func (c *Config) WithMaxPages(n int) *Config                { c.maxPages = n; return c }
func (c *Config) WithAllowDomains(d []string) *Config       { c.allowDomains = d; return c }
func (c *Config) WithDenyDomains(d []string) *Config        { c.denyDomains = d; return c }
func (c *Config) WithDenyPatterns(p []string) *Config       { c.denyPatterns = p; return c }
func (c *Config) WithMaxDepth(d int) *Config                { c.maxDepth = d; return c }
func (c *Config) WithWorkerCount(n int) *Config             { c.workerCount = n; return c }
func (c *Config) WithFetchStrategy(s FetchStrategy) *Config { c.fetchStrategy = s; return c }
func (c *Config) WithDirectTimeout(d time.Duration) *Config { c.directTimeout = d; return c }
func (c *Config) WithRenderedTimeout(d time.Duration) *Config {
	c.renderedTimeout = d
	return c
}
func (c *Config) WithUserAgent(ua string) *Config    { c.userAgent = ua; return c }
func (c *Config) WithRateLimitRetries(n int) *Config { c.rateLimitRetries = n; return c }
func (c *Config) WithRateLimitRetryDelay(d time.Duration) *Config {
	c.rateLimitRetryDelay = d
	return c
}
func (c *Config) WithTransientRetries(n int) *Config { c.transientRetries = n; return c }
func (c *Config) WithBackoffInitialDelay(d time.Duration) *Config {
	c.backoffInitialDelay = d
	return c
}
func (c *Config) WithBackoffMultiplier(m float64) *Config { c.backoffMultiplier = m; return c }
func (c *Config) WithHostCourtesyDelay(d time.Duration) *Config {
	c.hostCourtesyDelay = d
	return c
}
func (c *Config) WithBackoffMaxDelay(d time.Duration) *Config {
	c.backoffMaxDelay = d
	return c
}
func (c *Config) WithArchiveFallbackEnabled(b bool) *Config { c.archiveFallbackEnabled = b; return c }
func (c *Config) WithArchiveBaseURL(u string) *Config       { c.archiveBaseURL = u; return c }
func (c *Config) WithPDFProcessingEnabled(b bool) *Config   { c.pdfProcessingEnabled = b; return c }
func (c *Config) WithDedupRingCapacity(n uint) *Config      { c.dedupRingCapacity = n; return c }
func (c *Config) WithDedupRingFalsePosRate(r float64) *Config {
	c.dedupRingFalsePosRate = r
	return c
}
func (c *Config) WithCorpusDir(d string) *Config   { c.corpusDir = d; return c }
func (c *Config) WithCacheDBPath(p string) *Config { c.cacheDBPath = p; return c }
func (c *Config) WithLogPath(p string) *Config     { c.logPath = p; return c }
func (c *Config) WithFlushCacheOnStart(b bool) *Config {
	c.flushCacheOnStart = b
	return c
}
func (c *Config) WithLoadPendingQueueOnStart(b bool) *Config {
	c.loadPendingQueueOnStart = b
	return c
}
func (c *Config) WithProgressReportEveryNPages(n int) *Config {
	c.progressReportEveryNPages = n
	return c
}

// Build validates and returns the immutable Config value.
func (c *Config) Build() (Config, error) {
	if c.seedURL == "" {
		return Config{}, fmt.Errorf("%w: seedURL cannot be empty", ErrInvalidConfig)
	}
	if c.workerCount <= 0 {
		return Config{}, fmt.Errorf("%w: workerCount must be positive", ErrInvalidConfig)
	}
	return *c, nil
}

func (c Config) SeedURL() string                { return c.seedURL }
func (c Config) MaxPages() int                  { return c.maxPages }
func (c Config) AllowDomains() []string         { return append([]string(nil), c.allowDomains...) }
func (c Config) DenyDomains() []string          { return append([]string(nil), c.denyDomains...) }
func (c Config) DenyPatterns() []string         { return append([]string(nil), c.denyPatterns...) }
func (c Config) MaxDepth() int                  { return c.maxDepth }
func (c Config) WorkerCount() int               { return c.workerCount }
func (c Config) FetchStrategy() FetchStrategy   { return c.fetchStrategy }
func (c Config) DirectTimeout() time.Duration   { return c.directTimeout }
func (c Config) RenderedTimeout() time.Duration { return c.renderedTimeout }
func (c Config) UserAgent() string              { return c.userAgent }
func (c Config) RateLimitRetries() int          { return c.rateLimitRetries }
func (c Config) RateLimitRetryDelay() time.Duration {
	return c.rateLimitRetryDelay
}
func (c Config) TransientRetries() int              { return c.transientRetries }
func (c Config) BackoffInitialDelay() time.Duration { return c.backoffInitialDelay }
func (c Config) BackoffMultiplier() float64         { return c.backoffMultiplier }
func (c Config) BackoffMaxDelay() time.Duration     { return c.backoffMaxDelay }
func (c Config) HostCourtesyDelay() time.Duration   { return c.hostCourtesyDelay }
func (c Config) ArchiveFallbackEnabled() bool       { return c.archiveFallbackEnabled }
func (c Config) ArchiveBaseURL() string             { return c.archiveBaseURL }
func (c Config) PDFProcessingEnabled() bool         { return c.pdfProcessingEnabled }
func (c Config) DedupRingCapacity() uint            { return c.dedupRingCapacity }
func (c Config) DedupRingFalsePosRate() float64     { return c.dedupRingFalsePosRate }
func (c Config) CorpusDir() string                  { return c.corpusDir }
func (c Config) CacheDBPath() string                { return c.cacheDBPath }
func (c Config) LogPath() string                    { return c.logPath }
func (c Config) FlushCacheOnStart() bool            { return c.flushCacheOnStart }
func (c Config) LoadPendingQueueOnStart() bool      { return c.loadPendingQueueOnStart }
func (c Config) ProgressReportEveryNPages() int     { return c.progressReportEveryNPages }
