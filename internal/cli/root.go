package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/config"
	"github.com/spf13/cobra"
)

// defaultSeedURL is used when the crawl is started with no positional start
// URL argument.
const defaultSeedURL = "http://www.example-home.test/"

var (
	cfgFile                 string
	maxDepth                int
	workerCount             int
	corpusDir               string
	cacheDBPath             string
	logPath                 string
	userAgent               string
	directTimeout           time.Duration
	renderedTimeout         time.Duration
	fetchStrategy           string
	allowDomains            []string
	denyDomains             []string
	denyPatterns            []string
	archiveFallbackEnabled  bool
	pdfProcessingEnabled    bool
	flushCacheOnStart       bool
	loadPendingQueueOnStart bool

	// runFn is invoked once the config has been assembled, and defaults to
	// running the coordinator. Tests swap it out to observe the resolved
	// config without actually crawling the network.
	runFn func(cfg config.Config) error
)

// rootCmd represents the crawler entrypoint. It accepts one positional
// argument, the start URL, and an optional second positional page-budget
// integer, mirroring a plain `seed-url [max-pages]` invocation rather than a
// flag-only surface.
var rootCmd = &cobra.Command{
	Use:   "corpusreaper [start-url] [max-pages]",
	Short: "A domain-scoped corpus crawler.",
	Long: `corpusreaper crawls a seed domain breadth-first, respecting an
allow-list/deny-list rather than arbitrary robots.txt rules, and writes
HTML/PDF artifact pairs alongside extracted plain text into a local corpus
directory.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := defaultSeedURL
		if len(args) > 0 && args[0] != "" {
			seed = args[0]
		}
		seed = ensureScheme(seed)

		var pageBudget int
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("max-pages argument %q is not an integer: %w", args[1], err)
			}
			pageBudget = n
		}

		cfg, err := InitConfigWithError(seed, pageBudget)
		if err != nil {
			return err
		}

		if runFn != nil {
			return runFn(cfg)
		}
		return nil
	},
}

// ensureScheme prefixes http:// onto a URL that lacks a scheme, per the
// seed-CLI contract.
func ensureScheme(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "http://" + raw
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetRunFunc overrides what happens once a Config has been resolved. Tests
// use this to capture the resolved Config without starting a crawl; the real
// entrypoint wires it to the coordinator.
func SetRunFunc(fn func(cfg config.Config) error) {
	runFn = fn
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth from seed URL")
	rootCmd.PersistentFlags().IntVar(&workerCount, "workers", 0, "number of concurrent fetch workers")
	rootCmd.PersistentFlags().StringVar(&corpusDir, "corpus-dir", "", "root output directory for artifact pairs")
	rootCmd.PersistentFlags().StringVar(&cacheDBPath, "cache-db", "", "path to the metadata cache database")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", "", "path to the crawl log file")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&directTimeout, "direct-timeout", 0, "timeout for the direct fetch strategy")
	rootCmd.PersistentFlags().DurationVar(&renderedTimeout, "rendered-timeout", 0, "timeout for the rendered fetch strategy")
	rootCmd.PersistentFlags().StringVar(&fetchStrategy, "fetch-strategy", "", "direct or rendered")
	rootCmd.PersistentFlags().StringArrayVar(&allowDomains, "allow-domain", []string{}, "additional allow-listed domain (defaults to seed host)")
	rootCmd.PersistentFlags().StringArrayVar(&denyDomains, "deny-domain", []string{}, "deny-listed domain, takes priority over allow-list")
	rootCmd.PersistentFlags().StringArrayVar(&denyPatterns, "deny-pattern", []string{}, "deny-listed path regex pattern")
	rootCmd.PersistentFlags().BoolVar(&archiveFallbackEnabled, "archive-fallback", true, "fall back to the wayback availability API on broken links")
	rootCmd.PersistentFlags().BoolVar(&pdfProcessingEnabled, "pdf", true, "process application/pdf responses")
	rootCmd.PersistentFlags().BoolVar(&flushCacheOnStart, "flush-cache", false, "discard the persisted metadata cache before crawling")
	rootCmd.PersistentFlags().BoolVar(&loadPendingQueueOnStart, "load-queue", true, "resume any persisted frontier entries before enqueueing the seed")
}

// InitConfig reads in config file and flag overrides, exiting the process on
// error. seed is mandatory and must already carry a scheme.
func InitConfig(seed string, pageBudget int) config.Config {
	cfg, err := InitConfigWithError(seed, pageBudget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError reads in config file and flag overrides, returning any
// errors rather than exiting, so tests can exercise error cases.
func InitConfigWithError(seed string, pageBudget int) (config.Config, error) {
	if seed == "" {
		return config.Config{}, fmt.Errorf("%w: seed URL cannot be empty", config.ErrInvalidConfig)
	}

	if cfgFile != "" {
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	builder := config.WithDefault(seed)

	if pageBudget > 0 {
		builder = builder.WithMaxPages(pageBudget)
	}
	if maxDepth > 0 {
		builder = builder.WithMaxDepth(maxDepth)
	}
	if workerCount > 0 {
		builder = builder.WithWorkerCount(workerCount)
	}
	if corpusDir != "" {
		builder = builder.WithCorpusDir(corpusDir)
	}
	if cacheDBPath != "" {
		builder = builder.WithCacheDBPath(cacheDBPath)
	}
	if logPath != "" {
		builder = builder.WithLogPath(logPath)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if directTimeout > 0 {
		builder = builder.WithDirectTimeout(directTimeout)
	}
	if renderedTimeout > 0 {
		builder = builder.WithRenderedTimeout(renderedTimeout)
	}
	if fetchStrategy != "" {
		builder = builder.WithFetchStrategy(config.FetchStrategy(fetchStrategy))
	}
	if len(allowDomains) > 0 {
		builder = builder.WithAllowDomains(allowDomains)
	}
	if len(denyDomains) > 0 {
		builder = builder.WithDenyDomains(denyDomains)
	}
	if len(denyPatterns) > 0 {
		builder = builder.WithDenyPatterns(denyPatterns)
	}
	builder = builder.WithArchiveFallbackEnabled(archiveFallbackEnabled)
	builder = builder.WithPDFProcessingEnabled(pdfProcessingEnabled)
	builder = builder.WithFlushCacheOnStart(flushCacheOnStart)
	builder = builder.WithLoadPendingQueueOnStart(loadPendingQueueOnStart)

	cfg, err := builder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// ResetFlags restores every package-level flag variable to its zero value.
// Tests call this between cases to avoid cross-test flag leakage.
func ResetFlags() {
	cfgFile = ""
	maxDepth = 0
	workerCount = 0
	corpusDir = ""
	cacheDBPath = ""
	logPath = ""
	userAgent = ""
	directTimeout = 0
	renderedTimeout = 0
	fetchStrategy = ""
	allowDomains = []string{}
	denyDomains = []string{}
	denyPatterns = []string{}
	archiveFallbackEnabled = true
	pdfProcessingEnabled = true
	flushCacheOnStart = false
	loadPendingQueueOnStart = true
	runFn = nil
}

// Test helper functions to set flag values from tests.
func SetConfigFileForTest(path string)       { cfgFile = path }
func SetMaxDepthForTest(d int)               { maxDepth = d }
func SetWorkerCountForTest(n int)            { workerCount = n }
func SetCorpusDirForTest(dir string)         { corpusDir = dir }
func SetCacheDBPathForTest(path string)      { cacheDBPath = path }
func SetLogPathForTest(path string)          { logPath = path }
func SetUserAgentForTest(ua string)          { userAgent = ua }
func SetDirectTimeoutForTest(d time.Duration)   { directTimeout = d }
func SetRenderedTimeoutForTest(d time.Duration) { renderedTimeout = d }
func SetFetchStrategyForTest(s string)       { fetchStrategy = s }
func SetAllowDomainsForTest(d []string)      { allowDomains = d }
func SetDenyDomainsForTest(d []string)       { denyDomains = d }
func SetDenyPatternsForTest(p []string)      { denyPatterns = p }
func SetArchiveFallbackEnabledForTest(b bool) { archiveFallbackEnabled = b }
func SetPDFProcessingEnabledForTest(b bool)   { pdfProcessingEnabled = b }
func SetFlushCacheOnStartForTest(b bool)      { flushCacheOnStart = b }
func SetLoadPendingQueueOnStartForTest(b bool) { loadPendingQueueOnStart = b }
