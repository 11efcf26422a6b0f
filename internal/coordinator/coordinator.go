// Package coordinator implements spec.md §4.J's Crawl Coordinator: the
// startup sequence that opens the metadata cache, optionally resumes a
// persisted frontier, seeds the worker pool and wires every pipeline stage
// together, then drives the pool to completion and reports final stats.
package coordinator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/archive"
	"github.com/kestrel-labs/corpusreaper/internal/cachestore"
	"github.com/kestrel-labs/corpusreaper/internal/config"
	"github.com/kestrel-labs/corpusreaper/internal/dedupring"
	"github.com/kestrel-labs/corpusreaper/internal/dispatch"
	"github.com/kestrel-labs/corpusreaper/internal/extractor"
	"github.com/kestrel-labs/corpusreaper/internal/fetcher"
	"github.com/kestrel-labs/corpusreaper/internal/frontier"
	"github.com/kestrel-labs/corpusreaper/internal/htmlpipeline"
	"github.com/kestrel-labs/corpusreaper/internal/mdconvert"
	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/internal/normalize"
	"github.com/kestrel-labs/corpusreaper/internal/pdfextract"
	"github.com/kestrel-labs/corpusreaper/internal/pdfpipeline"
	"github.com/kestrel-labs/corpusreaper/internal/sanitizer"
	"github.com/kestrel-labs/corpusreaper/internal/storage"
	"github.com/kestrel-labs/corpusreaper/internal/urlnorm"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/fileutil"
	"github.com/kestrel-labs/corpusreaper/pkg/retry"
	"github.com/kestrel-labs/corpusreaper/pkg/timeutil"
)

// Result summarises a finished crawl.
type Result struct {
	PagesFetched int
	Errors       int
}

// fetcherClient is the subset of DirectFetcher/RenderedFetcher the
// coordinator depends on.
type fetcherClient interface {
	Fetch(ctx context.Context, crawlDepth int, fetchParam fetcher.FetchParam, retryParam retry.RetryParam) (fetcher.FetchResult, failure.ClassifiedError)
}

// hostDelaySetter is implemented by both fetch strategies; it configures
// pkg/limiter's per-host courtesy delay (spec.md §5's politeness concern).
type hostDelaySetter interface {
	SetHostDelay(d time.Duration)
}

// noneVisited satisfies urlnorm.VisitedChecker without tracking anything;
// the pool's own visited set is the single source of truth for admission,
// so the filter's visited check is intentionally inert here.
type noneVisited struct{}

func (noneVisited) Contains(string) bool { return false }

// seedHost extracts the host[:port] authority from the seed URL, used as
// the implicit allow-list entry when the operator names none. The port is
// kept (not just Hostname()) so the allow-list regex still matches
// test/dev seeds served off a non-default port.
func seedHost(seed string) (string, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}

// Run executes spec.md §4.J's startup sequence against cfg and drives the
// crawl to completion (page-budget exhaustion, frontier drain, or ctx
// cancellation), whichever comes first.
func Run(ctx context.Context, cfg config.Config) (Result, error) {
	if classified := fileutil.EnsureDir(cfg.CorpusDir()); classified != nil {
		return Result{}, fmt.Errorf("corpus dir: %w", classified)
	}

	cacheStore, err := cachestore.Open(cfg.CacheDBPath())
	if err != nil {
		return Result{}, fmt.Errorf("opening cache db: %w", err)
	}
	defer cacheStore.Close()

	if cfg.FlushCacheOnStart() {
		if err := cacheStore.ClearCache(false); err != nil {
			return Result{}, fmt.Errorf("flushing cache: %w", err)
		}
	}

	metadataSink, finalizer := newMetadataSink(cfg.LogPath())
	if closer, ok := metadataSink.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	allowDomains := cfg.AllowDomains()
	if len(allowDomains) == 0 {
		if seedHost, hostErr := seedHost(cfg.SeedURL()); hostErr == nil {
			allowDomains = []string{seedHost}
		}
	}
	urlFilter, err := urlnorm.NewFilter(allowDomains, cfg.DenyDomains(), cfg.DenyPatterns(), urlnorm.DefaultCommentHostSuffixes())
	if err != nil {
		return Result{}, fmt.Errorf("building url filter: %w", err)
	}

	var fetchClient fetcherClient
	var fetchTimeout time.Duration
	switch cfg.FetchStrategy() {
	case config.FetchStrategyRendered:
		fetchClient = fetcher.NewRenderedFetcher(metadataSink)
		fetchTimeout = cfg.RenderedTimeout()
	default:
		fetchClient = fetcher.NewDirectFetcher(metadataSink)
		fetchTimeout = cfg.DirectTimeout()
	}
	if courteous, ok := fetchClient.(hostDelaySetter); ok {
		courteous.SetHostDelay(cfg.HostCourtesyDelay())
	}

	var archiveFallback *archive.Fallback
	if cfg.ArchiveFallbackEnabled() {
		archiveFallback = archive.New(cfg.ArchiveBaseURL(), cfg.UserAgent(), cfg.DirectTimeout())
	}

	dedupRing := dedupring.New(cfg.DedupRingCapacity(), cfg.DedupRingFalsePosRate())
	localSink := storage.NewLocalSink(metadataSink)
	domExtractor := extractor.NewDomExtractor(metadataSink, extractor.NewExtractParam("generic", 1.0))
	htmlSanitizer := sanitizer.NewHTMLSanitizer(metadataSink)
	mdRule := mdconvert.NewRule(metadataSink)
	flattener := normalize.NewTextFlattener(metadataSink)

	htmlPipe := htmlpipeline.New(
		metadataSink,
		&domExtractor,
		htmlSanitizer,
		mdRule,
		flattener,
		dedupRing,
		&localSink,
		cacheStore,
		urlFilter,
		cfg.MaxDepth(),
	)

	var pdfPipe *pdfpipeline.Pipeline
	if cfg.PDFProcessingEnabled() {
		pdfExtractor := pdfextract.NewExtractor(metadataSink)
		pdfPipe = pdfpipeline.New(metadataSink, pdfExtractor, &localSink, cacheStore)
	}

	dispatcher := dispatch.New(
		metadataSink,
		htmlPipe,
		pdfPipe,
		archiveFallback,
		cfg.CorpusDir(),
		cfg.PDFProcessingEnabled(),
		cfg.ArchiveFallbackEnabled(),
	)

	retryParam := retry.NewRetryParam(
		cfg.RateLimitRetryDelay(),
		50*time.Millisecond,
		time.Now().UnixNano(),
		cfg.TransientRetries()+1,
		timeutil.NewBackoffParam(cfg.BackoffInitialDelay(), cfg.BackoffMultiplier(), cfg.BackoffMaxDelay()),
	)

	var errorCount int64
	crawlFn := newCrawlFunc(metadataSink, urlFilter, cacheStore, dispatcher, fetchClient, cfg.UserAgent(), fetchTimeout, retryParam, &errorCount)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	pool := frontier.NewPool(
		cfg.WorkerCount(),
		cfg.WorkerCount()*4,
		cfg.MaxPages(),
		cfg.ProgressReportEveryNPages(),
		cacheStore,
		nil,
	)

	// Workers must already be draining the queue before any entry is
	// enqueued below: queueCapacity is finite, and a burst of resumed
	// frontier rows could otherwise block Enqueue forever with nobody
	// reading yet.
	startedAt := time.Now()
	pool.BeginSeeding()
	runDone := make(chan struct{})
	go func() {
		pool.Run(runCtx, stop, crawlFn)
		close(runDone)
	}()

	if cfg.LoadPendingQueueOnStart() {
		pending, err := cacheStore.DrainFrontier()
		if err == nil && len(pending) > 0 {
			for _, e := range pending {
				pool.Enqueue(runCtx, frontier.Entry{RawURL: e.RawURL, DepthActual: e.DepthActual, DepthEffective: e.DepthEffective})
			}
			_ = cacheStore.ClearFrontier()
		}
	}

	seed := cfg.SeedURL()
	pool.Enqueue(runCtx, frontier.Entry{RawURL: seed, DepthActual: 0, DepthEffective: 0})
	pool.EndSeeding()

	<-runDone

	if finalizer != nil {
		finalizer.RecordFinalCrawlStats(pool.PageCount(), int(atomic.LoadInt64(&errorCount)), 0, time.Since(startedAt))
	}

	return Result{PagesFetched: pool.PageCount(), Errors: int(atomic.LoadInt64(&errorCount))}, nil
}

func newMetadataSink(logPath string) (metadata.MetadataSink, metadata.CrawlFinalizer) {
	recorder, err := metadata.NewRecorder(logPath)
	if err != nil {
		sink := metadata.NoopSink{}
		return sink, sink
	}
	return recorder, recorder
}

// newCrawlFunc builds the per-entry frontier.CrawlFunc closure tying the
// fetch boundary, cache lookup and dispatcher together, per spec.md §4.J.
func newCrawlFunc(
	metadataSink metadata.MetadataSink,
	urlFilter *urlnorm.Filter,
	cacheStore *cachestore.Store,
	dispatcher *dispatch.Dispatcher,
	fetchClient fetcherClient,
	userAgent string,
	timeout time.Duration,
	retryParam retry.RetryParam,
	errorCount *int64,
) frontier.CrawlFunc {
	return func(ctx context.Context, entry frontier.Entry) ([]frontier.Entry, error) {
		cu := urlFilter.Canonicalise(entry.RawURL)

		fetchResult, textSiblingMissing, ok := lookupCached(cacheStore, cu)
		if !ok {
			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			result, classified := fetchClient.Fetch(fetchCtx, entry.DepthActual, fetcher.NewFetchParam(entry.RawURL, userAgent), retryParam)
			cancel()
			if classified != nil {
				// The fetcher already logged this via its own metadata
				// sink; build a synthetic broken-link result so the
				// dispatcher can still decide whether the archive
				// fallback applies.
				fetchResult = fetcher.NewBrokenFetchResult(entry.RawURL, cu, time.Now())
			} else {
				fetchResult = result
			}
		}

		dispatchResult, classified := dispatcher.Dispatch(ctx, fetchResult, textSiblingMissing, entry.DepthActual, entry.DepthEffective)
		if classified != nil {
			atomic.AddInt64(errorCount, 1)
			metadataSink.RecordError(time.Now(), "coordinator", "crawlFn", metadata.CauseUnknown, classified.Error(), []metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, entry.RawURL),
			})
			return nil, classified
		}

		children := make([]frontier.Entry, 0, len(dispatchResult.ChildLinks))
		for _, link := range dispatchResult.ChildLinks {
			if !urlFilter.ShouldVisit(link.RawURL, noneVisited{}) {
				continue
			}
			children = append(children, frontier.Entry{
				RawURL:         link.RawURL,
				DepthActual:    link.DepthActual,
				DepthEffective: link.DepthEffective,
			})
			_ = cacheStore.Enqueue(cachestore.FrontierEntry{
				RawURL:         link.RawURL,
				DepthActual:    link.DepthActual,
				DepthEffective: link.DepthEffective,
			})
		}

		return children, nil
	}
}

// lookupCached consults the cache store for cu. On a hit it reads the raw
// artifact back off disk and reports whether the .txt sibling needs
// regenerating; a read failure or miss is treated as "not cached" so the
// caller falls through to a real fetch.
func lookupCached(cacheStore *cachestore.Store, cu string) (fetcher.FetchResult, bool, bool) {
	entry, found, err := cacheStore.Lookup(cu)
	if err != nil || !found {
		return fetcher.FetchResult{}, false, false
	}

	body, err := os.ReadFile(entry.URLFilePath)
	if err != nil {
		return fetcher.FetchResult{}, false, false
	}

	textSiblingMissing := true
	if info, statErr := os.Stat(entry.TextFilePath); statErr == nil && info.Size() == entry.TextFileSize {
		textSiblingMissing = false
	}

	return fetcher.NewCachedFetchResult(cu, body, entry.ContentType, entry.DownloadTime), textSiblingMissing, true
}
