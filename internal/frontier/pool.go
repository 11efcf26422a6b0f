// Package frontier implements spec.md §4.I's Frontier & Worker Pool: a
// bounded FIFO of Frontier Entries drained by N goroutines, a mutex-guarded
// visited set enforcing single-dispatch-per-URL, and a shared page counter
// that raises the stop condition once the configured budget is crossed.
package frontier

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kestrel-labs/corpusreaper/internal/cachestore"
)

// CrawlFunc is the per-entry unit of work a Pool drives; it knows nothing
// about fetching, extraction or storage directly, it is supplied by the
// coordinator. Returning a non-nil error logs and drops the entry; the pool
// itself decides when the page budget has been crossed.
type CrawlFunc func(ctx context.Context, entry Entry) (children []Entry, err error)

// Pool realises spec.md §5's concurrency model: a buffered Go channel
// stands in for the bounded FIFO queue (blocking send is the "preserve
// link completeness" backpressure choice spec.md recommends), and
// context.Context's Done() channel replaces a bare boolean stop flag so
// every worker observes cancellation without polling.
type Pool struct {
	workerCount    int
	maxPages       int
	progressEveryN int

	queue chan Entry

	visitedMu sync.Mutex
	visited   Set[string]

	countMu       sync.Mutex
	pageCount     int
	nextThreshold int

	cacheStore *cachestore.Store
	onProgress func(pagesProcessed int)

	inFlight  int64
	closeOnce sync.Once
}

// NewPool constructs a worker pool. queueCapacity bounds the in-flight
// frontier; onProgress is invoked, while the page-count lock is held, every
// progressEveryN pages. onProgress may be nil.
func NewPool(workerCount, queueCapacity, maxPages, progressEveryN int, cacheStore *cachestore.Store, onProgress func(int)) *Pool {
	if workerCount <= 0 {
		workerCount = 8
	}
	if queueCapacity <= 0 {
		queueCapacity = 1024
	}
	threshold := progressEveryN
	if threshold <= 0 {
		threshold = 1 << 30 // effectively never, if reporting is disabled
	}
	return &Pool{
		workerCount:    workerCount,
		maxPages:       maxPages,
		progressEveryN: progressEveryN,
		queue:          make(chan Entry, queueCapacity),
		visited:        NewSet[string](),
		nextThreshold:  threshold,
		cacheStore:     cacheStore,
		onProgress:     onProgress,
	}
}

// Enqueue admits entry onto the bounded frontier, blocking while the queue
// is at capacity, per spec.md §5's backpressure recommendation. Returns
// false if ctx was cancelled before the entry could be admitted.
func (p *Pool) Enqueue(ctx context.Context, entry Entry) bool {
	atomic.AddInt64(&p.inFlight, 1)
	select {
	case p.queue <- entry:
		return true
	case <-ctx.Done():
		atomic.AddInt64(&p.inFlight, -1)
		return false
	}
}

// BeginSeeding reserves one inFlight unit so the auto-close in dispatch
// cannot fire while a caller is still enqueueing a burst of initial
// entries (the seed URL, a resumed persisted frontier) that hasn't
// finished landing on the channel yet. Call EndSeeding once that burst is
// complete. Workers must already be running (Run started) before calling
// this, since Enqueue blocks once the channel is full.
func (p *Pool) BeginSeeding() {
	atomic.AddInt64(&p.inFlight, 1)
}

// EndSeeding releases the unit BeginSeeding reserved, auto-closing the
// pool if nothing else is in flight.
func (p *Pool) EndSeeding() {
	if atomic.AddInt64(&p.inFlight, -1) == 0 {
		p.Close()
	}
}

// PageCount returns the number of pages successfully dispatched so far.
func (p *Pool) PageCount() int {
	p.countMu.Lock()
	defer p.countMu.Unlock()
	return p.pageCount
}

// Run starts workerCount goroutines draining the queue via crawlFn until
// ctx is cancelled (externally, or internally once the page budget is
// crossed, via stop) or the queue is closed and drained. It blocks until
// every worker has exited.
func (p *Pool) Run(ctx context.Context, stop context.CancelFunc, crawlFn CrawlFunc) {
	var wg sync.WaitGroup
	wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go func() {
			defer wg.Done()
			p.worker(ctx, stop, crawlFn)
		}()
	}
	wg.Wait()
}

// Close signals that no further entries will be enqueued; workers drain
// whatever remains in the channel, then exit once it is empty and closed.
// Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.queue) })
}

func (p *Pool) worker(ctx context.Context, stop context.CancelFunc, crawlFn CrawlFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-p.queue:
			if !ok {
				return
			}
			p.dispatch(ctx, stop, crawlFn, entry)
		}
	}
}

func (p *Pool) dispatch(ctx context.Context, stop context.CancelFunc, crawlFn CrawlFunc, entry Entry) {
	defer func() {
		if atomic.AddInt64(&p.inFlight, -1) == 0 {
			// Every entry sent through the queue (seed, child, or
			// resumed frontier row) held one unit of inFlight until its
			// own dispatch finished; children are enqueued (incrementing
			// inFlight again) before this entry's own unit is released,
			// so a drop to zero here means the frontier is genuinely
			// exhausted.
			p.Close()
		}
	}()

	if !p.tryAdmit(entry.RawURL) {
		return
	}

	if !p.reserveSlot() {
		// Budget already exhausted: this entry is never dispatched, so
		// its persisted frontier row (written when it was enqueued)
		// must NOT be finalized here, per spec.md §8 scenario 6 ("exactly
		// 3 URLs are dispatched; remaining entries stay in url_queue").
		stop()
		return
	}
	defer p.finalize(entry)

	children, err := crawlFn(ctx, entry)
	if err != nil {
		// Every classified error surfaced here is Recoverable by the time
		// it reaches the pool: the coordinator's crawlFn logs it via the
		// metadata sink before returning. The pool just moves on.
		return
	}

	for _, child := range children {
		if !p.Enqueue(ctx, child) {
			return
		}
	}
}

// tryAdmit is the atomic lookup-then-insert spec.md §5 requires: two
// workers racing to enqueue the same child URL must not both dispatch it.
func (p *Pool) tryAdmit(rawURL string) bool {
	p.visitedMu.Lock()
	defer p.visitedMu.Unlock()
	if p.visited.Contains(rawURL) {
		return false
	}
	p.visited.Add(rawURL)
	return true
}

// finalize drops the frontier row for entry's URL from the persistent
// table once its work (successful or not) is complete.
func (p *Pool) finalize(entry Entry) {
	if p.cacheStore == nil {
		return
	}
	_ = p.cacheStore.Finalise(entry.RawURL)
}

// reserveSlot checks the page budget before a page is dispatched and, if
// a slot remains, claims it by incrementing the shared counter. Checking
// before crawlFn runs (rather than after) keeps the budget exact: with
// maxPages=3 exactly 3 entries are ever passed to crawlFn, per spec.md §8
// scenario 6 ("exactly 3 URLs are dispatched").
func (p *Pool) reserveSlot() (allowed bool) {
	p.countMu.Lock()
	defer p.countMu.Unlock()
	if p.maxPages > 0 && p.pageCount >= p.maxPages {
		return false
	}
	p.pageCount++
	if p.pageCount >= p.nextThreshold && p.progressEveryN > 0 {
		p.nextThreshold += p.progressEveryN
		if p.onProgress != nil {
			p.onProgress(p.pageCount)
		}
	}
	return true
}
