package frontier_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kestrel-labs/corpusreaper/internal/cachestore"
	"github.com/kestrel-labs/corpusreaper/internal/frontier"
)

func openTestStore(t *testing.T) *cachestore.Store {
	t.Helper()
	store, err := cachestore.Open(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("cachestore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPoolVisitsEachURLExactlyOnce(t *testing.T) {
	store := openTestStore(t)
	pool := frontier.NewPool(4, 16, 0, 0, store, nil)

	var mu sync.Mutex
	seen := map[string]int{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	crawlFn := func(ctx context.Context, entry frontier.Entry) ([]frontier.Entry, error) {
		mu.Lock()
		seen[entry.RawURL]++
		mu.Unlock()
		if entry.RawURL == "https://example.test/" {
			return []frontier.Entry{
				{RawURL: "https://example.test/a", DepthActual: 1, DepthEffective: 1},
				{RawURL: "https://example.test/a", DepthActual: 1, DepthEffective: 1},
			}, nil
		}
		return nil, nil
	}

	pool.Enqueue(ctx, frontier.Entry{RawURL: "https://example.test/"})

	done := make(chan struct{})
	go func() {
		pool.Run(ctx, cancel, crawlFn)
		close(done)
	}()

	// Give the workers a moment to drain the seed and its children, then
	// close the queue so Run returns.
	waitForCount(t, &mu, seen, "https://example.test/a", 1)
	pool.Close()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if seen["https://example.test/"] != 1 {
		t.Errorf("seed visited %d times, want 1", seen["https://example.test/"])
	}
	if seen["https://example.test/a"] != 1 {
		t.Errorf("child visited %d times, want 1 (visited-set must dedupe)", seen["https://example.test/a"])
	}
}

func waitForCount(t *testing.T, mu *sync.Mutex, seen map[string]int, key string, want int) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		mu.Lock()
		got := seen[key]
		mu.Unlock()
		if got >= want {
			return
		}
	}
	t.Fatalf("timed out waiting for %q to be visited %d times", key, want)
}

func TestPoolStopsWhenPageBudgetCrossed(t *testing.T) {
	store := openTestStore(t)
	pool := frontier.NewPool(1, 16, 2, 0, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	dispatched := 0

	crawlFn := func(ctx context.Context, entry frontier.Entry) ([]frontier.Entry, error) {
		mu.Lock()
		dispatched++
		mu.Unlock()
		next := entry.DepthActual + 1
		return []frontier.Entry{{RawURL: entry.RawURL + "/next", DepthActual: next, DepthEffective: next}}, nil
	}

	pool.Enqueue(ctx, frontier.Entry{RawURL: "https://example.test/0"})
	pool.Run(ctx, cancel, crawlFn)

	if pool.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want exactly 2: the budget is checked before crawlFn runs, so the 3rd entry is never dispatched", pool.PageCount())
	}
}
