// Package dedupring implements spec.md §4.H's Dedup Ring: a process-local,
// thread-safe, probabilistic set of content-hash digests used to skip
// re-processing duplicate page bodies served under different URLs within
// one run. It is never persisted and false positives are an accepted
// tradeoff; false negatives cannot occur.
package dedupring

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Ring is a thread-safe wrapper around a Bloom filter sized for the
// configured capacity and target false-positive rate.
type Ring struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// New creates a Ring sized for capacity expected digests at the given
// target false-positive rate.
func New(capacity uint, falsePositiveRate float64) *Ring {
	return &Ring{filter: bloom.NewWithEstimates(capacity, falsePositiveRate)}
}

// Contains reports whether digest has (probably) already been seen.
func (r *Ring) Contains(digest string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter.Test([]byte(digest))
}

// Add records digest as seen.
func (r *Ring) Add(digest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter.Add([]byte(digest))
}

// TestAndAdd atomically checks membership and inserts digest, avoiding a
// lock-check-lock-insert race between concurrent HTML pipeline workers
// processing two different URLs whose bodies hash identically.
func (r *Ring) TestAndAdd(digest string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter.TestAndAdd([]byte(digest))
}
