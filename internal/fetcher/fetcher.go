package fetcher

import (
	"context"
	"net/http"

	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/retry"
)

// Fetcher is the strategy interface spec.md §4.C names: direct request, or
// rendered fetch (a best-effort HEAD probe followed by the same direct GET
// for every content-type; no headless rendering is performed).
type Fetcher interface {
	Init(httpClient *http.Client)
	Fetch(
		ctx context.Context,
		crawlDepth int,
		fetchParam FetchParam,
		retryParam retry.RetryParam,
	) (FetchResult, failure.ClassifiedError)
}
