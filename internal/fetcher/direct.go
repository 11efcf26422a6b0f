package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/limiter"
	"github.com/kestrel-labs/corpusreaper/pkg/retry"
	"github.com/kestrel-labs/corpusreaper/pkg/urlutil"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Handle redirects safely
- Classify responses

Fetch Semantics

- Any content-type is returned; the Content Dispatcher decides what to do
  with it
- Redirect chains are bounded by http.Client's default policy
- All responses are logged with metadata

The fetcher never parses content; it only returns bytes and metadata.
*/

// DirectFetcher issues a plain HTTP GET with the configured user-agent,
// the direct strategy named in spec.md §4.C. Per-host pacing is delegated
// to rateLimiter: a host that has just tripped a 429 gets its fetches
// spaced out by an exponential backoff, independent of (and on top of)
// the per-request retry backoff in pkg/retry.
type DirectFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	rateLimiter  limiter.RateLimiter
}

func NewDirectFetcher(metadataSink metadata.MetadataSink) *DirectFetcher {
	return &DirectFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{},
		rateLimiter:  limiter.NewConcurrentRateLimiter(),
	}
}

func (h *DirectFetcher) Init(httpClient *http.Client) {
	h.httpClient = httpClient
}

// SetHostDelay configures a floor delay applied between consecutive fetches
// to the same host, on top of whatever backoff a prior 429 response
// triggered for that host.
func (h *DirectFetcher) SetHostDelay(d time.Duration) {
	h.rateLimiter.SetBaseDelay(d)
}

func (h *DirectFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "DirectFetcher.Fetch"
	startTime := time.Now()

	result, err := h.fetchWithRetry(ctx, fetchParam.fetchUrl, fetchParam.userAgent, retryParam)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	var retryCount int

	if err != nil {
		var retryErr *retry.RetryError
		if errors.As(err, &retryErr) {
			retryCount = retryParam.MaxAttempts
		}
	} else {
		statusCode = result.Code()
		contentType = result.ContentType()
	}

	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl,
		statusCode,
		duration,
		contentType,
		retryCount,
		crawlDepth,
	)

	if err != nil {
		var retryErr *retry.RetryError
		if errors.As(err, &retryErr) {
			h.recordRetryError(callerMethod, fetchParam.fetchUrl, retryErr)
		} else {
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				h.recordFetchError(callerMethod, fetchParam.fetchUrl, fetchErr)
			}
		}
		return FetchResult{}, err
	}

	return result, nil
}

func (h *DirectFetcher) recordFetchError(callerMethod, fetchUrl string, fetchErr *FetchError) {
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(fetchErr),
		fetchErr.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl),
		},
	)
}

func (h *DirectFetcher) recordRetryError(callerMethod, fetchUrl string, retryErr *retry.RetryError) {
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		metadata.CauseRetryFailure,
		retryErr.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrMessage, retryErr.Error()),
			metadata.NewAttr(metadata.AttrURL, fetchUrl),
		},
	)
}

func (h *DirectFetcher) fetchWithRetry(ctx context.Context, fetchUrl, userAgent string, retryParam retry.RetryParam) (FetchResult, failure.ClassifiedError) {
	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchUrl, userAgent)
	}

	result := retry.Retry(retryParam, fetchTask)
	if result.IsFailure() {
		return FetchResult{}, result.Err()
	}

	return result.Value(), nil
}

func (h *DirectFetcher) performFetch(ctx context.Context, fetchUrl, userAgent string) (FetchResult, failure.ClassifiedError) {
	host := requestHost(fetchUrl)
	if waitErr := h.waitForHostSlot(ctx, host); waitErr != nil {
		return FetchResult{}, waitErr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl, nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	headers := requestHeaders(userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()
	h.rateLimiter.MarkLastFetchAsNow(host)

	switch {
	case resp.StatusCode >= 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}
	case resp.StatusCode == 429:
		h.rateLimiter.Backoff(host)
		return FetchResult{}, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}
	case resp.StatusCode == 403:
		return FetchResult{}, &FetchError{
			Message:   "access forbidden (403)",
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequestOther4xx,
		}
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("redirect error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	h.rateLimiter.ResetBackoff(host)

	return FetchResult{
		rawURL:      fetchUrl,
		cu:          urlutil.CanonicalKey(fetchUrl),
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		statusCode:  resp.StatusCode,
		headers:     responseHeaders,
		fetchedAt:   time.Now(),
		wasCached:   false,
	}, nil
}

// waitForHostSlot blocks until rateLimiter says host's last fetch plus its
// resolved delay has elapsed, or ctx is cancelled first.
func (h *DirectFetcher) waitForHostSlot(ctx context.Context, host string) failure.ClassifiedError {
	delay := h.rateLimiter.ResolveDelay(host)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &FetchError{
			Message:   fmt.Sprintf("context cancelled while pacing fetch to %s: %v", host, ctx.Err()),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}
}

// requestHost extracts the host[:port] authority used as the rate
// limiter's per-host key; an unparsable URL falls back to the raw string
// so pacing still keys consistently per caller-supplied value.
func requestHost(fetchUrl string) string {
	u, err := url.Parse(fetchUrl)
	if err != nil || u.Host == "" {
		return fetchUrl
	}
	return u.Host
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml,application/pdf;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
