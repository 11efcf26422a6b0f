package metadata

import (
	"time"
)

type FetchEvent struct {
	fetchUrl    string
	httpStatus  int
	duration    time.Duration
	contentType string
	retryCount  int
	crawlDepth  int
}

func NewFetchEvent(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) FetchEvent {
	return FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
		crawlDepth:  crawlDepth,
	}
}

func (f FetchEvent) URL() string             { return f.fetchUrl }
func (f FetchEvent) HTTPStatus() int         { return f.httpStatus }
func (f FetchEvent) Duration() time.Duration { return f.duration }
func (f FetchEvent) ContentType() string     { return f.contentType }
func (f FetchEvent) RetryCount() int         { return f.retryCount }
func (f FetchEvent) CrawlDepth() int         { return f.crawlDepth }

/*
crawlStats
  - Represents a terminal, derived summary of a completed crawl
  - Contains only aggregate counts and durations
  - Is computed by the scheduler after crawl termination
  - Is recorded exactly once
  - Must not influence scheduling, retries, or crawl termination
  - Must be constructed without reading metadata
*/
type crawlStats struct {
	totalPages  int
	totalErrors int
	totalAssets int
	durationMs  int64
}

func NewCrawlStats(totalPages, totalErrors, totalAssets int, durationMs int64) crawlStats {
	return crawlStats{
		totalPages:  totalPages,
		totalErrors: totalErrors,
		totalAssets: totalAssets,
		durationMs:  durationMs,
	}
}

func (s crawlStats) TotalPages() int     { return s.totalPages }
func (s crawlStats) TotalErrors() int    { return s.totalErrors }
func (s crawlStats) TotalAssets() int    { return s.totalAssets }
func (s crawlStats) DurationMs() int64   { return s.durationMs }

// ArtifactKind identifies the shape of a recorded artifact, for
// observability only. It never drives dispatch or pipeline selection.
type ArtifactKind int

const (
	ArtifactMarkdown ArtifactKind = iota
	ArtifactHTML
	ArtifactPDF
	ArtifactText
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactMarkdown:
		return "markdown"
	case ArtifactHTML:
		return "html"
	case ArtifactPDF:
		return "pdf"
	case ArtifactText:
		return "text"
	default:
		return "unknown"
	}
}

type ArtifactRecord struct {
	kind       ArtifactKind
	path       string
	observedAt time.Time
	attrs      []Attribute
}

func NewArtifactRecord(kind ArtifactKind, path string, observedAt time.Time, attrs []Attribute) ArtifactRecord {
	return ArtifactRecord{
		kind:       kind,
		path:       path,
		observedAt: observedAt,
		attrs:      attrs,
	}
}

func (a ArtifactRecord) Kind() ArtifactKind    { return a.kind }
func (a ArtifactRecord) Path() string          { return a.path }
func (a ArtifactRecord) ObservedAt() time.Time { return a.observedAt }
func (a ArtifactRecord) Attrs() []Attribute    { return a.attrs }

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, continuation, or abort decisions.
	 - Any use of metadata.ErrorCause outside logging, metrics, or reporting is a design violation.
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.
	 - ErrorCause does not imply crawl termination.
	 - ErrorCause does not imply correctness of downstream behavior.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.
  - Used as a safe fallback.

Examples:
  - Unexpected internal errors
  - Unclassified third-party library failures

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - Connection resets
  - robots.txt fetch timeout

# CausePolicyDisallow

Meaning:
  - Crawling was disallowed by an explicit policy or rule.

Examples:
  - robots.txt disallow
  - HTTP 403 / 401 interpreted as access denial
  - rate-limit enforcement

# CauseContentInvalid

Meaning:
  - Content was fetched but could not be processed meaningfully.

Examples:
  - Non-HTML responses
  - Empty or unextractable document bodies
  - Broken DOM preventing extraction

# CauseStorageFailure

Meaning:
  - Failure while persisting crawl artifacts.

Examples:
  - Disk full
  - Write permission errors
  - Filesystem I/O failures

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.

Examples:
  - Multiple H1s in a document
  - Impossible crawl depth
  - Internal consistency checks failing

# CauseRetryFailure

Meaning:
  - All retry attempts for an operation were exhausted.

Examples:
  - Fetch retried to its configured limit and still failed
  - Transient storage error that never cleared
*/
const (
	CauseUnknown = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
	CauseRetryFailure
)

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

func NewErrorRecord(packageName, action string, cause ErrorCause, errorString string, observedAt time.Time, attrs []Attribute) ErrorRecord {
	return ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       attrs,
	}
}

func (e ErrorRecord) PackageName() string  { return e.packageName }
func (e ErrorRecord) Action() string       { return e.action }
func (e ErrorRecord) Cause() ErrorCause    { return e.cause }
func (e ErrorRecord) ErrorString() string  { return e.errorString }
func (e ErrorRecord) ObservedAt() time.Time { return e.observedAt }
func (e ErrorRecord) Attrs() []Attribute   { return e.attrs }

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrPath       AttributeKey = "path"
	AttrDepth      AttributeKey = "depth"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrAssetURL   AttributeKey = "asset_url"
	AttrWritePath  AttributeKey = "write_path"
	AttrMessage    AttributeKey = "message"
)

// MetadataSink is the write side of the crawl's observability surface.
// Pipeline packages depend on this interface, never on the concrete
// Recorder, so they can be exercised with a fake sink in tests.
type MetadataSink interface {
	RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int)
	RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errString string, attrs []Attribute)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

// CrawlFinalizer records the terminal, once-per-run crawl summary. It is
// deliberately distinct from MetadataSink: final stats are derived after
// the crawl stops and must not be mistaken for an ongoing event stream.
type CrawlFinalizer interface {
	RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration)
}
