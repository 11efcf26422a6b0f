package metadata

/*
Metadata Collected
- Fetch timestamps
- HTTP status codes
- Content hashes
- Crawl depth

Logging Goals
- Debuggable crawl behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Allowed:
- Primitive values
- Timestamps
- URLs (as values, not objects with behavior)
- Hashes
- Status codes
- Durations
- Identifiers (page ID, crawl ID)
*/

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Recorder is the zerolog-backed implementation of MetadataSink and
// CrawlFinalizer. Every fetch, error and artifact event becomes one
// structured log line; nothing recorded here feeds back into scheduling.
type Recorder struct {
	logger zerolog.Logger
	closer io.Closer
}

// NewRecorder opens logPath (creating parent directories as needed) and
// returns a Recorder that writes structured events to that file and to
// stderr simultaneously.
func NewRecorder(logPath string) (*Recorder, error) {
	if dir := filepath.Dir(logPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	multi := io.MultiWriter(file, os.Stderr)
	logger := zerolog.New(multi).With().Timestamp().Logger()
	return &Recorder{logger: logger, closer: file}, nil
}

// Close releases the underlying log file handle.
func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Recorder) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
	r.logger.Info().
		Str("event", "fetch").
		Str("url", fetchUrl).
		Int("http_status", httpStatus).
		Dur("duration", duration).
		Str("content_type", contentType).
		Int("retry_count", retryCount).
		Int("crawl_depth", crawlDepth).
		Msg("fetch completed")
}

func (r *Recorder) RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errString string, attrs []Attribute) {
	event := r.logger.Warn().
		Str("event", "error").
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Str("cause", causeString(cause)).
		Str("error", errString)
	for _, a := range attrs {
		event = event.Str(string(a.Key), a.Value)
	}
	event.Msg("recoverable error")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	event := r.logger.Info().
		Str("event", "artifact").
		Str("kind", kind.String()).
		Str("path", path)
	for _, a := range attrs {
		event = event.Str(string(a.Key), a.Value)
	}
	event.Msg("artifact written")
}

func (r *Recorder) RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration) {
	stats := NewCrawlStats(totalPages, totalErrors, totalAssets, duration.Milliseconds())
	r.logger.Info().
		Str("event", "crawl_complete").
		Int("total_pages", stats.TotalPages()).
		Int("total_errors", stats.TotalErrors()).
		Int("total_assets", stats.TotalAssets()).
		Int64("duration_ms", stats.DurationMs()).
		Msg("crawl finished")
}

func causeString(c ErrorCause) string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	case CauseRetryFailure:
		return "retry_failure"
	default:
		return "unknown"
	}
}
