package metadata

import "time"

// NoopSink is a zero-value MetadataSink and CrawlFinalizer implementation
// for embedding in test doubles that only care about overriding one or two
// methods.
type NoopSink struct{}

func (NoopSink) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
}

func (NoopSink) RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errString string, attrs []Attribute) {
}

func (NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (NoopSink) RecordFinalCrawlStats(totalPages, totalErrors, totalAssets int, duration time.Duration) {
}

var _ MetadataSink = NoopSink{}
var _ CrawlFinalizer = NoopSink{}
