package archive

import (
	"fmt"

	"github.com/kestrel-labs/corpusreaper/pkg/failure"
)

// ArchiveErrorCause classifies archive-fallback failures for observability.
type ArchiveErrorCause string

const (
	ErrCauseAvailabilityRequestFailed = "availability request failed"
	ErrCauseAvailabilityParseFailed   = "availability response unparseable"
	ErrCauseSnapshotDownloadFailed    = "snapshot download failed"
)

// ArchiveError is always Recoverable: an availability lookup or snapshot
// download failing never aborts the crawl, per spec.md §7's "broken link"
// taxonomy, it only means the archive fallback could not help this URL.
type ArchiveError struct {
	Message string
	Cause   ArchiveErrorCause
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error: %s: %s", e.Cause, e.Message)
}

func (e *ArchiveError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
