package htmlpipeline

import (
	"fmt"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
)

type PipelineErrorCause string

const (
	ErrCauseExtraction  PipelineErrorCause = "extraction failed"
	ErrCauseSanitize    PipelineErrorCause = "sanitization failed"
	ErrCauseConversion  PipelineErrorCause = "conversion failed"
	ErrCauseFlatten     PipelineErrorCause = "flatten failed"
	ErrCauseHash        PipelineErrorCause = "hash computation failed"
	ErrCauseStorage     PipelineErrorCause = "artifact write failed"
	ErrCauseCacheUpsert PipelineErrorCause = "cache upsert failed"
)

// PipelineError wraps whichever stage of the HTML pipeline failed. It is
// always Recoverable: a broken page is dropped from this run, the crawl
// itself continues.
type PipelineError struct {
	Message string
	Cause   PipelineErrorCause
	Wrapped error
}

func (e *PipelineError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("html pipeline: %s: %v", e.Cause, e.Wrapped)
	}
	return fmt.Sprintf("html pipeline: %s: %s", e.Cause, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Wrapped }

func (e *PipelineError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func mapPipelineErrorToMetadataCause(cause PipelineErrorCause) metadata.ErrorCause {
	switch cause {
	case ErrCauseExtraction, ErrCauseSanitize, ErrCauseConversion, ErrCauseFlatten:
		return metadata.CauseContentInvalid
	case ErrCauseStorage:
		return metadata.CauseStorageFailure
	case ErrCauseCacheUpsert:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
