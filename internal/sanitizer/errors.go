package sanitizer

import (
	"fmt"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
)

type SanitizationErrorCause string

const (
	ErrCauseBrokenDOM           SanitizationErrorCause = "broken dom"
	ErrCauseUnparseableHTML     SanitizationErrorCause = "unparseable html"
	ErrCauseCompetingRoots      SanitizationErrorCause = "competing roots"
	ErrCauseNoStructuralAnchor  SanitizationErrorCause = "no structural anchor"
	ErrCauseMultipleH1NoRoot    SanitizationErrorCause = "multiple h1 no root"
	ErrCauseImpliedMultipleDocs SanitizationErrorCause = "implied multiple docs"
	ErrCauseAmbiguousDOM        SanitizationErrorCause = "ambiguous dom"
)

type SanitizationError struct {
	Message   string
	Retryable bool
	Cause     SanitizationErrorCause
}

func (e *SanitizationError) Error() string {
	return fmt.Sprintf("sanitization error: %s", e.Cause)
}

// Severity is always Recoverable: a page that cannot be sanitized is
// dropped from the crawl, it never aborts the run.
func (e *SanitizationError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// mapSanitizationErrorToMetadataCause maps sanitizer-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapSanitizationErrorToMetadataCause(err SanitizationError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseBrokenDOM, ErrCauseUnparseableHTML:
		return metadata.CauseContentInvalid
	case ErrCauseCompetingRoots, ErrCauseNoStructuralAnchor, ErrCauseMultipleH1NoRoot,
		ErrCauseImpliedMultipleDocs, ErrCauseAmbiguousDOM:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
