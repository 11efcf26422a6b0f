package pdfextract

import (
	"fmt"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
)

type PDFErrorCause string

const (
	ErrCauseUnreadablePDF PDFErrorCause = "unreadable pdf"
	ErrCauseNoPages       PDFErrorCause = "no pages"
)

type PDFError struct {
	Message string
	Cause   PDFErrorCause
}

func (e *PDFError) Error() string {
	return fmt.Sprintf("pdf extraction error: %s", e.Cause)
}

// Severity is always Recoverable: an unreadable PDF drops this page from
// the crawl, it never aborts the run.
func (e *PDFError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func mapPDFErrorToMetadataCause(err *PDFError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnreadablePDF, ErrCauseNoPages:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
