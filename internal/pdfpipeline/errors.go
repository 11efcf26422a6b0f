package pdfpipeline

import "github.com/kestrel-labs/corpusreaper/pkg/failure"

// PDFPipelineError wraps a cache-upsert or hashing failure local to this
// pipeline stage (the PDF extractor and storage sink raise their own
// ClassifiedError types directly).
type PDFPipelineError struct {
	Message string
}

func (e *PDFPipelineError) Error() string {
	return "pdf pipeline: " + e.Message
}

func (e *PDFPipelineError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
