package dispatch

import "github.com/kestrel-labs/corpusreaper/pkg/failure"

// DispatchError wraps an archive-fallback or unsupported-content failure
// local to routing. Always Recoverable: the worker logs it and moves to the
// next frontier entry.
type DispatchError struct {
	Message string
}

func (e *DispatchError) Error() string { return "dispatch: " + e.Message }

func (e *DispatchError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
