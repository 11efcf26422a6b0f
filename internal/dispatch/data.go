package dispatch

import "github.com/kestrel-labs/corpusreaper/internal/htmlpipeline"

// ChildLink re-exports htmlpipeline's child-link shape: the dispatcher's
// only source of child links is the HTML pipeline (PDF and archive
// fallback pages are terminal).
type ChildLink = htmlpipeline.ChildLink

// Result is what dispatching one fetch result produces.
type Result struct {
	ChildLinks []ChildLink
	Dropped    bool
	DropReason string
}
