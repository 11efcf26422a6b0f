// Package dispatch implements spec.md §4.E's Content Dispatcher: routes a
// fetched response to the HTML or PDF pipeline by content-type, drops
// unsupported types with a log line, and consults the Archive Fallback on
// any non-2xx response per spec.md §4.D.
package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/archive"
	"github.com/kestrel-labs/corpusreaper/internal/fetcher"
	"github.com/kestrel-labs/corpusreaper/internal/htmlpipeline"
	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/internal/pdfpipeline"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/fileutil"
)

var droppedXMLOrStylesheetTypes = []string{
	"application/xml",
	"text/xml",
	"text/css",
}

var droppedJavaScriptTypes = []string{
	"application/javascript",
	"text/javascript",
	"application/ecmascript",
}

var droppedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
}

const droppedPowerpointType = "application/vnd.ms-powerpoint"

// Dispatcher routes fetch results to the HTML or PDF pipeline, or drops
// them, and consults the archive fallback on broken links.
type Dispatcher struct {
	metadataSink metadata.MetadataSink
	htmlPipeline *htmlpipeline.Pipeline
	pdfPipeline  *pdfpipeline.Pipeline
	archive      *archive.Fallback
	corpusDir    string
	pdfEnabled   bool
	archiveOn    bool
}

func New(
	metadataSink metadata.MetadataSink,
	htmlPipeline *htmlpipeline.Pipeline,
	pdfPipeline *pdfpipeline.Pipeline,
	archiveFallback *archive.Fallback,
	corpusDir string,
	pdfEnabled bool,
	archiveEnabled bool,
) *Dispatcher {
	return &Dispatcher{
		metadataSink: metadataSink,
		htmlPipeline: htmlPipeline,
		pdfPipeline:  pdfPipeline,
		archive:      archiveFallback,
		corpusDir:    corpusDir,
		pdfEnabled:   pdfEnabled,
		archiveOn:    archiveEnabled,
	}
}

// Dispatch routes fetchResult per spec.md §4.E, consulting the archive
// fallback first when the response was not a 2xx (and did not come from
// the cache, which is always treated as a prior success).
//
// textSiblingMissing is only meaningful when fetchResult.WasCached() is
// true: it tells the HTML pipeline whether the cached page's .txt sibling
// needs regenerating (spec.md §4.F step 8). The caller derives it from its
// own cachestore lookup before dispatching.
func (d *Dispatcher) Dispatch(ctx context.Context, fetchResult fetcher.FetchResult, textSiblingMissing bool, depthActual, depthEffective int) (Result, failure.ClassifiedError) {
	if !fetchResult.WasCached() && (fetchResult.Code() < 200 || fetchResult.Code() >= 300) {
		return d.handleBrokenLink(ctx, fetchResult)
	}

	contentType := strings.ToLower(strings.TrimSpace(firstMIMEToken(fetchResult.ContentType())))

	switch {
	case contentType == "application/pdf" && d.pdfEnabled:
		classified := d.pdfPipeline.Process(d.corpusDir, fetchResult.CU(), fetchResult.RawURL(), fetchResult.Body())
		if classified != nil {
			return Result{}, classified
		}
		return Result{}, nil

	case contentType == "text/html":
		htmlResult, classified := d.htmlPipeline.Process(
			d.corpusDir,
			fetchResult.CU(),
			fetchResult.RawURL(),
			fetchResult.ContentType(),
			fetchResult.Body(),
			fetchResult.WasCached(),
			textSiblingMissing,
			depthActual,
			depthEffective,
		)
		if classified != nil {
			return Result{}, classified
		}
		return Result{ChildLinks: htmlResult.ChildLinks}, nil

	case containsAny(contentType, droppedXMLOrStylesheetTypes) ||
		containsAny(contentType, droppedJavaScriptTypes) ||
		containsAny(contentType, droppedImageTypes) ||
		contentType == droppedPowerpointType:
		d.logDrop(fetchResult, "known unsupported content-type")
		return Result{Dropped: true, DropReason: "known unsupported content-type"}, nil

	default:
		d.logDrop(fetchResult, "unsupported content-type")
		return Result{Dropped: true, DropReason: "unsupported content-type"}, nil
	}
}

func (d *Dispatcher) handleBrokenLink(ctx context.Context, fetchResult fetcher.FetchResult) (Result, failure.ClassifiedError) {
	if !d.archiveOn || d.archive == nil {
		d.logDrop(fetchResult, "broken link, archive fallback disabled")
		return Result{Dropped: true, DropReason: "broken link"}, nil
	}

	snapshotURL, found, classified := d.archive.Lookup(ctx, fetchResult.RawURL())
	if classified != nil {
		d.metadataSink.RecordError(time.Now(), "dispatch", "Dispatcher.handleBrokenLink", metadata.CauseNetworkFailure, classified.Error(), nil)
		return Result{Dropped: true, DropReason: "archive lookup failed"}, nil
	}
	if !found {
		d.logDrop(fetchResult, "broken link, no archive snapshot")
		return Result{Dropped: true, DropReason: "broken link, no snapshot"}, nil
	}

	body, filename, classified := d.archive.Download(ctx, snapshotURL)
	if classified != nil {
		d.metadataSink.RecordError(time.Now(), "dispatch", "Dispatcher.handleBrokenLink", metadata.CauseNetworkFailure, classified.Error(), nil)
		return Result{Dropped: true, DropReason: "archive download failed"}, nil
	}

	if err := d.writeArchivedArtifact(filename, body); err != nil {
		return Result{}, err
	}
	// Archived pages are terminal artifacts: no child-link enumeration.
	return Result{}, nil
}

func (d *Dispatcher) writeArchivedArtifact(filename string, body []byte) failure.ClassifiedError {
	if classified := fileutil.EnsureDir(d.corpusDir); classified != nil {
		return classified
	}
	path := filepath.Join(d.corpusDir, "archived_"+filename)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return &DispatchError{Message: err.Error()}
	}
	d.metadataSink.RecordArtifact(metadata.ArtifactHTML, path, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrWritePath, path),
	})
	return nil
}

func (d *Dispatcher) logDrop(fetchResult fetcher.FetchResult, reason string) {
	d.metadataSink.RecordError(
		time.Now(),
		"dispatch",
		"Dispatcher.Dispatch",
		metadata.CausePolicyDisallow,
		reason,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchResult.RawURL()),
			metadata.NewAttr(metadata.AttrField, fetchResult.ContentType()),
		},
	)
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if s == sub {
			return true
		}
	}
	return false
}

// firstMIMEToken strips any "; charset=..." parameter suffix from a
// Content-Type header value.
func firstMIMEToken(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return contentType[:idx]
	}
	return contentType
}
