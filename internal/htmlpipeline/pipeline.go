// Package htmlpipeline implements spec.md §4.F's HTML Pipeline: the
// nine-step sequence that turns a fetched HTML body into an artifact pair
// plus a set of child links to enqueue.
package htmlpipeline

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/cachestore"
	"github.com/kestrel-labs/corpusreaper/internal/dedupring"
	"github.com/kestrel-labs/corpusreaper/internal/extractor"
	"github.com/kestrel-labs/corpusreaper/internal/mdconvert"
	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/internal/normalize"
	"github.com/kestrel-labs/corpusreaper/internal/sanitizer"
	"github.com/kestrel-labs/corpusreaper/internal/storage"
	"github.com/kestrel-labs/corpusreaper/internal/urlnorm"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/hashutil"
	"golang.org/x/net/html"
)

// Pipeline wires the extractor, sanitizer, markdown converter, text
// flattener, dedup ring, and storage sink together into the ordered
// algorithm spec.md §4.F describes.
type Pipeline struct {
	metadataSink metadata.MetadataSink
	extractor    *extractor.DomExtractor
	sanitizer    sanitizer.HtmlSanitizer
	converter    mdconvert.ConvertRule
	flattener    normalize.Flattener
	dedupRing    *dedupring.Ring
	sink         storage.Sink
	cacheStore   *cachestore.Store
	urlFilter    *urlnorm.Filter
	maxDepth     int
}

func New(
	metadataSink metadata.MetadataSink,
	domExtractor *extractor.DomExtractor,
	htmlSanitizer sanitizer.HtmlSanitizer,
	converter mdconvert.ConvertRule,
	flattener normalize.Flattener,
	dedupRing *dedupring.Ring,
	sink storage.Sink,
	cacheStore *cachestore.Store,
	urlFilter *urlnorm.Filter,
	maxDepth int,
) *Pipeline {
	return &Pipeline{
		metadataSink: metadataSink,
		extractor:    domExtractor,
		sanitizer:    htmlSanitizer,
		converter:    converter,
		flattener:    flattener,
		dedupRing:    dedupRing,
		sink:         sink,
		cacheStore:   cacheStore,
		urlFilter:    urlFilter,
		maxDepth:     maxDepth,
	}
}

// Process runs the full algorithm for one fetched HTML page.
//
// wasCached tells step 7/8 whether body came from the network (write both
// artifacts and upsert the cache row) or was served from a valid cache
// entry (only regenerate the .txt sibling, and only if missing).
func (p *Pipeline) Process(
	corpusDir string,
	cu string,
	rawURL string,
	contentType string,
	body []byte,
	wasCached bool,
	textSiblingMissing bool,
	depthActual int,
	depthEffective int,
) (Result, failure.ClassifiedError) {
	sourceURL, err := url.Parse(rawURL)
	if err != nil {
		sourceURL = &url.URL{}
	}

	// spec.md §3: depth_effective resets to 0 whenever the URL matches
	// the home-family allow-list, before the gate below or any child is
	// derived from it.
	if p.urlFilter.IsHomeFamily(rawURL) {
		depthEffective = 0
	}

	extraction, classified := p.extractor.Extract(*sourceURL, body)
	if classified != nil {
		return Result{}, &PipelineError{Cause: ErrCauseExtraction, Wrapped: classified}
	}

	sanitized, classified := p.sanitizer.Sanitize(extraction.ContentNode)
	if classified != nil {
		return Result{}, &PipelineError{Cause: ErrCauseSanitize, Wrapped: classified}
	}

	contentHash, hashErr := hashContentNode(sanitized.GetContentNode())
	if hashErr != nil {
		return Result{}, &PipelineError{Cause: ErrCauseHash, Message: hashErr.Error()}
	}

	if p.dedupRing.TestAndAdd(contentHash) {
		// Already seen this exact content in this run: stop before any
		// writes or link expansion, per spec.md §4.F steps 5-6.
		return Result{Duplicate: true, ContentHash: contentHash}, nil
	}

	needsText := !wasCached || textSiblingMissing
	var conversion mdconvert.ConversionResult
	var flattened normalize.FlattenedDoc
	if needsText {
		conversion, classified = p.converter.Convert(sanitized)
		if classified != nil {
			return Result{}, &PipelineError{Cause: ErrCauseConversion, Wrapped: classified}
		}
		flattened, classified = p.flattener.Flatten(conversion.GetMarkdownContent())
		if classified != nil {
			return Result{}, &PipelineError{Cause: ErrCauseFlatten, Wrapped: classified}
		}
	}

	if !wasCached {
		rawResult, classified := p.sink.WriteRaw(corpusDir, cu, contentType, body)
		if classified != nil {
			return Result{}, &PipelineError{Cause: ErrCauseStorage, Wrapped: classified}
		}
		textResult, classified := p.sink.WriteText(corpusDir, cu, flattened.Title(), flattened.Text())
		if classified != nil {
			return Result{}, &PipelineError{Cause: ErrCauseStorage, Wrapped: classified}
		}
		if err := p.cacheStore.Upsert(cu, cachestore.CacheEntry{
			ContentType:  contentType,
			URLFilePath:  rawResult.Path(),
			URLFileSize:  rawResult.Size(),
			TextFilePath: textResult.Path(),
			TextFileSize: textResult.Size(),
			ContentHash:  contentHash,
			DownloadTime: time.Now(),
		}); err != nil {
			return Result{}, &PipelineError{Cause: ErrCauseCacheUpsert, Message: err.Error()}
		}
	} else if textSiblingMissing {
		if _, classified := p.sink.WriteText(corpusDir, cu, flattened.Title(), flattened.Text()); classified != nil {
			return Result{}, &PipelineError{Cause: ErrCauseStorage, Wrapped: classified}
		}
	}

	var children []ChildLink
	if p.urlFilter.IsHomeFamily(rawURL) && depthEffective < p.maxDepth {
		children = p.resolveChildLinks(sourceURL, sanitized.GetDiscoveredURLs(), depthActual, depthEffective)
	}

	return Result{ChildLinks: children, ContentHash: contentHash}, nil
}

func (p *Pipeline) resolveChildLinks(base *url.URL, discovered []url.URL, depthActual, depthEffective int) []ChildLink {
	children := make([]ChildLink, 0, len(discovered))
	for _, ref := range discovered {
		resolved := ref
		if base != nil {
			resolved = *base.ResolveReference(&ref)
		}
		resolved.Fragment = ""
		childURL := resolved.String()
		children = append(children, ChildLink{
			RawURL:         childURL,
			DepthActual:    depthActual + 1,
			DepthEffective: depthEffective + 1,
		})
	}
	return children
}

// hashContentNode serialises node back to HTML, lowercases and
// whitespace-trims the bytes, and returns the SHA-256 digest per spec.md
// §4.F step 4.
func hashContentNode(node *html.Node) (string, error) {
	var buf bytes.Buffer
	if node != nil {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	normalized := strings.TrimSpace(strings.ToLower(buf.String()))
	return hashutil.HashBytes([]byte(normalized), hashutil.HashAlgoSHA256)
}
