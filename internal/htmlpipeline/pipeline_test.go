package htmlpipeline_test

import (
	"path/filepath"
	"testing"

	"github.com/kestrel-labs/corpusreaper/internal/cachestore"
	"github.com/kestrel-labs/corpusreaper/internal/dedupring"
	"github.com/kestrel-labs/corpusreaper/internal/extractor"
	"github.com/kestrel-labs/corpusreaper/internal/htmlpipeline"
	"github.com/kestrel-labs/corpusreaper/internal/mdconvert"
	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/internal/normalize"
	"github.com/kestrel-labs/corpusreaper/internal/sanitizer"
	"github.com/kestrel-labs/corpusreaper/internal/storage"
	"github.com/kestrel-labs/corpusreaper/internal/urlnorm"
)

func newTestPipeline(t *testing.T, maxDepth int) (*htmlpipeline.Pipeline, string) {
	t.Helper()
	sink := metadata.NoopSink{}
	ext := extractor.NewDomExtractor(sink, extractor.NewExtractParam("generic", 1.0))
	san := sanitizer.NewHTMLSanitizer(sink)
	conv := mdconvert.NewRule(sink)
	flat := normalize.NewTextFlattener(sink)
	ring := dedupring.New(1000, 1e-4)
	localSink := storage.NewLocalSink(sink)
	store, err := cachestore.Open(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("cachestore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	filter, err := urlnorm.NewFilter([]string{"example.test"}, nil, nil, urlnorm.DefaultCommentHostSuffixes())
	if err != nil {
		t.Fatalf("urlnorm.NewFilter() error = %v", err)
	}

	pipeline := htmlpipeline.New(sink, &ext, san, conv, flat, ring, &localSink, store, filter, maxDepth)
	return pipeline, t.TempDir()
}

func TestProcessWritesArtifactPairOnFreshFetch(t *testing.T) {
	pipeline, corpusDir := newTestPipeline(t, 1)
	body := []byte(`<html><body><main><h1>Welcome</h1><p>Enough body text to be meaningful content for scoring purposes.</p><a href="/a">A</a></main></body></html>`)

	result, err := pipeline.Process(corpusDir, "example.test", "https://example.test/", "text/html", body, false, false, 0, 0)

	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Duplicate {
		t.Fatalf("Process() unexpectedly reported a duplicate on first sight")
	}
	if len(result.ChildLinks) != 1 {
		t.Fatalf("ChildLinks = %v, want exactly one resolved child", result.ChildLinks)
	}
	if result.ChildLinks[0].RawURL != "https://example.test/a" {
		t.Errorf("child RawURL = %q, want resolved absolute URL", result.ChildLinks[0].RawURL)
	}
	if result.ChildLinks[0].DepthActual != 1 || result.ChildLinks[0].DepthEffective != 1 {
		t.Errorf("child depth = %+v, want depth 1/1", result.ChildLinks[0])
	}
}

func TestProcessSkipsChildLinksOutsideHomeFamily(t *testing.T) {
	pipeline, corpusDir := newTestPipeline(t, 1)
	body := []byte(`<html><body><main><h1>Welcome</h1><p>Enough body text to be meaningful content for scoring purposes.</p><a href="/a">A</a></main></body></html>`)

	result, err := pipeline.Process(corpusDir, "external.test", "https://external.test/", "text/html", body, false, false, 0, 0)

	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(result.ChildLinks) != 0 {
		t.Errorf("ChildLinks = %v, want none for a non-home-family page", result.ChildLinks)
	}
}

func TestProcessDetectsDuplicateContent(t *testing.T) {
	pipeline, corpusDir := newTestPipeline(t, 1)
	body := []byte(`<html><body><main><h1>Welcome</h1><p>Enough body text to be meaningful content for scoring purposes.</p></main></body></html>`)

	first, err := pipeline.Process(corpusDir, "example.test", "https://example.test/", "text/html", body, false, false, 0, 0)
	if err != nil {
		t.Fatalf("first Process() error = %v", err)
	}
	if first.Duplicate {
		t.Fatalf("first Process() unexpectedly a duplicate")
	}

	second, err := pipeline.Process(corpusDir, "example.test/dup", "https://example.test/dup", "text/html", body, false, false, 0, 0)
	if err != nil {
		t.Fatalf("second Process() error = %v", err)
	}
	if !second.Duplicate {
		t.Errorf("second Process() with identical content should be reported as a duplicate")
	}
}
