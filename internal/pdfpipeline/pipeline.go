// Package pdfpipeline implements spec.md §4.G's PDF Pipeline: persist the
// raw bytes under CU.pdf, run the PDF text extractor, and write CU.txt with
// the extracted title (or the "no_title" sentinel) followed by a blank
// line and the body. PDFs never feed the link-extraction loop.
package pdfpipeline

import (
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/cachestore"
	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/internal/pdfextract"
	"github.com/kestrel-labs/corpusreaper/internal/storage"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/hashutil"
)

type Pipeline struct {
	metadataSink metadata.MetadataSink
	extractor    *pdfextract.Extractor
	sink         storage.Sink
	cacheStore   *cachestore.Store
}

func New(metadataSink metadata.MetadataSink, extractor *pdfextract.Extractor, sink storage.Sink, cacheStore *cachestore.Store) *Pipeline {
	return &Pipeline{metadataSink: metadataSink, extractor: extractor, sink: sink, cacheStore: cacheStore}
}

// Process writes the raw PDF, extracts its text, and writes the .txt
// sibling. No child links are ever produced.
func (p *Pipeline) Process(corpusDir, cu, rawURL string, body []byte) failure.ClassifiedError {
	rawResult, classified := p.sink.WriteRaw(corpusDir, cu, "application/pdf", body)
	if classified != nil {
		return classified
	}

	extracted, pdfErr := p.extractor.Extract(rawURL, body)
	if pdfErr != nil {
		return pdfErr
	}

	textResult, classified := p.sink.WriteText(corpusDir, cu, extracted.Title(), extracted.Body())
	if classified != nil {
		return classified
	}

	contentHash, err := hashutil.HashBytes(body, hashutil.HashAlgoSHA256)
	if err != nil {
		return &PDFPipelineError{Message: err.Error()}
	}

	if err := p.cacheStore.Upsert(cu, cachestore.CacheEntry{
		ContentType:  "application/pdf",
		URLFilePath:  rawResult.Path(),
		URLFileSize:  rawResult.Size(),
		TextFilePath: textResult.Path(),
		TextFileSize: textResult.Size(),
		ContentHash:  contentHash,
		DownloadTime: time.Now(),
	}); err != nil {
		return &PDFPipelineError{Message: err.Error()}
	}
	return nil
}
