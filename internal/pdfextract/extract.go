package pdfextract

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/ledongthuc/pdf"
)

// bandSize is how many leading/trailing lines of each page are considered
// candidates for running headers and footers.
const bandSize = 2

// repetitionThreshold is the fraction of pages a band line must repeat on
// before it is treated as a running header/footer and stripped.
const repetitionThreshold = 0.6

var pageNumberPattern = regexp.MustCompile(`^(page\s+)?\d+(\s+of\s+\d+)?$`)

// Extractor pulls flattened, reflowed text out of PDF bytes.
type Extractor struct {
	metadataSink metadata.MetadataSink
}

func NewExtractor(metadataSink metadata.MetadataSink) *Extractor {
	return &Extractor{metadataSink: metadataSink}
}

// Extract parses a PDF document and returns its title (best-effort, first
// non-boilerplate line of the first page) and a reflowed body.
func (e *Extractor) Extract(sourceURL string, raw []byte) (ExtractedPDF, *PDFError) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		pdfErr := &PDFError{Message: err.Error(), Cause: ErrCauseUnreadablePDF}
		e.recordError(sourceURL, pdfErr)
		return ExtractedPDF{}, pdfErr
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		pdfErr := &PDFError{Message: "pdf has no pages", Cause: ErrCauseNoPages}
		e.recordError(sourceURL, pdfErr)
		return ExtractedPDF{}, pdfErr
	}

	pages := make([][]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, splitLines(text))
	}

	if len(pages) == 0 {
		pdfErr := &PDFError{Message: "no extractable pages", Cause: ErrCauseNoPages}
		e.recordError(sourceURL, pdfErr)
		return ExtractedPDF{}, pdfErr
	}

	bands := learnHeaderFooterBands(pages)
	title := findTitle(pages, bands)
	body := reflow(pages, bands)

	return NewExtractedPDF(title, body), nil
}

func (e *Extractor) recordError(sourceURL string, err *PDFError) {
	e.metadataSink.RecordError(
		time.Time{},
		"pdfextract",
		"extract",
		mapPDFErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			{Key: metadata.AttrURL, Value: sourceURL},
			{Key: metadata.AttrMessage, Value: err.Message},
		},
	)
}

func splitLines(r io.Reader) []string {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t"))
	}
	return lines
}

// learnHeaderFooterBands inspects the leading and trailing bandSize lines of
// every page and returns the set of trimmed line values that occur, counted
// across both bands together, on at least repetitionThreshold of pages (and
// never fewer than two occurrences). These are running headers/footers, not
// content.
func learnHeaderFooterBands(pages [][]string) map[string]bool {
	counts := make(map[string]int)
	for _, page := range pages {
		for _, line := range bandLines(page) {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			counts[trimmed]++
		}
	}

	minCount := int(float64(len(pages)) * repetitionThreshold)
	if minCount < 2 {
		minCount = 2
	}

	bands := make(map[string]bool)
	for line, count := range counts {
		if count >= minCount {
			bands[line] = true
		}
	}
	return bands
}

func bandLines(page []string) []string {
	var out []string
	n := len(page)
	for i := 0; i < n && i < bandSize; i++ {
		out = append(out, page[i])
	}
	for i := n - bandSize; i < n; i++ {
		if i >= 0 && i >= bandSize {
			out = append(out, page[i])
		}
	}
	return out
}

// isProbablePageNumber reports whether a trimmed line looks like a running
// page-number marker ("3", "Page 3", "3 of 12").
func isProbablePageNumber(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if trimmed == "" {
		return false
	}
	return pageNumberPattern.MatchString(trimmed)
}

// findTitle picks the first non-blank, non-boilerplate, non-page-number line
// of the first page as the document title.
func findTitle(pages [][]string, bands map[string]bool) string {
	if len(pages) == 0 {
		return ""
	}
	for _, line := range pages[0] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if bands[trimmed] || isProbablePageNumber(trimmed) {
			continue
		}
		return trimmed
	}
	return ""
}

// reflow strips learned header/footer bands and page-number lines from every
// page, then joins hyphen-broken words across line wraps before
// concatenating pages with a blank line between them.
func reflow(pages [][]string, bands map[string]bool) string {
	var out strings.Builder
	for pageIdx, page := range pages {
		var kept []string
		for _, line := range page {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || bands[trimmed] || isProbablePageNumber(trimmed) {
				continue
			}
			kept = append(kept, trimmed)
		}
		out.WriteString(dehyphenateAndReflow(kept))
		if pageIdx < len(pages)-1 {
			out.WriteString("\n\n")
		}
	}
	return out.String()
}

// dehyphenateAndReflow joins a line ending in a hyphen with the start of the
// following line when that next line begins with a lowercase letter,
// treating the break as a mid-word line wrap rather than real punctuation.
func dehyphenateAndReflow(lines []string) string {
	var out strings.Builder
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasSuffix(line, "-") && i+1 < len(lines) {
			next := lines[i+1]
			if len(next) > 0 && next[0] >= 'a' && next[0] <= 'z' {
				out.WriteString(strings.TrimSuffix(line, "-"))
				continue
			}
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	return strings.TrimRight(out.String(), "\n")
}
