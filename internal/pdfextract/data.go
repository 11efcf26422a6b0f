package pdfextract

// NoTitleSentinel is substituted for a PDF's title when no usable title
// line can be identified on the first page.
const NoTitleSentinel = "no_title"

// ExtractedPDF holds the flattened text extracted from a PDF artifact.
type ExtractedPDF struct {
	title string
	body  string
}

func NewExtractedPDF(title, body string) ExtractedPDF {
	if title == "" {
		title = NoTitleSentinel
	}
	return ExtractedPDF{title: title, body: body}
}

func (e ExtractedPDF) Title() string { return e.title }
func (e ExtractedPDF) Body() string  { return e.body }
