package extractor

import "golang.org/x/net/html"

// ExtractionResult holds the extraction outcome.
// DocumentRoot is the original parsed HTML document.
// ContentNode is the extracted meaningful content node (semantic container).
type ExtractionResult struct {
	DocumentRoot *html.Node
	ContentNode  *html.Node
}

// ExtractParam carries the tunable parameters for heuristic content
// scoring. LinkDensityThreshold is the link-text ratio above which a
// candidate's score is penalised; BodySpecificityBias is the fraction of the
// <body> score a child container must reach to be preferred over <body>.
// Framework and DensityMultiplier are stored but not read by the scoring code.
type ExtractParam struct {
	Framework            string
	DensityMultiplier    float64
	LinkDensityThreshold float64
	BodySpecificityBias  float64
}

func NewExtractParam(framework string, densityMultiplier float64) ExtractParam {
	if densityMultiplier <= 0 {
		densityMultiplier = 1.0
	}
	return ExtractParam{
		Framework:            framework,
		DensityMultiplier:    densityMultiplier,
		LinkDensityThreshold: 0.8,
		BodySpecificityBias:  0.9,
	}
}
