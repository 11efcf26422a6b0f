package pdfextract

import (
	"testing"
)

func TestIsProbablePageNumber(t *testing.T) {
	cases := map[string]bool{
		"3":          true,
		"Page 3":     true,
		"3 of 12":    true,
		"Chapter 3":  false,
		"":           false,
		"Page three": false,
	}
	for input, want := range cases {
		if got := isProbablePageNumber(input); got != want {
			t.Errorf("isProbablePageNumber(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLearnHeaderFooterBandsStripsRepeatedLines(t *testing.T) {
	pages := [][]string{
		{"Acme Corp Handbook", "Introduction", "Welcome to the handbook.", "1"},
		{"Acme Corp Handbook", "Chapter 1", "Getting started is easy.", "2"},
		{"Acme Corp Handbook", "Chapter 2", "More details follow here.", "3"},
	}

	bands := learnHeaderFooterBands(pages)

	if !bands["Acme Corp Handbook"] {
		t.Errorf("expected running header to be learned as a band line")
	}
	if bands["Introduction"] {
		t.Errorf("did not expect a one-off heading to be treated as a band line")
	}
}

func TestFindTitleSkipsBandsAndPageNumbers(t *testing.T) {
	pages := [][]string{
		{"Acme Corp Handbook", "Employee Handbook", "Body text begins here.", "1"},
	}
	bands := map[string]bool{"Acme Corp Handbook": true}

	title := findTitle(pages, bands)

	if title != "Employee Handbook" {
		t.Errorf("findTitle() = %q, want %q", title, "Employee Handbook")
	}
}

func TestDehyphenateAndReflowJoinsWrappedWords(t *testing.T) {
	lines := []string{"This is a hyphen-", "ated word that wraps.", "Next sentence."}

	got := dehyphenateAndReflow(lines)

	want := "This is a hyphenated word that wraps.\nNext sentence."
	if got != want {
		t.Errorf("dehyphenateAndReflow() = %q, want %q", got, want)
	}
}

func TestNewExtractedPDFFallsBackToSentinelTitle(t *testing.T) {
	doc := NewExtractedPDF("", "some body")

	if doc.Title() != NoTitleSentinel {
		t.Errorf("Title() = %q, want sentinel %q", doc.Title(), NoTitleSentinel)
	}
}
