package urlnorm_test

import (
	"testing"

	"github.com/kestrel-labs/corpusreaper/internal/urlnorm"
)

type stringSet map[string]struct{}

func (s stringSet) Contains(v string) bool { _, ok := s[v]; return ok }

func mustFilter(t *testing.T, allow, deny, denyPatterns []string) *urlnorm.Filter {
	t.Helper()
	f, err := urlnorm.NewFilter(allow, deny, denyPatterns, urlnorm.DefaultCommentHostSuffixes())
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	return f
}

func TestIsHomeFamily(t *testing.T) {
	f := mustFilter(t, []string{"docs.example.test"}, nil, nil)

	cases := map[string]bool{
		"https://docs.example.test/guide":     true,
		"http://www.docs.example.test/":       true,
		"https://docs.example.test":           true,
		"https://other.test/docs.example.test": false,
		"https://evildocs.example.test/":       false,
	}
	for raw, want := range cases {
		if got := f.IsHomeFamily(raw); got != want {
			t.Errorf("IsHomeFamily(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestIsDeniedDomainWinsOverAllow(t *testing.T) {
	f := mustFilter(t, []string{"docs.example.test"}, []string{"docs.example.test"}, nil)
	if !f.IsDenied("https://docs.example.test/page") {
		t.Fatal("expected deny-list to win")
	}
}

func TestIsDeniedPathPattern(t *testing.T) {
	f := mustFilter(t, []string{"docs.example.test"}, nil, []string{`/internal-only/`})
	if !f.IsDenied("https://docs.example.test/internal-only/secret") {
		t.Error("expected path pattern to deny")
	}
	if f.IsDenied("https://docs.example.test/guide") {
		t.Error("unrelated path should not be denied")
	}
}

func TestShouldVisitRejectsImagesAndPseudoLinks(t *testing.T) {
	f := mustFilter(t, []string{"docs.example.test"}, nil, nil)
	visited := stringSet{}

	rejects := []string{
		"https://docs.example.test/logo.png",
		"https://docs.example.test/photo.JPEG",
		"mailto:someone@example.test",
		"javascript:void(0)",
	}
	for _, raw := range rejects {
		if f.ShouldVisit(raw, visited) {
			t.Errorf("ShouldVisit(%q) = true, want false", raw)
		}
	}
}

func TestShouldVisitRejectsVisitedAndArchive(t *testing.T) {
	f := mustFilter(t, []string{"docs.example.test"}, nil, nil)
	visited := stringSet{"https://docs.example.test/seen": {}}

	if f.ShouldVisit("https://docs.example.test/seen", visited) {
		t.Error("already-visited URL should be rejected")
	}
	if f.ShouldVisit("https://web.archive.org/web/2020/https://docs.example.test/", visited) {
		t.Error("archive service URL should be rejected")
	}
}

func TestShouldVisitRejectsCommentPermalink(t *testing.T) {
	f := mustFilter(t, []string{"example.substack.com"}, nil, nil)
	visited := stringSet{}

	if f.ShouldVisit("https://example.substack.com/p/my-post/comments?commentId=123", visited) {
		t.Error("substack comment permalink should be rejected")
	}
	if !f.ShouldVisit("https://example.substack.com/p/my-post", visited) {
		t.Error("ordinary substack post should be visited")
	}
}

func TestCanonicaliseStripsSchemeAndTrailingSlash(t *testing.T) {
	f := mustFilter(t, []string{"docs.example.test"}, nil, nil)
	a := f.Canonicalise("https://docs.example.test/guide/")
	b := f.Canonicalise("http://docs.example.test/guide")
	if a != b {
		t.Errorf("canonical keys differ: %q vs %q", a, b)
	}
}
