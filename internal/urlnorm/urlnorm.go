// Package urlnorm canonicalises raw URLs and decides crawl admission: is a
// URL inside the home-family allow-list, denied outright, or otherwise not
// worth visiting (images, mailto/javascript links, comment permalinks,
// archive-service URLs, URLs already visited).
package urlnorm

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/kestrel-labs/corpusreaper/pkg/urlutil"
)

// defaultImageExtensions matches spec.md §4.A's should_visit exclusion list.
var defaultImageExtensions = []string{".jpg", ".jpeg", ".gif", ".png"}

// VisitedChecker is satisfied by anything that can answer "have we already
// dispatched this raw URL to a worker this run". frontier.Set[string]
// implements it without urlnorm needing to import the frontier package.
type VisitedChecker interface {
	Contains(string) bool
}

// Filter holds the compiled allow-list/deny-list regexes and the
// comment-permalink host-suffix list used to gate crawl admission.
type Filter struct {
	allowPattern    *regexp.Regexp
	denyDomainGroup *regexp.Regexp
	denyPatterns    []*regexp.Regexp
	commentHosts    []string
	imageExtensions []string
}

// NewFilter compiles the allow-list from allowDomains (home-family hosts),
// the deny-list from denyDomains and denyPatterns (arbitrary path regexes),
// and the Substack-style comment-permalink host-suffix list.
func NewFilter(allowDomains, denyDomains, denyPatterns, commentHostSuffixes []string) (*Filter, error) {
	if len(allowDomains) == 0 {
		return nil, fmt.Errorf("urlnorm: at least one allow domain is required")
	}

	allowAlternatives := make([]string, 0, len(allowDomains))
	for _, d := range allowDomains {
		allowAlternatives = append(allowAlternatives, regexp.QuoteMeta(strings.ToLower(d)))
	}
	allowPattern, err := regexp.Compile(`(?i)^https?://(www\.)?(` + strings.Join(allowAlternatives, "|") + `)(/|$)`)
	if err != nil {
		return nil, fmt.Errorf("urlnorm: compiling allow-list: %w", err)
	}

	var denyDomainGroup *regexp.Regexp
	if len(denyDomains) > 0 {
		denyAlternatives := make([]string, 0, len(denyDomains))
		for _, d := range denyDomains {
			denyAlternatives = append(denyAlternatives, regexp.QuoteMeta(strings.ToLower(d)))
		}
		denyDomainGroup, err = regexp.Compile(`(?i)^https?://(www\.)?(` + strings.Join(denyAlternatives, "|") + `)(/|$)`)
		if err != nil {
			return nil, fmt.Errorf("urlnorm: compiling deny-domain list: %w", err)
		}
	}

	compiledDenyPatterns := make([]*regexp.Regexp, 0, len(denyPatterns))
	for _, p := range denyPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("urlnorm: compiling deny pattern %q: %w", p, err)
		}
		compiledDenyPatterns = append(compiledDenyPatterns, re)
	}

	return &Filter{
		allowPattern:    allowPattern,
		denyDomainGroup: denyDomainGroup,
		denyPatterns:    compiledDenyPatterns,
		commentHosts:    append([]string(nil), commentHostSuffixes...),
		imageExtensions: defaultImageExtensions,
	}, nil
}

// Canonicalise derives the Canonical URL (CU) identity key for raw.
func (f *Filter) Canonicalise(raw string) string {
	return urlutil.CanonicalKey(raw)
}

// IsHomeFamily reports whether raw matches the compiled allow-list.
func (f *Filter) IsHomeFamily(raw string) bool {
	return f.allowPattern.MatchString(raw)
}

// IsDenied reports whether raw matches the deny-list, by domain or by path
// pattern. Deny-list wins over allow-list whenever both match.
func (f *Filter) IsDenied(raw string) bool {
	if f.denyDomainGroup != nil && f.denyDomainGroup.MatchString(raw) {
		return true
	}
	for _, re := range f.denyPatterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

// ShouldVisit applies spec.md §4.A's admission rule: deny-list, archive
// service URLs, already-visited, image extensions, mailto/javascript
// pseudo-links, and comment permalinks are all rejected.
func (f *Filter) ShouldVisit(raw string, visited VisitedChecker) bool {
	if f.IsDenied(raw) {
		return false
	}
	if isArchiveServiceURL(raw) {
		return false
	}
	if visited != nil && visited.Contains(raw) {
		return false
	}
	if hasImageExtension(raw, f.imageExtensions) {
		return false
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:") {
		return false
	}
	if f.isCommentPermalink(raw) {
		return false
	}
	return true
}

func isArchiveServiceURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "archive.org" || strings.HasSuffix(host, ".archive.org") || host == "web.archive.org"
}

func hasImageExtension(raw string, extensions []string) bool {
	u, err := url.Parse(raw)
	path := raw
	if err == nil {
		path = u.Path
	}
	lower := strings.ToLower(path)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// isCommentPermalink generalises the original's is_substack_comment_page: a
// URL whose host ends in one of the configured suffixes and whose query
// string carries a key containing "comment" is treated as a discussion
// permalink rather than crawlable content.
func (f *Filter) isCommentPermalink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	matchesHost := false
	for _, suffix := range f.commentHosts {
		if strings.HasSuffix(host, strings.ToLower(suffix)) {
			matchesHost = true
			break
		}
	}
	if !matchesHost {
		return false
	}
	for key := range u.Query() {
		if strings.Contains(strings.ToLower(key), "comment") {
			return true
		}
	}
	return false
}

// DefaultCommentHostSuffixes is the shipped default comment-permalink host
// list, seeded with the original's Substack-specific rule.
func DefaultCommentHostSuffixes() []string {
	return []string{"substack.com"}
}
