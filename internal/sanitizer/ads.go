package sanitizer

import (
	"strings"

	"golang.org/x/net/html"
)

// adScriptSubstrings lists src substrings that identify ad/analytics
// scripts to strip before serialization. Substack's CDN is the only
// source observed in the fixtures this sanitizer was built against;
// extend the list as new ad hosts are discovered.
var adScriptSubstrings = []string{
	"substackcdn",
}

// removeAdScripts deletes <script> elements whose src attribute matches a
// known ad/analytics host substring. It mutates the tree in place and runs
// before removeDuplicateAndEmptyNode so the empty-node pass can clean up
// any wrapper left behind.
func removeAdScripts(doc *html.Node) {
	var scripts []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for _, attr := range n.Attr {
				if attr.Key != "src" {
					continue
				}
				if containsAny(attr.Val, adScriptSubstrings) {
					scripts = append(scripts, n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range scripts {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
