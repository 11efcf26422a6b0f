package htmlpipeline

// ChildLink is a link discovered on a processed page, ready for the
// frontier, carrying the depth bookkeeping spec.md's Frontier Entry needs.
type ChildLink struct {
	RawURL         string
	DepthActual    int
	DepthEffective int
}

// Result is what one HTML Pipeline run produces: the set of child links
// worth enqueuing (empty when the child-link policy denied expansion, or
// the page turned out to be a duplicate).
type Result struct {
	Duplicate   bool
	ChildLinks  []ChildLink
	ContentHash string
}
