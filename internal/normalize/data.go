package normalize

// FlattenedDoc is the plain-text result of flattening a converted Markdown
// document: a title (possibly empty) and the document body with all
// Markdown syntax stripped, suitable for the .txt artifact sibling.
type FlattenedDoc struct {
	title string
	text  string
}

func NewFlattenedDoc(title, text string) FlattenedDoc {
	return FlattenedDoc{title: title, text: text}
}

func (f FlattenedDoc) Title() string {
	return f.title
}

func (f FlattenedDoc) Text() string {
	return f.text
}
