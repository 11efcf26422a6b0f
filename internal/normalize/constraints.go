package normalize

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
)

/*
Responsibilities
- Flatten converted Markdown into plain title/text for the .txt artifact
- Never reject a document for structural reasons: best-effort title, no
  heading-count or ordering invariant is enforced

A document with no heading at all still flattens, just with an empty
title; the HTML pipeline writes that empty title as is.
*/

// Flattener is the interface for reducing Markdown content to plain text.
type Flattener interface {
	Flatten(markdownContent []byte) (FlattenedDoc, failure.ClassifiedError)
}

// Compile-time interface check
var _ Flattener = (*TextFlattener)(nil)

type TextFlattener struct {
	metadataSink metadata.MetadataSink
}

func NewTextFlattener(metadataSink metadata.MetadataSink) *TextFlattener {
	return &TextFlattener{metadataSink: metadataSink}
}

func (t *TextFlattener) Flatten(markdownContent []byte) (FlattenedDoc, failure.ClassifiedError) {
	flattened, err := flatten(markdownContent)
	if err != nil {
		var normalizationError *NormalizationError
		errors.As(err, &normalizationError)
		t.metadataSink.RecordError(
			time.Now(),
			"normalize",
			"TextFlattener.Flatten",
			mapNormalizationErrorToMetadataCause(*normalizationError),
			err.Error(),
			nil,
		)
		return FlattenedDoc{}, normalizationError
	}
	return flattened, nil
}

// flatten walks the Markdown AST with ast.WalkFunc, the same traversal
// technique the teacher's constraint validator used, but collects text
// instead of enforcing heading invariants. The first heading encountered
// (at any level) becomes the title; everything else is appended to the
// body in document order, blocks separated by a blank line.
func flatten(content []byte) (FlattenedDoc, *NormalizationError) {
	if len(bytes.TrimSpace(content)) == 0 {
		return FlattenedDoc{}, &NormalizationError{
			Message:   "markdown content is empty",
			Retryable: false,
			Cause:     ErrCauseEmptyContent,
		}
	}

	p := parser.New()
	doc := markdown.Parse(content, p)

	var title string
	var body strings.Builder
	var sawTitle bool

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		switch n := node.(type) {
		case *ast.Heading:
			text := collectText(n)
			if !sawTitle && strings.TrimSpace(text) != "" {
				title = strings.TrimSpace(text)
				sawTitle = true
				return ast.SkipChildren
			}
			writeLine(&body, text)
			return ast.SkipChildren
		case *ast.Paragraph, *ast.CodeBlock, *ast.Table, *ast.ListItem:
			text := collectText(n)
			writeLine(&body, text)
			return ast.SkipChildren
		}

		return ast.GoToNext
	})

	return NewFlattenedDoc(title, strings.TrimSpace(body.String())), nil
}

// collectText concatenates the textual content of a node's descendants,
// ignoring markup-only nodes.
func collectText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf, ok := n.(*ast.Text); ok {
			sb.Write(leaf.Literal)
		}
		if code, ok := n.(*ast.Code); ok {
			sb.Write(code.Literal)
		}
		if block, ok := n.(*ast.CodeBlock); ok {
			sb.Write(block.Literal)
		}
		return ast.GoToNext
	})
	return sb.String()
}

func writeLine(body *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if body.Len() > 0 {
		body.WriteString("\n\n")
	}
	body.WriteString(text)
}
