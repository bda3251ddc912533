package markdown

import (
	"strings"

	gm "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	gmparser "github.com/gomarkdown/markdown/parser"
)

// Report describes what a CommonMark parser sees in a rewritten field.
type Report struct {
	// RawHTML holds every inline or block HTML fragment the parser found.
	// Rewritten output should never produce any.
	RawHTML []string
	// Links holds the destinations of all links, in document order.
	Links []string
	// CodeBlocks counts fenced code blocks.
	CodeBlocks int
	// InlineCode holds the content of every code span, in document order.
	InlineCode []string
}

// Clean reports whether no raw HTML leaked into the document.
func (r Report) Clean() bool {
	return len(r.RawHTML) == 0
}

// Validate parses md as Markdown and reports raw HTML, link destinations and
// code.
func Validate(md string) Report {
	var rep Report
	if strings.TrimSpace(md) == "" {
		return rep
	}
	doc := gm.Parse([]byte(md), gmparser.NewWithExtensions(gmparser.CommonExtensions))

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.HTMLSpan:
			rep.RawHTML = append(rep.RawHTML, string(n.Literal))
		case *ast.HTMLBlock:
			rep.RawHTML = append(rep.RawHTML, strings.TrimSpace(string(n.Literal)))
		case *ast.Link:
			rep.Links = append(rep.Links, string(n.Destination))
		case *ast.CodeBlock:
			rep.CodeBlocks++
		case *ast.Code:
			rep.InlineCode = append(rep.InlineCode, string(n.Literal))
		}
		return ast.GoToNext
	})
	return rep
}
