package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section boundaries follow H1 and H2 headings; deeper headings stay inside
// their parent section.
const maxSectionDepth = 2

// section is one heading-delimited region of a markdown document.
type section struct {
	Heading string // hierarchy such as "Combat > Grappling", empty for prologue
	Text    string
}

// markdownSections splits a markdown document at H1/H2 boundaries. A
// document without headings comes back as a single section. Text before the
// first heading becomes a section with an empty heading.
func markdownSections(source []byte) []section {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	offsets := headingOffsets(doc, source)
	if len(offsets) == 0 {
		body := strings.TrimSpace(string(source))
		if body == "" {
			return nil
		}
		return []section{{Text: body}}
	}

	headings := headingPaths(doc, source)

	var sections []section
	if prologue := strings.TrimSpace(string(source[:offsets[0]])); prologue != "" {
		sections = append(sections, section{Text: prologue})
	}

	for i, start := range offsets {
		end := len(source)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		body := strings.TrimSpace(string(source[start:end]))
		if body == "" {
			continue
		}
		heading := ""
		if i < len(headings) {
			heading = headings[i]
		}
		sections = append(sections, section{Heading: heading, Text: body})
	}

	return sections
}

// headingOffsets returns the byte offset of the start of each H1/H2 heading
// line, in document order.
func headingOffsets(doc ast.Node, source []byte) []int {
	var offsets []int
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		heading := n.(*ast.Heading)
		if heading.Level > maxSectionDepth || heading.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		offsets = append(offsets, lineStart(source, heading.Lines().At(0).Start))
		return ast.WalkContinue, nil
	})
	return offsets
}

// headingPaths flattens the document's table of contents into one
// hierarchical label per H1/H2 heading, in document order.
func headingPaths(doc ast.Node, source []byte) []string {
	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(maxSectionDepth),
	)
	if err != nil {
		return nil
	}

	var paths []string
	flattenItems(tree.Items, nil, &paths)
	return paths
}

func flattenItems(items toc.Items, ancestors []string, paths *[]string) {
	for _, item := range items {
		// Bare headings have no text and no offset entry; skip them here
		// too so labels stay aligned with headingOffsets.
		if len(item.Title) == 0 {
			flattenItems(item.Items, ancestors, paths)
			continue
		}
		current := make([]string, 0, len(ancestors)+1)
		current = append(current, ancestors...)
		current = append(current, string(item.Title))
		*paths = append(*paths, strings.Join(current, " > "))
		if len(item.Items) > 0 {
			flattenItems(item.Items, current, paths)
		}
	}
}

// lineStart backtracks from a position inside a line to the start of that
// line, so sections keep their "#" markers.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}
