package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown strips markdown formatting from content, returning plain text
// with paragraphs and headings separated by blank lines so the chunker can
// still see structural boundaries.
func Markdown(content []byte) string {
	md := goldmark.New()
	reader := text.NewReader(content)
	doc := md.Parser().Parse(reader)

	var buf strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(content))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteString("\n")
				}
			case *ast.String:
				buf.Write(node.Value)
			}
		} else {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem:
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
