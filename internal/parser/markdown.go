package parser

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	md         = goldmark.New(goldmark.WithExtensions(extension.GFM))
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// MarkdownToText strips markdown syntax and keeps the readable text. Paragraph
// breaks become blank lines and soft line breaks are preserved, so the
// splitter can still cut on them.
func MarkdownToText(src []byte) string {
	doc := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
			b.WriteString("\n")
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.ThematicBreak:
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.TextBlock:
			if !entering {
				b.WriteString("\n")
			}
		case *east.TableCell:
			if !entering {
				b.WriteString("\t")
			}
		case *east.TableRow, *east.TableHeader:
			if !entering {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(blankLines.ReplaceAllString(b.String(), "\n\n"))
}
