package extract

import (
	"context"
	"strings"

	"github.com/wudi/extractkit/mime"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownExtractor parses markdown with goldmark and linearizes the AST
// into clean text while keeping the structural markers readers rely on.
type markdownExtractor struct{}

func (markdownExtractor) Supports(mimeType string) bool {
	return mimeType == mime.Markdown
}

func (markdownExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	source, err := decodeText(in.Data)
	if err != nil {
		return Result{}, &ParsingError{
			Message: "could not decode markdown file",
			Context: map[string]string{"path": in.Path},
			Err:     err,
		}
	}
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	meta := Metadata{}
	renderMarkdown(&b, &meta, doc, src)

	return Result{
		Content:  strings.TrimSpace(b.String()),
		MimeType: in.MimeType,
		Metadata: meta,
		Success:  true,
	}, nil
}

func renderMarkdown(b *strings.Builder, meta *Metadata, node ast.Node, source []byte) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			heading := string(n.Text(source))
			if n.Level == 1 && meta.Title == "" {
				meta.Title = heading
			}
			b.WriteString(strings.Repeat("#", n.Level))
			b.WriteString(" ")
			b.WriteString(heading)
			b.WriteString("\n\n")
		case *ast.Paragraph:
			b.WriteString(string(n.Text(source)))
			b.WriteString("\n\n")
		case *ast.List:
			renderMarkdownList(b, n, source)
			b.WriteString("\n")
		case *ast.FencedCodeBlock:
			b.WriteString("```\n")
			writeSegments(b, n, source)
			b.WriteString("```\n\n")
		case *ast.CodeBlock:
			writeSegments(b, n, source)
			b.WriteString("\n")
		case *ast.Blockquote:
			renderMarkdown(b, meta, n, source)
		case *ast.ThematicBreak:
			b.WriteString("---\n\n")
		default:
			if n.HasChildren() {
				renderMarkdown(b, meta, n, source)
			}
		}
	}
}

func renderMarkdownList(b *strings.Builder, list *ast.List, source []byte) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		b.WriteString("- ")
		for sub := item.FirstChild(); sub != nil; sub = sub.NextSibling() {
			if _, ok := sub.(*ast.List); ok {
				continue
			}
			b.WriteString(string(sub.Text(source)))
		}
		b.WriteString("\n")
		// Nested lists hang off the item.
		for sub := item.FirstChild(); sub != nil; sub = sub.NextSibling() {
			if nested, ok := sub.(*ast.List); ok {
				renderMarkdownList(b, nested, source)
			}
		}
	}
}

func writeSegments(b *strings.Builder, node ast.Node, source []byte) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
}
