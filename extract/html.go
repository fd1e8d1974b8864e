package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/wudi/extractkit/mime"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlExtractor converts HTML documents to markdown-flavoured text, the
// html-to-markdown path of the extraction pipeline.
type htmlExtractor struct{}

func (htmlExtractor) Supports(mimeType string) bool {
	return mimeType == mime.HTML
}

func (htmlExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(in.Data))
	if err != nil {
		return Result{}, &ParsingError{
			Message: "could not parse html document",
			Context: map[string]string{"path": in.Path},
			Err:     err,
		}
	}

	var b strings.Builder
	meta := Metadata{}
	renderHTML(&b, &meta, doc)

	return Result{
		Content:  normalizeSpaces(b.String()),
		MimeType: in.MimeType,
		Metadata: meta,
		Success:  true,
	}, nil
}

var headingLevel = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func renderHTML(b *strings.Builder, meta *Metadata, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Iframe:
			return
		case atom.Title:
			if meta.Title == "" {
				meta.Title = strings.TrimSpace(textContent(n))
			}
			return
		case atom.Meta:
			captureMetaTag(meta, n)
			return
		case atom.Html:
			if lang := attrValue(n, "lang"); lang != "" && meta.Language == "" {
				meta.Language = lang
			}
		case atom.Br:
			b.WriteString("\n")
			return
		case atom.Hr:
			b.WriteString("\n---\n")
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			b.WriteString("\n\n")
			b.WriteString(strings.Repeat("#", headingLevel[n.DataAtom]))
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(textContent(n)))
			b.WriteString("\n\n")
			return
		case atom.Li:
			b.WriteString("\n- ")
		case atom.P, atom.Div, atom.Section, atom.Article, atom.Ul, atom.Ol, atom.Table, atom.Tr, atom.Blockquote, atom.Pre:
			b.WriteString("\n")
		case atom.Td, atom.Th:
			b.WriteString(" | ")
		case atom.A:
			b.WriteString(strings.TrimSpace(textContent(n)))
			if href := attrValue(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
				b.WriteString(" (")
				b.WriteString(href)
				b.WriteString(")")
			}
			b.WriteString(" ")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderHTML(b, meta, c)
	}
}

func captureMetaTag(meta *Metadata, n *html.Node) {
	name := strings.ToLower(attrValue(n, "name"))
	content := attrValue(n, "content")
	if content == "" {
		return
	}
	switch name {
	case "description", "subject":
		if meta.Subject == "" {
			meta.Subject = content
		}
	case "date":
		if meta.Date == "" {
			meta.Date = content
		}
	case "language":
		if meta.Language == "" {
			meta.Language = content
		}
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
