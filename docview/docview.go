// Package docview renders raw page HTML as readable markdown — the
// article-style perception mode, complementing the geometric snapshot blob.
// Input is sanitised before conversion: captured pages are hostile.
package docview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var policy = bluemonday.UGCPolicy()

func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// Render sanitises raw HTML and converts it to markdown.
func Render(raw []byte) (string, error) {
	clean := policy.SanitizeBytes(raw)

	md, err := newConverter().ConvertString(string(clean))
	if err != nil {
		return "", fmt.Errorf("docview: convert: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Title returns the text of the document's <title> element, or "" when the
// page has none. Works on the raw HTML: bluemonday strips <head> content.
func Title(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return title
}
