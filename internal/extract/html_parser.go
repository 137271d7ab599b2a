package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTMLParser converts the page body to Markdown so headings and lists
// survive as plain text.
type HTMLParser struct {
	converter *md.Converter
}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{converter: md.NewConverter("", true, nil)}
}

func (p *HTMLParser) FileType() FileType { return FileTypeHTML }

func (p *HTMLParser) Parse(_ context.Context, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer").Remove()

	body := doc.Find("body")
	html, err := body.Html()
	if err != nil || strings.TrimSpace(html) == "" {
		return collapseBlankLines(body.Text()), nil
	}
	markdown, err := p.converter.ConvertString(html)
	if err != nil {
		return collapseBlankLines(body.Text()), nil
	}
	return collapseBlankLines(markdown), nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
