package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
)

// PDFParser extracts the plain text of every page, in page order.
type PDFParser struct {
	password string
}

// NewPDFParser creates a PDF parser. An optional password opens encrypted files.
func NewPDFParser(password ...string) *PDFParser {
	p := &PDFParser{}
	if len(password) > 0 {
		p.password = password[0]
	}
	return p
}

func (p *PDFParser) FileType() FileType { return FileTypePDF }

func (p *PDFParser) Parse(ctx context.Context, data []byte) (string, error) {
	var opts []documentloaders.PDFOptions
	if p.password != "" {
		opts = append(opts, documentloaders.WithPassword(p.password))
	}
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)), opts...)
	pages, err := loader.Load(ctx)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if t := strings.TrimSpace(page.PageContent); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n"), nil
}
