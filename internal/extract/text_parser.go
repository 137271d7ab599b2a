package extract

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// TextParser passes plain text and Markdown through unchanged apart from
// line ending normalisation.
type TextParser struct {
	fileType FileType
}

func NewTextParser(ft FileType) *TextParser {
	return &TextParser{fileType: ft}
}

func (p *TextParser) FileType() FileType { return p.fileType }

func (p *TextParser) Parse(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text is not valid UTF-8")
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}
