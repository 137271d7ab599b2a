// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"vacciassist/internal/domain"
)

// FileType identifies a document format.
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeHTML    FileType = "html"
	FileTypeMD      FileType = "md"
	FileTypeTXT     FileType = "txt"
	FileTypeUnknown FileType = "unknown"
)

// Parser extracts text from one document format.
type Parser interface {
	FileType() FileType
	Parse(ctx context.Context, data []byte) (string, error)
}

// Registry dispatches documents to the parser registered for their type.
type Registry struct {
	parsers map[FileType]Parser
	logger  *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[FileType]Parser),
		logger:  slog.Default().With("component", "extract"),
	}
}

// DefaultRegistry returns a registry with every built-in parser.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTextParser(FileTypeTXT))
	r.Register(NewTextParser(FileTypeMD))
	r.Register(NewHTMLParser())
	r.Register(NewPDFParser())
	return r
}

// Register adds p, replacing any parser previously registered for its type.
func (r *Registry) Register(p Parser) {
	r.parsers[p.FileType()] = p
}

// Parser returns the parser registered for ft.
func (r *Registry) Parser(ft FileType) (Parser, bool) {
	p, ok := r.parsers[ft]
	return p, ok
}

// Extract implements domain.Extractor. Every failure wraps domain.ErrIngestion.
func (r *Registry) Extract(ctx context.Context, name string, data []byte) (text string, err error) {
	ft := DetectType(name, data)
	p, ok := r.parsers[ft]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedDocument, name)
	}
	defer func() {
		// third-party parsers panic on some malformed input
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: %s: malformed %s document: %v", domain.ErrIngestion, name, ft, rec)
		}
	}()
	text, err = p.Parse(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrIngestion, name, err)
	}
	r.logger.Debug("document extracted", "name", name, "type", ft, "bytes", len(data), "chars", len(text))
	return text, nil
}

// DetectType picks the file type from the name's extension and falls back to
// sniffing the content.
func DetectType(name string, data []byte) FileType {
	if ft := FileTypeFromExt(strings.TrimPrefix(filepath.Ext(name), ".")); ft != FileTypeUnknown {
		return ft
	}
	return sniff(data)
}

// FileTypeFromExt converts a file extension to a FileType.
func FileTypeFromExt(ext string) FileType {
	switch strings.ToLower(ext) {
	case "pdf":
		return FileTypePDF
	case "html", "htm":
		return FileTypeHTML
	case "md", "markdown":
		return FileTypeMD
	case "txt", "text":
		return FileTypeTXT
	default:
		return FileTypeUnknown
	}
}

func sniff(data []byte) FileType {
	head := bytes.TrimSpace(data[:min(len(data), 512)])
	switch {
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return FileTypePDF
	case bytes.HasPrefix(bytes.ToLower(head), []byte("<!doctype html")),
		bytes.HasPrefix(bytes.ToLower(head), []byte("<html")):
		return FileTypeHTML
	default:
		return FileTypeUnknown
	}
}
