package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"vacciassist/internal/domain"
)

// RecursiveChunker splits on paragraph, line and word boundaries before
// falling back to characters, merging pieces up to the target size.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(size, overlap int) *RecursiveChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Segment, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	parts, err := c.splitter.SplitText(document.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: split %s: %v", domain.ErrIngestion, document.Name, err)
	}
	segments := make([]domain.Segment, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			DocumentID: document.ID,
			Text:       p,
			Index:      len(segments),
		})
	}
	return segments, nil
}
