package chunker

import "vacciassist/internal/domain"

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// WindowChunker slides a fixed-size character window over the text.
// Windows advance by size-overlap and the trailing short window is kept, so
// dropping the first overlap characters of every segment after the first
// reconstructs the document.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a window chunker. Sizes are measured in characters
// (Unicode code points), not bytes.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &WindowChunker{size: size, overlap: overlap}
}

// Size returns the window size in characters.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the number of characters shared by consecutive windows.
func (c *WindowChunker) Overlap() int { return c.overlap }

func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Segment, error) {
	runes := []rune(document.Content)
	if len(runes) == 0 {
		return nil, nil
	}
	step := c.size - c.overlap
	var segments []domain.Segment
	for start, idx := 0, 0; ; start, idx = start+step, idx+1 {
		end := min(start+c.size, len(runes))
		segments = append(segments, domain.Segment{
			DocumentID: document.ID,
			Text:       string(runes[start:end]),
			Index:      idx,
		})
		if end == len(runes) {
			break
		}
	}
	return segments, nil
}
