package chunker

import (
	"regexp"
	"strings"

	"vacciassist/internal/domain"
)

// SentenceChunker groups whole sentences into segments, repeating the last
// overlapSentences sentences of one segment at the start of the next.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Segment, error) {
	sentences := c.sentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	var segments []domain.Segment
	for start, idx := 0, 0; ; idx++ {
		end := min(start+c.sentencesPerChunk, len(sentences))
		segments = append(segments, domain.Segment{
			DocumentID: document.ID,
			Text:       strings.Join(sentences[start:end], " "),
			Index:      idx,
		})
		if end == len(sentences) {
			break
		}
		start = end - c.overlapSentences
	}
	return segments, nil
}

// sentences returns the trimmed sentences of text. Text after the last
// terminator is kept as a final sentence.
func (c *SentenceChunker) sentences(text string) []string {
	locs := c.splitter.FindAllStringIndex(text, -1)
	var out []string
	last := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
