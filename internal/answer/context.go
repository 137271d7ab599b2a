package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"vacciassist/internal/domain"
)

// TokenCounter returns the number of model tokens in s.
type TokenCounter func(s string) int

// ApproxTokens estimates four characters per token.
func ApproxTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// NewTiktokenCounter counts tokens with the named BPE encoding
// (e.g. "cl100k_base"). Loading an encoding may download its ranks file.
func NewTiktokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return func(s string) int {
		return len(enc.EncodeOrdinary(s))
	}, nil
}

const segmentSeparator = "\n\n"

// BuildContext joins segment texts in order, stopping before the segment that
// would exceed maxTokens. The first segment is always present, cut to the
// budget if needed. maxTokens <= 0 disables the bound.
func BuildContext(segments []domain.Segment, maxTokens int, count TokenCounter) string {
	if count == nil {
		count = ApproxTokens
	}
	var b strings.Builder
	used := 0
	for i, s := range segments {
		piece := s.Text
		if i > 0 {
			piece = segmentSeparator + piece
		}
		if maxTokens <= 0 {
			b.WriteString(piece)
			continue
		}
		n := count(piece)
		if used+n > maxTokens {
			if i == 0 {
				b.WriteString(truncateTokens(piece, maxTokens, count))
			}
			break
		}
		b.WriteString(piece)
		used += n
	}
	return b.String()
}

// truncateTokens returns the longest prefix of s that fits in maxTokens.
func truncateTokens(s string, maxTokens int, count TokenCounter) string {
	runes := []rune(s)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if count(string(runes[:mid])) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
