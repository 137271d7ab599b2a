package summarizer

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

var (
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?\n]+[.!?])`)
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencySummarizer picks the sentences whose words are most frequent in
// the whole text and returns them in document order.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: stopwords()}
}

type scoredSentence struct {
	pos   int
	text  string
	score float64
}

// Summarize returns at most maxSentences sentences (5 when maxSentences <= 0).
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	raw := splitSentences(text)
	if len(raw) <= 1 {
		return strings.Join(raw, ""), nil
	}

	tokens := make([][]string, len(raw))
	freq := map[string]float64{}
	for i, sent := range raw {
		tokens[i] = s.content(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	top := 0.0
	for _, v := range freq {
		top = max(top, v)
	}

	sentences := make([]scoredSentence, len(raw))
	for i, sent := range raw {
		score := 0.0
		for _, tok := range tokens[i] {
			score += freq[tok] / top
		}
		// long sentences would otherwise always win
		if n := len(tokens[i]); n > 0 {
			score /= math.Sqrt(float64(n))
		}
		sentences[i] = scoredSentence{pos: i, text: sent, score: score}
	}

	slices.SortStableFunc(sentences, func(a, b scoredSentence) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	picked := sentences[:min(maxSentences, len(sentences))]
	slices.SortFunc(picked, func(a, b scoredSentence) int { return a.pos - b.pos })

	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = p.text
	}
	return strings.Join(out, " "), nil
}

// splitSentences returns the trimmed sentences of text. Unterminated text
// between or after matches is kept as its own sentence.
func splitSentences(text string) []string {
	var out []string
	keep := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		keep(text[last:loc[0]])
		keep(text[loc[0]:loc[1]])
		last = loc[1]
	}
	keep(text[last:])
	return out
}

// content returns the lower-cased non-stopword tokens of text.
func (s *FrequencySummarizer) content(text string) []string {
	var out []string
	for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "into", "about", "than", "so", "such", "can", "will", "should",
		"o", "os", "um", "uma", "de", "do", "da", "dos", "das", "em", "no", "na", "nos", "nas", "por", "para", "com", "que", "e", "ou", "se", "ao", "é", "são",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
