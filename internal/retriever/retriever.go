package retriever

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"vacciassist/internal/domain"
	"vacciassist/internal/embedding"
	"vacciassist/internal/vectorstore"
)

// DefaultTopK is the number of segments handed to the answer composer.
const DefaultTopK = 4

// Retriever embeds queries with the embedder the index was built with and
// returns the most similar segments.
type Retriever struct {
	index    vectorstore.Index
	embedder domain.Embedder
	topK     int
	minScore float64
	logger   *slog.Logger
}

type Option func(*Retriever)

// WithTopK sets how many segments Retrieve returns.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMinScore drops results scoring below s.
func WithMinScore(s float64) Option {
	return func(r *Retriever) { r.minScore = s }
}

func New(index vectorstore.Index, embedder domain.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		index:    index,
		embedder: embedder,
		topK:     DefaultTopK,
		logger:   slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index returns the index being searched.
func (r *Retriever) Index() vectorstore.Index { return r.index }

// Retrieve returns the top segments for query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.Segment, error) {
	results, err := r.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	segments := make([]domain.Segment, len(results))
	for i, res := range results {
		segments[i] = res.Segment
	}
	return segments, nil
}

// Search is Retrieve with scores. When the query vector carries no signal
// (no query word is known to the embedder) segments are ranked by word
// overlap instead.
func (r *Retriever) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embedding.Wrap(err)
	}
	var results []domain.SearchResult
	if isZero(vec) {
		r.logger.Debug("query vector is zero, using lexical ranking")
		results = r.lexicalSearch(query)
	} else {
		results, err = r.index.Query(vec, r.topK)
		if err != nil {
			return nil, err
		}
	}
	if r.minScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= r.minScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	r.logger.Debug("retrieved segments", "count", len(results), "top_k", r.topK)
	return results, nil
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

func (r *Retriever) lexicalSearch(query string) []domain.SearchResult {
	qset := tokenSet(query)
	segments := r.index.Segments()
	results := make([]domain.SearchResult, len(segments))
	for i, s := range segments {
		results[i] = domain.SearchResult{Segment: s, Score: ochiai(qset, tokenSet(s.Text))}
	}
	vectorstore.SortResults(results)
	return results[:min(r.topK, len(results))]
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// ochiai returns |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
