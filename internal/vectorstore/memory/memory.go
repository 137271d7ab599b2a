package memory

import (
	"fmt"
	"math"
	"slices"

	"vacciassist/internal/domain"
	"vacciassist/internal/vectorstore"
)

var _ vectorstore.Index = (*Index)(nil)

// Index is an in-memory brute-force cosine similarity index.
// It is never modified after Build.
type Index struct {
	dimension int
	segments  []domain.Segment
	vectors   [][]float32
	norms     []float64
}

// Build creates an index over segments and their vectors (same order).
// All vectors must share one length.
func Build(segments []domain.Segment, vectors [][]float32) (*Index, error) {
	if len(segments) != len(vectors) {
		return nil, fmt.Errorf("%w: %d segments but %d vectors",
			domain.ErrDimensionMismatch, len(segments), len(vectors))
	}
	ix := &Index{
		segments: slices.Clone(segments),
		vectors:  make([][]float32, len(vectors)),
		norms:    make([]float64, len(vectors)),
	}
	if len(vectors) > 0 {
		ix.dimension = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != ix.dimension {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(v), ix.dimension)
		}
		ix.vectors[i] = slices.Clone(v)
		ix.norms[i] = norm(v)
	}
	return ix, nil
}

// Query scores every segment by cosine similarity with vector. Zero vectors
// score 0 against everything.
func (ix *Index) Query(vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 || len(ix.segments) == 0 {
		return nil, nil
	}
	if len(vector) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(vector), ix.dimension)
	}
	qn := norm(vector)
	results := make([]domain.SearchResult, len(ix.segments))
	for i := range ix.segments {
		score := 0.0
		if qn > 0 && ix.norms[i] > 0 {
			score = dot(ix.vectors[i], vector) / (qn * ix.norms[i])
		}
		results[i] = domain.SearchResult{Segment: ix.segments[i], Score: score}
	}
	vectorstore.SortResults(results)
	return results[:min(k, len(results))], nil
}

// Segments returns a copy of the indexed segments in build order.
func (ix *Index) Segments() []domain.Segment { return slices.Clone(ix.segments) }

func (ix *Index) Dimension() int { return ix.dimension }

func (ix *Index) Len() int { return len(ix.segments) }

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
