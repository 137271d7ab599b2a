package vectorstore

import (
	"cmp"
	"slices"

	"vacciassist/internal/domain"
)

// Index is an immutable similarity-searchable set of segments for one
// document. A new document always gets a new Index.
type Index interface {
	// Query returns at most k results ordered by descending score, equal
	// scores ordered by ascending segment index.
	Query(vector []float32, k int) ([]domain.SearchResult, error)
	Segments() []domain.Segment
	Dimension() int
	Len() int
}

// SortResults orders by descending score, breaking ties by ascending
// segment index.
func SortResults(results []domain.SearchResult) {
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Segment.Index, b.Segment.Index)
	})
}
