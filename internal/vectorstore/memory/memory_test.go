package memory

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacciassist/internal/domain"
)

func segments(n int) []domain.Segment {
	out := make([]domain.Segment, n)
	for i := range out {
		out[i] = domain.Segment{DocumentID: "doc", Index: i, Text: string(rune('a' + i%26))}
	}
	return out
}

func TestBuildDimensionMismatch(t *testing.T) {
	_, err := Build(segments(2), [][]float32{{1, 0}, {1, 0, 0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestBuildCountMismatch(t *testing.T) {
	_, err := Build(segments(2), [][]float32{{1, 0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestBuildEmpty(t *testing.T) {
	ix, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, ix.Len())

	res, err := ix.Query([]float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestQueryOrdering(t *testing.T) {
	ix, err := Build(segments(4), [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
		{2, 0},
	})
	require.NoError(t, err)

	res, err := ix.Query([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 4)

	// segments 1 and 3 both have cosine 1; the earlier one wins
	assert.Equal(t, []int{1, 3, 2, 0}, []int{
		res[0].Segment.Index, res[1].Segment.Index, res[2].Segment.Index, res[3].Segment.Index,
	})
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.InDelta(t, 0.0, res[3].Score, 1e-9)
}

func TestQueryProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n, dim = 40, 6
	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = make([]float32, dim)
		for j := range vectors[i] {
			// small integer grid produces many exact ties
			vectors[i][j] = float32(rng.Intn(3))
		}
	}
	ix, err := Build(segments(n), vectors)
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		q := make([]float32, dim)
		for j := range q {
			q[j] = float32(rng.Intn(3))
		}
		k := rng.Intn(n + 5)
		res, err := ix.Query(q, k)
		require.NoError(t, err)

		assert.LessOrEqual(t, len(res), k)
		for i := 1; i < len(res); i++ {
			prev, cur := res[i-1], res[i]
			assert.LessOrEqual(t, cur.Score, prev.Score)
			if cur.Score == prev.Score {
				assert.Less(t, prev.Segment.Index, cur.Segment.Index)
			}
		}
	}
}

func TestQueryZeroVector(t *testing.T) {
	ix, err := Build(segments(3), [][]float32{{1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)

	res, err := ix.Query([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, 0, res[0].Segment.Index)
	assert.Equal(t, 1, res[1].Segment.Index)
	assert.Zero(t, res[0].Score)
}

func TestQueryWrongDimension(t *testing.T) {
	ix, err := Build(segments(1), [][]float32{{1, 0}})
	require.NoError(t, err)

	_, err = ix.Query([]float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestQueryNonPositiveK(t *testing.T) {
	ix, err := Build(segments(1), [][]float32{{1}})
	require.NoError(t, err)

	res, err := ix.Query([]float32{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestIndexIsImmutable(t *testing.T) {
	segs := segments(1)
	vecs := [][]float32{{1, 0}}
	ix, err := Build(segs, vecs)
	require.NoError(t, err)

	segs[0].Text = "changed"
	vecs[0][0] = -1
	out := ix.Segments()
	out[0].Text = "changed again"

	res, err := ix.Query([]float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", res[0].Segment.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
}
