package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestPrepareReturnsFittedCopy(t *testing.T) {
	base := NewEmbedder()
	fitted, err := base.Prepare([]string{"Vaccine X requires two doses.", "Yellow fever vaccine at nine months."})
	require.NoError(t, err)

	_, err = base.Embed(context.Background(), "vaccine")
	assert.Error(t, err, "base embedder stays unprepared")

	vec, err := fitted.Embed(context.Background(), "vaccine doses")
	require.NoError(t, err)
	assert.Len(t, vec, fitted.(*Embedder).Dimension())
	assert.InDelta(t, 1.0, norm(vec), 1e-5)
}

func TestEmbedUnknownWordsIsZero(t *testing.T) {
	fitted, err := NewEmbedder().Prepare([]string{"measles mumps rubella"})
	require.NoError(t, err)

	vec, err := fitted.Embed(context.Background(), "the and of")
	require.NoError(t, err)
	assert.Zero(t, norm(vec))
}

func TestPrepareEmptyCorpus(t *testing.T) {
	_, err := NewEmbedder().Prepare(nil)
	assert.Error(t, err)
}

func TestNumbersAreTokens(t *testing.T) {
	fitted, err := NewEmbedder().Prepare([]string{"30 dias", "60 dias"})
	require.NoError(t, err)
	assert.Equal(t, 3, fitted.(*Embedder).Dimension())
}

func TestSimilarTextScoresHigher(t *testing.T) {
	corpus := []string{
		"Vaccine X requires two doses 30 days apart.",
		"Store the vial between 2 and 8 degrees.",
	}
	fitted, err := NewEmbedder().Prepare(corpus)
	require.NoError(t, err)

	q, _ := fitted.Embed(context.Background(), "How many doses of Vaccine X?")
	a, _ := fitted.Embed(context.Background(), corpus[0])
	b, _ := fitted.Embed(context.Background(), corpus[1])

	dot := func(x, y []float32) float32 {
		var s float32
		for i := range x {
			s += x[i] * y[i]
		}
		return s
	}
	assert.Greater(t, dot(q, a), dot(q, b))
}
