package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacciassist/internal/domain"
	"vacciassist/internal/mock"
	"vacciassist/internal/vectorstore/memory"
)

func build(t *testing.T, emb domain.Embedder, texts ...string) *memory.Index {
	t.Helper()
	segments := make([]domain.Segment, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		segments[i] = domain.Segment{DocumentID: "doc", Text: text, Index: i}
		vec, err := emb.Embed(context.Background(), text)
		require.NoError(t, err)
		vectors[i] = vec
	}
	ix, err := memory.Build(segments, vectors)
	require.NoError(t, err)
	return ix
}

func TestRetrieveBestFirst(t *testing.T) {
	emb := mock.NewEmbedder()
	ix := build(t, emb,
		"Store the vial in the refrigerator.",
		"Vaccine X requires two doses 30 days apart.",
		"Report adverse events to your doctor.",
	)
	r := New(ix, emb, WithTopK(2))

	segments, err := r.Retrieve(context.Background(), "How many doses of Vaccine X?")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 1, segments[0].Index)
}

func TestRetrieveDefaultTopK(t *testing.T) {
	emb := mock.NewEmbedder()
	ix := build(t, emb, "a", "b", "c", "d", "e", "f")

	segments, err := New(ix, emb).Retrieve(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, segments, DefaultTopK)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	emb := mock.NewEmbedder()
	ix := build(t, emb, "a")
	emb.EmbedFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("timeout")
	}

	_, err := New(ix, emb).Retrieve(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
}

func TestLexicalFallbackOnZeroQuery(t *testing.T) {
	emb := mock.NewEmbedder()
	ix := build(t, emb, "first segment", "yellow fever at nine months", "third segment")
	emb.EmbedFunc = func(context.Context, string) ([]float32, error) {
		return make([]float32, 64), nil
	}

	results, err := New(ix, emb, WithTopK(3)).Search(context.Background(), "yellow fever")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].Segment.Index)
	assert.Greater(t, results[0].Score, 0.0)
	// the remaining zero scores keep document order
	assert.Equal(t, 0, results[1].Segment.Index)
	assert.Equal(t, 2, results[2].Segment.Index)
}

func TestMinScore(t *testing.T) {
	emb := mock.NewEmbedder()
	ix := build(t, emb, "measles rubella", "yellow fever")

	results, err := New(ix, emb, WithMinScore(0.5)).Search(context.Background(), "yellow fever")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "yellow fever", results[0].Segment.Text)
}

func TestOchiai(t *testing.T) {
	a := tokenSet("two doses")
	assert.InDelta(t, 1.0, ochiai(a, tokenSet("Doses two")), 1e-9)
	assert.Zero(t, ochiai(a, tokenSet("")))
	assert.InDelta(t, 0.5, ochiai(a, tokenSet("two apart")), 1e-9)
}
