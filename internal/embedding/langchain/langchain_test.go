package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"vacciassist/internal/domain"
)

func TestEmbed(t *testing.T) {
	var got []string
	client := embeddings.EmbedderClientFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		got = append(got, texts...)
		return [][]float32{{0.1, 0.2, 0.3}}, nil
	})
	e, err := New("fake", client)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "two\ndoses")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, []string{"two doses"}, got, "newlines are stripped")
	assert.Equal(t, "fake", e.Name())
}

func TestEmbedFailure(t *testing.T) {
	client := embeddings.EmbedderClientFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("401 unauthorized")
	})
	e, err := New("fake", client)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
	assert.Contains(t, err.Error(), "401")
}
