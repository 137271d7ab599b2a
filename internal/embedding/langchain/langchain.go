// Package langchain adapts langchaingo embedding clients (OpenAI, Ollama) to
// the domain.Embedder port.
package langchain

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"

	"vacciassist/internal/embedding"
)

// Embedder embeds text through a remote embedding model.
type Embedder struct {
	name     string
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// New wraps client. name identifies the backend in logs.
func New(name string, client embeddings.EmbedderClient) (*Embedder, error) {
	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		name:     name,
		embedder: e,
		logger:   slog.Default().With("component", "embedder", "backend", name),
	}, nil
}

func (e *Embedder) Name() string { return e.name }

// Embed returns the vector for text. Failures wrap domain.ErrEmbedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", "length", len(text))
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, embedding.Wrap(err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, embedding.Wrap(errors.New("backend returned an empty vector"))
	}
	return vectors[0], nil
}
