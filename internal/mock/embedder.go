// Package mock provides test doubles for the backend ports.
package mock

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
)

// Embedder is a test double for domain.Embedder.
// It allows custom behavior injection via EmbedFunc.
type Embedder struct {
	// EmbedFunc is called by Embed if set.
	// If nil, a deterministic bag-of-words vector is returned.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// Dim is the length of default vectors; 64 when zero.
	Dim int

	calls atomic.Int64
}

// NewEmbedder creates a mock embedder with default deterministic behavior.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

func (m *Embedder) Name() string { return "mock" }

// Embed counts the call and returns EmbedFunc's result or a default vector.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	dim := m.Dim
	if dim == 0 {
		dim = 64
	}
	return BagOfWords(text, dim), nil
}

// CallCount returns the number of Embed calls.
func (m *Embedder) CallCount() int {
	return int(m.calls.Load())
}

// Reset clears the call count.
func (m *Embedder) Reset() {
	m.calls.Store(0)
}

// BagOfWords hashes each lower-cased word of text into one of dim buckets.
// Texts sharing words get a positive cosine similarity.
func BagOfWords(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(dim)]++
	}
	return vec
}
