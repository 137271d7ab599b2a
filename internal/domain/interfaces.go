package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Vectors produced by one embedder share a fixed dimensionality.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Preparer is implemented by embedders that must see the corpus before they
// can embed (TF-IDF). Prepare returns a new embedder fitted to the corpus and
// leaves the receiver untouched.
type Preparer interface {
	Prepare(corpus []string) (Embedder, error)
}

// Chunker splits a document into ordered segments suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Segment, error)
}

// Completer issues one language-model completion. passage is the retrieved
// context block; it is empty on the ungrounded path.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, passage, question string) (string, error)
}

// Extractor turns raw uploaded bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
