// Package session holds the per-user conversation state: the current
// document index and the message history.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"vacciassist/internal/answer"
	"vacciassist/internal/domain"
	"vacciassist/internal/embedding"
	"vacciassist/internal/retriever"
	"vacciassist/internal/vectorstore"
	"vacciassist/internal/vectorstore/memory"
)

// Answerer composes an answer from a question and retrieved segments.
type Answerer interface {
	Answer(ctx context.Context, question string, segments []domain.Segment) (domain.Answer, error)
}

// Deps are the collaborators a session drives.
type Deps struct {
	Extractor  domain.Extractor
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Answerer   Answerer
	Summarizer domain.Summarizer // optional
}

// Config holds the session policy knobs.
type Config struct {
	TopK             int
	MinScore         float64
	Concurrency      int
	Greeting         string
	Attribution      bool
	SummarySentences int
}

// DocumentInfo describes the document behind the current index.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hash      string    `json:"sha256"`
	Segments  int       `json:"segments"`
	Summary   string    `json:"summary,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
}

// UploadResult reports what Upload did.
type UploadResult struct {
	Document DocumentInfo
	// Reused is true when the upload matched the indexed document and
	// nothing was re-embedded.
	Reused bool
}

// Session is the state machine behind one conversation. It starts Empty,
// becomes Indexed after a successful upload and stays Indexed, with a new
// index, after each upload of a different document. A Session is not safe
// for concurrent use; Store serialises access per session.
type Session struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger

	retriever *retriever.Retriever
	document  DocumentInfo
	messages  []domain.Message
}

func New(deps Deps, cfg Config) *Session {
	if cfg.TopK <= 0 {
		cfg.TopK = retriever.DefaultTopK
	}
	s := &Session{
		deps:   deps,
		cfg:    cfg,
		logger: slog.Default().With("component", "session"),
	}
	s.resetHistory()
	return s
}

// Upload indexes the document unless it is the one already indexed (same
// name and content). On any failure the previous index stays in place.
func (s *Session) Upload(ctx context.Context, name string, data []byte) (UploadResult, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if s.retriever != nil && s.document.Name == name && s.document.Hash == hash {
		s.logger.Debug("document already indexed", "name", name)
		return UploadResult{Document: s.document, Reused: true}, nil
	}

	start := time.Now()
	text, err := s.deps.Extractor.Extract(ctx, name, data)
	if err != nil {
		return UploadResult{}, ingestionError(err)
	}
	doc := domain.Document{ID: hash[:16], Name: name, Content: text}

	segments, err := s.deps.Chunker.Chunk(doc)
	if err != nil {
		return UploadResult{}, ingestionError(err)
	}
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	emb := s.deps.Embedder
	if p, ok := emb.(domain.Preparer); ok && len(texts) > 0 {
		if emb, err = p.Prepare(texts); err != nil {
			return UploadResult{}, embedding.Wrap(fmt.Errorf("prepare embedder: %w", err))
		}
	}
	vectors, err := embedding.EmbedAll(ctx, emb, texts, s.cfg.Concurrency)
	if err != nil {
		return UploadResult{}, err
	}
	ix, err := memory.Build(segments, vectors)
	if err != nil {
		return UploadResult{}, err
	}

	info := DocumentInfo{
		ID:        doc.ID,
		Name:      name,
		Hash:      hash,
		Segments:  len(segments),
		IndexedAt: time.Now(),
	}
	if s.deps.Summarizer != nil && strings.TrimSpace(text) != "" {
		if summary, err := s.deps.Summarizer.Summarize(text, s.cfg.SummarySentences); err != nil {
			s.logger.Warn("summarize failed", "name", name, "err", err)
		} else {
			info.Summary = summary
		}
	}

	s.retriever = retriever.New(ix, emb, retriever.WithTopK(s.cfg.TopK), retriever.WithMinScore(s.cfg.MinScore))
	s.document = info
	s.logger.Info("document indexed",
		"name", name, "segments", len(segments), "dimension", ix.Dimension(), "took", time.Since(start))
	return UploadResult{Document: info}, nil
}

// Ask answers question, grounding it in the current document when one is
// indexed and retrieval finds segments. The question is appended to the
// history first; the answer is appended only on success.
func (s *Session) Ask(ctx context.Context, question string) (domain.Answer, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return domain.Answer{}, domain.ErrEmptyQuestion
	}
	s.messages = append(s.messages, domain.UserMessage(q))

	var segments []domain.Segment
	if s.retriever != nil && s.retriever.Index().Len() > 0 {
		var err error
		if segments, err = s.retriever.Retrieve(ctx, q); err != nil {
			return domain.Answer{}, err
		}
	}

	ans, err := s.deps.Answerer.Answer(ctx, q, segments)
	if err != nil {
		return domain.Answer{}, err
	}
	content := ans.Text
	if s.cfg.Attribution {
		content = answer.WithAttribution(ans)
	}
	s.messages = append(s.messages, domain.AssistantMessage(content))
	return ans, nil
}

// Messages returns a copy of the history in insertion order.
func (s *Session) Messages() []domain.Message {
	return slices.Clone(s.messages)
}

// HasIndex reports whether a document has been indexed.
func (s *Session) HasIndex() bool { return s.retriever != nil }

// Index returns the current index, or nil when the session is Empty.
func (s *Session) Index() vectorstore.Index {
	if s.retriever == nil {
		return nil
	}
	return s.retriever.Index()
}

// Document returns the indexed document and whether there is one.
func (s *Session) Document() (DocumentInfo, bool) {
	return s.document, s.retriever != nil
}

// Summary returns the extractive summary of the indexed document, if any.
func (s *Session) Summary() string { return s.document.Summary }

// ClearHistory drops all messages, keeping the greeting. The index is kept.
func (s *Session) ClearHistory() {
	s.resetHistory()
}

func (s *Session) resetHistory() {
	s.messages = nil
	if s.cfg.Greeting != "" {
		s.messages = append(s.messages, domain.AssistantMessage(s.cfg.Greeting))
	}
}

func ingestionError(err error) error {
	if errors.Is(err, domain.ErrIngestion) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrIngestion, err)
}
