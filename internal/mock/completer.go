package mock

import (
	"context"
	"sync"
)

// CompleteCall records the arguments of one Complete call.
type CompleteCall struct {
	SystemPrompt string
	Passage      string
	Question     string
}

// Completer is a test double for domain.Completer.
type Completer struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Reply (or "ok") is returned.
	CompleteFunc func(ctx context.Context, systemPrompt, passage, question string) (string, error)
	Reply        string

	mu    sync.Mutex
	calls []CompleteCall
}

func NewCompleter(reply string) *Completer {
	return &Completer{Reply: reply}
}

func (m *Completer) Complete(ctx context.Context, systemPrompt, passage, question string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompleteCall{SystemPrompt: systemPrompt, Passage: passage, Question: question})
	m.mu.Unlock()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, passage, question)
	}
	if m.Reply == "" {
		return "ok", nil
	}
	return m.Reply, nil
}

// Calls returns a copy of the recorded calls.
func (m *Completer) Calls() []CompleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleteCall(nil), m.calls...)
}

// CallCount returns the number of Complete calls.
func (m *Completer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call and whether there was one.
func (m *Completer) LastCall() (CompleteCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return CompleteCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}
