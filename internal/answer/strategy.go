// Package answer composes grounded and ungrounded answers behind one contract.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vacciassist/internal/domain"
)

const (
	DefaultGroundedPrompt = "You are Vacci-Assist, a vaccination assistant. Answer ONLY using the context below. " +
		"If the context does not contain the answer, say that the uploaded document does not cover it.\n\n{context}"
	DefaultGeneralPrompt = "You are a vaccination assistant. Answer based on general health knowledge " +
		"and recommend confirming with a health professional."

	// ContextPlaceholder marks where the retrieved context goes in a prompt.
	ContextPlaceholder = "{context}"
)

// Strategy produces an answer for a question.
type Strategy interface {
	Answer(ctx context.Context, question string, segments []domain.Segment) (domain.Answer, error)
}

// GroundedStrategy answers from the retrieved segments only.
type GroundedStrategy struct {
	completer domain.Completer
	prompt    string
	maxTokens int
	count     TokenCounter
}

func NewGroundedStrategy(c domain.Completer, prompt string, maxTokens int, count TokenCounter) *GroundedStrategy {
	if prompt == "" {
		prompt = DefaultGroundedPrompt
	}
	if count == nil {
		count = ApproxTokens
	}
	return &GroundedStrategy{completer: c, prompt: prompt, maxTokens: maxTokens, count: count}
}

func (s *GroundedStrategy) Answer(ctx context.Context, question string, segments []domain.Segment) (domain.Answer, error) {
	passage := BuildContext(segments, s.maxTokens, s.count)
	text, err := complete(ctx, s.completer, s.prompt, passage, question)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Text: text, Grounded: true, Sources: segments}, nil
}

// UngroundedStrategy answers from general knowledge.
type UngroundedStrategy struct {
	completer domain.Completer
	prompt    string
}

func NewUngroundedStrategy(c domain.Completer, prompt string) *UngroundedStrategy {
	if prompt == "" {
		prompt = DefaultGeneralPrompt
	}
	return &UngroundedStrategy{completer: c, prompt: prompt}
}

func (s *UngroundedStrategy) Answer(ctx context.Context, question string, _ []domain.Segment) (domain.Answer, error) {
	text, err := complete(ctx, s.completer, s.prompt, "", question)
	if err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{Text: text, Grounded: false}, nil
}

func complete(ctx context.Context, c domain.Completer, prompt, passage, question string) (string, error) {
	text, err := c.Complete(ctx, prompt, passage, question)
	if err != nil {
		if errors.Is(err, domain.ErrCompletion) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrCompletion)
	}
	return text, nil
}

// Config configures a Composer.
type Config struct {
	GroundedPrompt   string
	GeneralPrompt    string
	MaxContextTokens int
	Counter          TokenCounter
}

// Composer picks the grounded strategy when segments were retrieved and the
// ungrounded one otherwise.
type Composer struct {
	grounded   Strategy
	ungrounded Strategy
	logger     *slog.Logger
}

func NewComposer(c domain.Completer, cfg Config) *Composer {
	return &Composer{
		grounded:   NewGroundedStrategy(c, cfg.GroundedPrompt, cfg.MaxContextTokens, cfg.Counter),
		ungrounded: NewUngroundedStrategy(c, cfg.GeneralPrompt),
		logger:     slog.Default().With("component", "composer"),
	}
}

// Select returns the strategy for the retrieved segments.
func (c *Composer) Select(segments []domain.Segment) Strategy {
	if len(segments) > 0 {
		return c.grounded
	}
	return c.ungrounded
}

// Answer runs the selected strategy. Backend failures wrap domain.ErrCompletion
// and are never replaced by a made-up answer.
func (c *Composer) Answer(ctx context.Context, question string, segments []domain.Segment) (domain.Answer, error) {
	start := time.Now()
	ans, err := c.Select(segments).Answer(ctx, question, segments)
	if err != nil {
		c.logger.Error("completion failed", "grounded", len(segments) > 0, "err", err)
		return domain.Answer{}, err
	}
	c.logger.Info("answer composed", "grounded", ans.Grounded, "segments", len(segments), "took", time.Since(start))
	return ans, nil
}

const (
	groundedFooter   = "*Source: uploaded document*"
	ungroundedFooter = "*Source: general knowledge*"
)

// WithAttribution appends a footer naming where the answer came from.
func WithAttribution(ans domain.Answer) string {
	footer := ungroundedFooter
	if ans.Grounded {
		footer = groundedFooter
	}
	return ans.Text + "\n\n" + footer
}

// RenderPrompt places passage into prompt at ContextPlaceholder, or after it
// when the prompt has no placeholder.
func RenderPrompt(prompt, passage string) string {
	if strings.Contains(prompt, ContextPlaceholder) {
		return strings.ReplaceAll(prompt, ContextPlaceholder, passage)
	}
	if passage == "" {
		return prompt
	}
	return prompt + "\n\n" + passage
}
