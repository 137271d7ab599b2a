package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"vacciassist/internal/answer"
	"vacciassist/internal/domain"
)

// Completer implements domain.Completer on top of a langchaingo model.
type Completer struct {
	model       llms.Model
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewCompleter wraps model. timeout <= 0 means no deadline beyond ctx.
func NewCompleter(model llms.Model, temperature float64, timeout time.Duration) *Completer {
	return &Completer{
		model:       model,
		temperature: temperature,
		timeout:     timeout,
		logger:      slog.Default().With("component", "completer"),
	}
}

// Complete sends a system message (with passage rendered into it) and the
// question as the human message. Failures wrap domain.ErrCompletion.
func (c *Completer) Complete(ctx context.Context, systemPrompt, passage, question string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, answer.RenderPrompt(systemPrompt, passage)),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(c.temperature))
	if err != nil {
		c.logger.Error("completion request failed", "err", err, "took", time.Since(start))
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, errors.New("no choices in response"))
	}
	c.logger.Debug("completion received", "took", time.Since(start), "chars", len(resp.Choices[0].Content))
	return resp.Choices[0].Content, nil
}
