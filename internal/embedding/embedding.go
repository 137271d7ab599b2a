// Package embedding holds helpers shared by all embedder implementations.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"vacciassist/internal/domain"
)

// Wrap marks err as an embedding failure unless it already is one.
func Wrap(err error) error {
	if err == nil || errors.Is(err, domain.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
}

// EmbedAll embeds texts on a bounded worker pool and returns the vectors in
// input order. The first failure cancels the remaining work.
func EmbedAll(ctx context.Context, emb domain.Embedder, texts []string, concurrency int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	if concurrency <= 1 || len(texts) == 1 {
		for i, text := range texts {
			vec, err := emb.Embed(ctx, text)
			if err != nil {
				return nil, Wrap(fmt.Errorf("segment %d: %w", i, err))
			}
			vectors[i] = vec
		}
		return vectors, nil
	}

	pool, err := ants.NewPool(min(concurrency, len(texts)))
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}
	for i, text := range texts {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if workCtx.Err() != nil {
				return
			}
			vec, err := emb.Embed(workCtx, text)
			if err != nil {
				fail(fmt.Errorf("segment %d: %w", i, err))
				return
			}
			vectors[i] = vec
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit segment %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, Wrap(firstErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, Wrap(err)
	}
	return vectors, nil
}

// Retrying retries failed Embed calls with exponential backoff.
type Retrying struct {
	next      domain.Embedder
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// WithRetry wraps emb so each Embed call is attempted up to attempts times.
// attempts <= 1 returns emb unchanged.
func WithRetry(emb domain.Embedder, attempts int, baseDelay time.Duration) domain.Embedder {
	if attempts <= 1 {
		return emb
	}
	return &Retrying{
		next:      emb,
		attempts:  attempts,
		baseDelay: baseDelay,
		logger:    slog.Default().With("component", "embedder-retry", "embedder", emb.Name()),
	}
}

func (r *Retrying) Name() string { return r.next.Name() }

// Prepare keeps the retry policy on corpus-fitted embedders.
func (r *Retrying) Prepare(corpus []string) (domain.Embedder, error) {
	p, ok := r.next.(domain.Preparer)
	if !ok {
		return r, nil
	}
	prepared, err := p.Prepare(corpus)
	if err != nil {
		return nil, err
	}
	return WithRetry(prepared, r.attempts, r.baseDelay), nil
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := r.baseDelay
	for attempt := 1; attempt <= r.attempts; attempt++ {
		vec, err := r.next.Embed(ctx, text)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return vec, nil
		}
		lastErr = err
		if attempt == r.attempts {
			break
		}
		r.logger.Debug("embedding failed, will retry", "attempt", attempt, "max_attempts", r.attempts, "err", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return nil, lastErr
}
