package ai

import (
	"context"
	"errors"
	"time"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/ports/adapter"
	"lecture-script-service/internal/infra/metrics"
)

var _ adapter.AIServiceAdapter = (*retryingAI)(nil)

// retryingAI retries rate-limited calls with exponential backoff. Only
// rate-limit responses are retried; every other failure surfaces at once.
type retryingAI struct {
	inner      adapter.AIServiceAdapter
	provider   string
	maxRetries int
	baseDelay  time.Duration
}

func NewRetryingAI(inner adapter.AIServiceAdapter, provider string, maxRetries int, baseDelay time.Duration) adapter.AIServiceAdapter {
	if maxRetries <= 0 {
		return inner
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &retryingAI{inner: inner, provider: provider, maxRetries: maxRetries, baseDelay: baseDelay}
}

func (r *retryingAI) ListModels(ctx context.Context) ([]string, error) {
	return r.inner.ListModels(ctx)
}

func (r *retryingAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := r.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (r *retryingAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.IncAIRetry(r.provider)
			wait := r.baseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", adapter.Usage{}, ctx.Err()
			case <-time.After(wait):
			}
		}
		reply, usage, err := r.inner.ChatWithUsage(ctx, model, messages)
		if err == nil {
			return reply, usage, nil
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			return "", adapter.Usage{}, err
		}
		lastErr = err
	}
	return "", adapter.Usage{}, lastErr
}
