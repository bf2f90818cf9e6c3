package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"docinsight-backend/internal/shared/metrics"
)

// RetryPolicy bounds how often a failing inference call is re-attempted.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultRetryPolicy retries up to 3 attempts total with a fixed 2s pause
// between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff: func(attempt int) time.Duration {
			_ = attempt
			return 2 * time.Second
		},
	}
}

// RetryingClient wraps a Client with a bounded retry policy. A transport or
// provider error and an empty response body both consume one attempt; after
// the final attempt the last error is surfaced as-is, wrapped with the
// attempt count.
type RetryingClient struct {
	Base      Client
	Policy    RetryPolicy
	RequestID string

	// Sleep is overridable for tests; the default honors ctx cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps base with the given policy.
func NewRetrying(base Client, policy RetryPolicy, requestID string) *RetryingClient {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &RetryingClient{
		Base:      base,
		Policy:    policy,
		RequestID: requestID,
		Sleep:     sleepCtx,
	}
}

// Generate calls the underlying client with up to Policy.MaxAttempts attempts.
func (r *RetryingClient) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.Policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncInferenceRetry()
			log.Printf("inference retry attempt=%d request_id=%s error=%s", attempt, r.RequestID, singleLine(lastErr))
			delay := time.Duration(0)
			if r.Policy.Backoff != nil {
				delay = r.Policy.Backoff(attempt - 1)
			}
			sleep := r.Sleep
			if sleep == nil {
				sleep = sleepCtx
			}
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		resp, err := r.Base.Generate(ctx, prompt)
		if err == nil && strings.TrimSpace(resp) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("inference failed after %d attempts: %w", r.Policy.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func singleLine(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	return strings.ReplaceAll(msg, "\r", " ")
}

var _ Client = (*RetryingClient)(nil)
