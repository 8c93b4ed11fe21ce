package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"jobapply-backend/internal/shared/telemetry"
)

const defaultRetryDelay = 300 * time.Millisecond

type retrying struct {
	base     Generator
	attempts int
	delay    time.Duration
}

// WithRetry wraps base so transient provider failures are retried up to retries
// extra times. It belongs at the composition root; pipelines stay single-shot.
func WithRetry(base Generator, retries int, delay time.Duration) Generator {
	if base == nil || retries <= 0 {
		return base
	}
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return retrying{base: base, attempts: retries, delay: delay}
}

func (r retrying) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := r.base.Generate(ctx, prompt)
	for attempt := 1; attempt <= r.attempts && err != nil && ShouldRetry(err); attempt++ {
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt,
			"error":   err,
		})
		select {
		case <-time.After(r.delay * time.Duration(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		out, err = r.base.Generate(ctx, prompt)
	}
	return out, err
}

// ShouldRetry reports whether err looks like a transient provider failure.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") ||
		strings.Contains(msg, "error 500") || strings.Contains(msg, "error 503") || strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof")
}
