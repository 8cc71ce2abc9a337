// ABOUTME: Retry loop and rate limiting shared by the remote model clients
// ABOUTME: Each attempt gets its own timeout; permanent errors stop retrying early
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docchat/internal/util"
	"golang.org/x/time/rate"
)

type retryPolicy struct {
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	limiter    *rate.Limiter
	permanent  func(error) bool
	logger     *log.Logger
}

// newLimiter returns nil when perSecond is zero, meaning unlimited.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := max(1, int(perSecond))
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// do runs fn until it succeeds, fails permanently, ctx ends or retries run out.
func (p retryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(p.retryDelay, attempt)); err != nil {
				return fmt.Errorf("%s cancelled after %d attempts: %w", op, attempt, lastErr)
			}
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s: rate limiter: %w", op, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if ctx.Err() != nil || (p.permanent != nil && p.permanent(err)) {
			return fmt.Errorf("failed to %s: %w", op, lastErr)
		}
		if p.logger != nil && attempt < p.maxRetries {
			p.logger.Warn("model call failed, retrying", "op", op, "attempt", attempt+1, "err", err)
		}
	}

	return fmt.Errorf("failed to %s after %d attempts: %w", op, p.maxRetries+1, lastErr)
}
