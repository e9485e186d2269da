package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Caller wraps a Client with bounded, back-to-back retries. Each attempt runs
// under its own timeout; the first success wins, and every failure is logged
// with its cause. Callers receive an error only after exhaustion.
type Caller struct {
	client         Client
	maxRetries     int
	attemptTimeout time.Duration
	logger         *zap.Logger
}

// CallerConfig configures the retry wrapper.
type CallerConfig struct {
	MaxRetries     int           // defaults to 3
	AttemptTimeout time.Duration // defaults to 30s
}

// NewCaller wraps a client. A nil logger is replaced with a no-op one.
func NewCaller(client Client, cfg CallerConfig, logger *zap.Logger) *Caller {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{
		client:         client,
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: cfg.AttemptTimeout,
		logger:         logger,
	}
}

// Call runs up to maxRetries attempts with no inter-attempt delay and returns
// the first non-empty response.
func (c *Caller) Call(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		text, err := c.client.Call(attemptCtx, prompt)
		cancel()

		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyResponse
		}
		lastErr = err
		c.logger.Warn("backend call failed",
			zap.String("backend", c.client.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", c.maxRetries),
			zap.Error(err))

		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", c.client.Name(), ctx.Err())
		}
	}
	return "", fmt.Errorf("%s: all %d attempts failed: %w", c.client.Name(), c.maxRetries, lastErr)
}
