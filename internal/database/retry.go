package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retries (0 = unlimited)
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
	MaxElapsedTime  time.Duration // Maximum total time for retries
	Multiplier      float64       // Backoff multiplier
}

// QuickRetryConfig returns config for connection checks that should fail fast
func QuickRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:      3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  15 * time.Second,
		Multiplier:      2.0,
	}
}

// PreflightRetry is used by Preflight
var PreflightRetry = QuickRetryConfig()

// RetryOperation runs operation with exponential backoff until it succeeds,
// returns an error for which permanent is true, or the budget is spent.
// notify, when set, is called before each retry.
func RetryOperation(ctx context.Context, cfg *RetryConfig, operation func() error, permanent func(error) bool, notify func(err error, wait time.Duration)) error {
	if cfg == nil {
		cfg = QuickRetryConfig()
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.InitialInterval
	expBackoff.MaxInterval = cfg.MaxInterval
	expBackoff.MaxElapsedTime = cfg.MaxElapsedTime
	expBackoff.Multiplier = cfg.Multiplier
	expBackoff.Reset()

	var b backoff.BackOff = expBackoff
	if cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(expBackoff, uint64(cfg.MaxRetries))
	}
	b = backoff.WithContext(b, ctx)

	wrappedOp := func() error {
		err := operation()
		if err != nil && permanent != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if notify == nil {
		return backoff.Retry(wrappedOp, b)
	}
	return backoff.RetryNotify(wrappedOp, b, notify)
}
