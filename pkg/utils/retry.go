package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetConflictRetryOptions returns retry options for re-running a
// read-modify-write cycle after a version conflict.
func GetConflictRetryOptions(maxRetries uint64) RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  10 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     1 * time.Second,
		MaxRetries:      maxRetries,
	}
}

// GetThumbnailRetryOptions returns retry options for thumbnails that are
// still being rendered.
func GetThumbnailRetryOptions() RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  10 * time.Second,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxRetries:      5,
	}
}

// Permanent wraps err so that WithRetryValue stops retrying and returns it.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// WithRetryValue executes the given operation with exponential backoff using
// the provided options and returns its last result. Returning a Permanent
// error from the operation stops retrying immediately.
func WithRetryValue[T any](ctx context.Context, operation func() (T, error), opts RetryOptions) (T, error) {
	var result T

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	err := backoff.Retry(func() error {
		var err error
		result, err = operation()
		return err
	}, backoff.WithContext(b, ctx))

	return result, err
}
