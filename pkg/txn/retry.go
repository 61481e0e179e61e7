package txn

import (
	"context"
	"errors"
	"time"

	"github.com/cuemby/dstore/pkg/metrics"
)

// RunOptions configures Run's retry/timeout behaviour. A nil Retries
// means retry forever on conflict; a nil Timeout means never time out.
type RunOptions struct {
	Retries *int
	Timeout *time.Duration
}

// Run opens a transaction against host, invokes fn with it, and commits
// on a nil return. If fn (or the commit itself) reports ErrConflict, Run
// retries: opening a fresh Begin/End pair around the same underlying
// transaction, decrementing the retry budget and checking the deadline
// between attempts.
func Run(ctx context.Context, host Host, opts RunOptions, fn func(*Transaction) error) error {
	if opts.Retries != nil && *opts.Retries < 0 {
		return ErrInvalidRetries
	}
	if opts.Timeout != nil && *opts.Timeout < 0 {
		return ErrInvalidTimeout
	}

	var deadline time.Time
	hasDeadline := opts.Timeout != nil
	if hasDeadline {
		deadline = time.Now().Add(*opts.Timeout)
	}

	remaining := -1
	if opts.Retries != nil {
		remaining = *opts.Retries
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tr := host.CurrentTransaction().Begin()
		runErr := fn(tr)
		endErr := tr.End(ctx, runErr)
		attempts++

		err := runErr
		if err == nil {
			err = endErr
		}

		if err == nil {
			metrics.TransactionRetries.Observe(float64(attempts - 1))
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}

		if opts.Retries != nil {
			remaining--
			if remaining <= 0 {
				metrics.TransactionRetries.Observe(float64(attempts))
				return ErrRetriesExceeded
			}
		}
		if hasDeadline && time.Now().After(deadline) {
			metrics.TransactionTimeoutsTotal.Inc()
			metrics.TransactionRetries.Observe(float64(attempts))
			return ErrTimeout
		}
	}
}
