package db

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// TxOptions controls RunInTx. MaxRetries counts retries after the first attempt.
type TxOptions struct {
	IsoLevel        pgx.TxIsoLevel
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	OnRetry         func(err error, attempt int)
}

// IsRetryable reports whether err is a transient transaction conflict that is
// safe to retry from the beginning of the transaction.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// RunInTx runs fn inside a transaction and commits it. Serialization failures and
// deadlocks restart the whole transaction with exponential backoff; once retries
// are exhausted the last error is returned unchanged so callers can classify it
// with IsRetryable.
func RunInTx(ctx context.Context, pool *Pool, opts TxOptions, fn func(pgx.Tx) error) error {
	return Retry(ctx, opts, func() error {
		tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: opts.IsoLevel})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// Retry applies the RunInTx retry policy to an arbitrary attempt function.
func Retry(ctx context.Context, opts TxOptions, attemptFn func() error) error {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	if b.InitialInterval <= 0 {
		b.InitialInterval = 25 * time.Millisecond
	}
	b.MaxInterval = opts.MaxInterval
	if b.MaxInterval <= 0 {
		b.MaxInterval = 400 * time.Millisecond
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := attemptFn()
		if err == nil {
			return struct{}{}, nil
		}
		if !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if opts.OnRetry != nil && attempt <= opts.MaxRetries {
			opts.OnRetry(err, attempt)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(opts.MaxRetries+1)))
	return err
}
