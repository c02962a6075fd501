package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
)

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeInvalidText        = "22P02"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PG is the PostgreSQL Store.
type PG struct {
	queries
	pool *db.Pool
	opts db.TxOptions
}

func NewPG(pool *db.Pool, opts db.TxOptions) *PG {
	return &PG{queries: queries{q: pool}, pool: pool, opts: opts}
}

func (s *PG) InTx(ctx context.Context, fn func(Queries) error) error {
	err := db.RunInTx(ctx, s.pool, s.opts, func(tx pgx.Tx) error {
		return fn(queries{q: tx})
	})
	if err != nil && db.IsRetryable(err) {
		return apperr.Transient(err)
	}
	return err
}

func (s *PG) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// queries implements Queries over a pool or a transaction.
type queries struct {
	q queryable
}

// mapErr translates driver errors into the package sentinels, keeping the cause.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeExclusionViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case codeInvalidText:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		}
	}
	return err
}

func (r queries) execAffected(ctx context.Context, sql string, args ...any) (bool, error) {
	tag, err := r.q.Exec(ctx, sql, args...)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r queries) count(ctx context.Context, sql string, args ...any) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
