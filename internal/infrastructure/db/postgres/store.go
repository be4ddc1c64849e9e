package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videorental/rental-lifecycle/internal/core/ports"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type txKey struct{}

// Store implements ports.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ ports.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// q returns the transaction carried by ctx, or the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return s.pool
}

// WithinTx runs fn in a READ COMMITTED transaction. Conditional updates and
// FOR UPDATE reads provide the row-level guarantees; nested calls join the
// outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.within(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// WithinSnapshot runs fn in a read-only REPEATABLE READ transaction, so every
// statement sees the snapshot taken by the first one.
func (s *Store) WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.within(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (s *Store) within(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return classify("begin", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return classify("commit", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return classify("ping", s.pool.Ping(ctx))
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// exec runs a built statement and returns the affected row count.
func (s *Store) exec(ctx context.Context, op string, sql string, args []interface{}, buildErr error) (int64, error) {
	if buildErr != nil {
		return 0, fmt.Errorf("%s: build query: %w", op, buildErr)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := s.q(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, classify(op, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) count(ctx context.Context, op string, sql string, args []interface{}, buildErr error) (int, error) {
	if buildErr != nil {
		return 0, fmt.Errorf("%s: build query: %w", op, buildErr)
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var n int
	if err := s.q(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, table, id string) (bool, error) {
	sql, args, err := existsQuery(table, id)
	n, err := s.count(ctx, "lookup "+table, sql, args, err)
	return n > 0, err
}
