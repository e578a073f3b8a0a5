package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/tx"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/postgres")

var _ tx.SerializableManager = (*TxManager)(nil)

const (
	defaultStatementTimeout = 30 * time.Second
	serializableAttempts    = 3
)

// Querier is satisfied by both the pool and an open transaction, so
// repositories work the same inside and outside RunInTransaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// TxManager keeps the active pgx transaction in the context. Nested calls
// join the outer transaction.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// NewTxManager creates a transaction manager over pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool, statementTimeout: defaultStatementTimeout}
}

// WithStatementTimeout returns a copy of m whose transactions abort any
// statement running longer than d. Zero disables the limit.
func (m *TxManager) WithStatementTimeout(d time.Duration) *TxManager {
	c := *m
	c.statementTimeout = d
	return &c
}

// GetTx returns the transaction of ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// GetQuerier returns the transaction of ctx or, outside one, the pool.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if tx := m.GetTx(ctx); tx != nil {
		return tx
	}
	return m.pool
}

// RunInTransaction runs fn in a READ COMMITTED transaction and commits when
// fn returns nil.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}
	return m.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// RunSerializable runs fn under SERIALIZABLE isolation, retrying on
// serialization failures and deadlocks. Inside an existing transaction fn
// joins it and is not retried.
func (m *TxManager) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= serializableAttempts; attempt++ {
		err = m.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		logger.Warn(ctx, "serializable transaction conflict", "attempt", attempt, "error", err)

		backoff := time.Duration(attempt*50) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func (m *TxManager) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "postgres.transaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.isolation", string(opts.IsoLevel))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if m.statementTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", m.statementTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			rollback(ctx, tx, err)
			return fmt.Errorf("set statement timeout: %w", err)
		}
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		rollback(ctx, tx, err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rollback must complete even when ctx is already cancelled.
func rollback(ctx context.Context, tx pgx.Tx, cause error) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "rollback failed", "error", err, "cause", cause)
	}
}
