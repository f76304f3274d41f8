// Package reset drops every base table of a schema and re-applies a schema
// script, each phase inside its own transaction with foreign-key checks
// suspended.
//
// Rollback of DDL depends on the engine: PostgreSQL and SQLite undo it,
// MySQL commits every DDL statement implicitly. Dialect.TransactionalDDL
// tells which applies.
package reset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tordrt/dbreset/internal/db"
)

// Engine runs the reset and apply phases on a session it does not own.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger}
}

// unit runs body in a transaction with foreign-key checks suspended.
//
// Suspension and restoration run on the session, outside the transaction:
// SQLite ignores PRAGMA foreign_keys inside one. Restoration therefore
// happens after COMMIT or ROLLBACK. A failed restoration is logged only; the
// setting dies with the session.
func (e *Engine) unit(ctx context.Context, sess db.Session, body func(tx db.Tx) error) error {
	d := sess.Dialect()

	if d.SuspendForeignKeys != "" {
		if err := sess.Exec(ctx, d.SuspendForeignKeys); err != nil {
			return fmt.Errorf("failed to suspend foreign key checks: %w", err)
		}
		defer func() {
			if err := sess.Exec(context.WithoutCancel(ctx), d.RestoreForeignKeys); err != nil {
				e.logger.Warn("failed to restore foreign key checks", "error", err)
			}
		}()
	}

	tx, err := sess.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if d.TxPrelude != "" {
		if err := tx.Exec(ctx, d.TxPrelude); err != nil {
			e.rollback(ctx, tx)
			return fmt.Errorf("failed to prepare transaction: %w", err)
		}
	}

	if err := body(tx); err != nil {
		e.rollback(ctx, tx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (e *Engine) rollback(ctx context.Context, tx db.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		e.logger.Warn("rollback failed", "error", err)
		return
	}
	e.logger.Debug("transaction rolled back")
}

// ListTables returns the base tables of the session's schema without
// changing anything.
func (e *Engine) ListTables(ctx context.Context, q db.Executor, d db.Dialect) ([]string, error) {
	query, args := d.ListTablesQuery()
	rs, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return rs.Column(0), nil
}
