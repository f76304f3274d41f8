package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// sqlQueryer is satisfied by *sql.Conn and *sql.Tx.
type sqlQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlExecutor struct {
	q sqlQueryer
}

func (e sqlExecutor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.q.ExecContext(ctx, query, args...)
	return err
}

func (e sqlExecutor) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}

	return rs, rows.Err()
}

// SQLSession is a Session over database/sql. It pins one *sql.Conn so that
// session variables such as FOREIGN_KEY_CHECKS or PRAGMA foreign_keys
// apply to every statement of the run.
type SQLSession struct {
	sqlExecutor
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	logger  *slog.Logger
	closed  bool
}

// NewSQLSession pings db and pins one of its connections. On failure db is
// closed.
func NewSQLSession(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (*SQLSession, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	return &SQLSession{
		sqlExecutor: sqlExecutor{q: conn},
		db:          db,
		conn:        conn,
		dialect:     dialect,
		logger:      logger,
	}, nil
}

// Dialect returns the engine dialect.
func (s *SQLSession) Dialect() Dialect {
	return s.dialect
}

// Begin starts a transaction on the pinned connection.
func (s *SQLSession) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{sqlExecutor: sqlExecutor{q: tx}, tx: tx}, nil
}

// Close releases the pinned connection and the pool. Calls after the first
// are no-ops.
func (s *SQLSession) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Debug("closing database connection", "engine", s.dialect.Name)
	return errors.Join(s.conn.Close(), s.db.Close())
}

type sqlTx struct {
	sqlExecutor
	tx *sql.Tx
}

func (t *sqlTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}
