// Package db opens and owns the single database session a run works on.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tordrt/dbreset/internal/config"
)

// Executor runs SQL and returns rows or an error. Errors are returned as the
// driver produced them.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
}

// Tx is an open transaction on a Session.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Session is one live server connection bound to the target schema.
// It is not safe for concurrent use.
type Session interface {
	Executor
	Dialect() Dialect
	Begin(ctx context.Context) (Tx, error)
	Close(ctx context.Context) error
}

// Opener establishes a Session. Open is the production implementation.
type Opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Session, error)

// ResultSet is a fully materialised query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Column returns the values of column i rendered as strings.
func (r *ResultSet) Column(i int) []string {
	out := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if i >= len(row) {
			continue
		}
		out = append(out, FormatValue(row[i]))
	}
	return out
}

// FormatValue renders a scanned value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// ConnectionError reports a session that could not be established or
// validated. It never carries the password.
type ConnectionError struct {
	Engine  string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s at %s: %v", e.Engine, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Open connects to the engine named in cfg, pings it and pins one
// connection. cfg must already be validated.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		sess Session
		err  error
	)
	switch cfg.Engine {
	case config.EngineMySQL:
		sess, err = NewMySQLClient(ctx, cfg, logger)
	case config.EnginePostgres:
		sess, err = NewPostgresClient(ctx, cfg, logger)
	case config.EngineSQLite:
		sess, err = NewSQLiteClient(ctx, cfg.Database, logger)
	default:
		return nil, &config.Error{Err: fmt.Errorf("unsupported database type: %s", cfg.Engine)}
	}
	if err != nil {
		return nil, &ConnectionError{Engine: cfg.Engine, Address: cfg.Address(), Err: err}
	}

	logger.Debug("connection established", "config", cfg)
	return sess, nil
}

// WithSession opens a session, hands it to fn and closes it exactly once,
// whatever fn returns. A failed close is logged, not returned.
func WithSession(ctx context.Context, open Opener, cfg *config.Config, logger *slog.Logger, fn func(Session) error) error {
	if open == nil {
		open = Open
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sess, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close connection", "error", err)
			return
		}
		logger.Debug("connection closed")
	}()

	return fn(sess)
}

// ErrorCode extracts the server error code from a driver error, or "" when
// the driver does not provide one.
func ErrorCode(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Sprintf("%d", myErr.Number)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
