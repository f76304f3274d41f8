package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tordrt/dbreset/internal/config"
)

// PostgresClient manages the connection to PostgreSQL
type PostgresClient struct {
	pgExecutor
	conn    *pgx.Conn
	dialect Dialect
	logger  *slog.Logger
	closed  bool
}

// NewPostgresClient creates a new PostgreSQL client bound to cfg.PGSchema.
func NewPostgresClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*PostgresClient, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := pgx.Connect(ctx, buildPostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schemaName := cfg.PGSchema
	if schemaName == "" {
		schemaName = config.DefaultPGSchema
	}

	// Unqualified names in the script resolve to the schema being reset.
	if _, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schemaName}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to set search_path to %s: %w", schemaName, err)
	}

	return &PostgresClient{
		pgExecutor: pgExecutor{q: conn},
		conn:       conn,
		dialect:    PostgresDialect(schemaName),
		logger:     logger,
	}, nil
}

// Dialect returns the PostgreSQL dialect bound to the client's schema.
func (c *PostgresClient) Dialect() Dialect {
	return c.dialect
}

// Begin starts a transaction.
func (c *PostgresClient) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{pgExecutor: pgExecutor{q: tx}, tx: tx}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.logger.Debug("closing database connection", "engine", c.dialect.Name)
	return c.conn.Close(ctx)
}

// pgQueryer is satisfied by *pgx.Conn and pgx.Tx.
type pgQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgExecutor struct {
	q pgQueryer
}

func (e pgExecutor) Exec(ctx context.Context, query string, args ...any) error {
	_, err := e.q.Exec(ctx, query, args...)
	return err
}

func (e pgExecutor) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := e.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs := &ResultSet{}
	for _, fd := range rows.FieldDescriptions() {
		rs.Columns = append(rs.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}

	return rs, rows.Err()
}

type pgTx struct {
	pgExecutor
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// buildPostgresDSN builds a keyword/value connection string. Options are
// appended in key order; sslmode defaults to disable.
func buildPostgresDSN(cfg *config.Config) string {
	parts := []string{
		"host=" + quoteDSNValue(cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
	}
	if cfg.Database != "" {
		parts = append(parts, "dbname="+quoteDSNValue(cfg.Database))
	}

	sslmode := "disable"
	if v, ok := cfg.Options["sslmode"]; ok && v != "" {
		sslmode = v
	}
	parts = append(parts, "sslmode="+quoteDSNValue(sslmode))

	if cfg.User != "" {
		parts = append(parts, "user="+quoteDSNValue(cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.Password))
	}
	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(cfg.Timeout.Seconds())))
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+quoteDSNValue(cfg.Options[k]))
	}

	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a keyword/value DSN value when it contains spaces,
// quotes or backslashes, or is empty.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
