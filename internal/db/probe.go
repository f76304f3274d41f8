package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/tordrt/dbreset/internal/config"
)

// ServerInfo describes the server a session is connected to.
type ServerInfo struct {
	Engine   string
	Version  string
	Database string
	// Driver is the Go driver package, set for SQLite only.
	Driver string
}

// Probe reports the server version and the current database of sess.
func Probe(ctx context.Context, sess Executor, d Dialect) (*ServerInfo, error) {
	rs, err := sess.Query(ctx, d.ServerInfoQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query server info: %w", err)
	}
	if len(rs.Rows) == 0 || len(rs.Rows[0]) < 2 {
		return nil, fmt.Errorf("server info query returned no rows")
	}

	info := &ServerInfo{
		Engine:   d.Name,
		Version:  FormatValue(rs.Rows[0][0]),
		Database: FormatValue(rs.Rows[0][1]),
	}
	if d.Name == config.EngineSQLite {
		info.Driver = SQLiteDriver()
	}
	return info, nil
}

// CreateDatabase creates cfg.Database when it does not exist yet. It connects
// without selecting the database (PostgreSQL: the "postgres" maintenance
// database). It reports whether the database was created.
func CreateDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Engine {
	case config.EngineSQLite:
		return createSQLiteDatabase(ctx, cfg, logger)
	case config.EngineMySQL:
		server := *cfg
		server.Database = ""
		client, err := NewMySQLClient(ctx, &server, logger)
		if err != nil {
			return false, &ConnectionError{Engine: cfg.Engine, Address: cfg.Address(), Err: err}
		}
		defer func() { _ = client.Close(ctx) }()

		return createIfMissing(ctx, client, cfg.Database,
			"SELECT schema_name FROM information_schema.schemata WHERE schema_name = ?",
			"CREATE DATABASE IF NOT EXISTS "+client.Dialect().QuoteIdent(cfg.Database))
	case config.EnginePostgres:
		server := *cfg
		server.Database = "postgres"
		client, err := NewPostgresClient(ctx, &server, logger)
		if err != nil {
			return false, &ConnectionError{Engine: cfg.Engine, Address: cfg.Address(), Err: err}
		}
		defer func() { _ = client.Close(ctx) }()

		// CREATE DATABASE takes a bare identifier, not schema-qualified.
		return createIfMissing(ctx, client, cfg.Database,
			"SELECT datname FROM pg_database WHERE datname = $1",
			"CREATE DATABASE "+pgx.Identifier{cfg.Database}.Sanitize())
	default:
		return false, &config.Error{Err: fmt.Errorf("unsupported database type: %s", cfg.Engine)}
	}
}

func createIfMissing(ctx context.Context, sess Executor, name, existsQuery, createStmt string) (bool, error) {
	rs, err := sess.Query(ctx, existsQuery, name)
	if err != nil {
		return false, fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if len(rs.Rows) > 0 {
		return false, nil
	}

	if err := sess.Exec(ctx, createStmt); err != nil {
		return false, fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return true, nil
}

func createSQLiteDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bool, error) {
	_, statErr := os.Stat(cfg.Database)
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", cfg.Database, statErr)
	}

	client, err := NewSQLiteClient(ctx, cfg.Database, logger)
	if err != nil {
		return false, &ConnectionError{Engine: cfg.Engine, Address: cfg.Address(), Err: err}
	}
	if err := client.Close(ctx); err != nil {
		return false, err
	}

	return statErr != nil, nil
}
