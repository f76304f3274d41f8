package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	*SQLSession
}

// NewSQLiteClient opens the database file at path, creating it if needed,
// and turns foreign-key enforcement on for the session.
func NewSQLiteClient(ctx context.Context, path string, logger *slog.Logger) (*SQLiteClient, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sess, err := NewSQLSession(ctx, db, SQLiteDialect(), logger)
	if err != nil {
		return nil, err
	}

	if err := sess.Exec(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = sess.Close(ctx)
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteClient{SQLSession: sess}, nil
}

// SQLiteDriver reports which SQLite implementation this binary was built with.
func SQLiteDriver() string {
	return sqliteDriverPackage
}
