package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tordrt/dbreset/internal/db"
)

// SQLitePath returns a fresh database file path under t.TempDir().
func SQLitePath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// Tables lists the base tables of the SQLite file at path, sorted.
func Tables(t testing.TB, path string) []string {
	t.Helper()
	ctx := context.Background()

	client, err := db.NewSQLiteClient(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = client.Close(ctx) }()

	query, args := client.Dialect().ListTablesQuery()
	rs, err := client.Query(ctx, query, args...)
	require.NoError(t, err)
	return rs.Column(0)
}

// Exec runs statements against the SQLite file at path.
func Exec(t testing.TB, path string, stmts ...string) {
	t.Helper()
	ctx := context.Background()

	client, err := db.NewSQLiteClient(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = client.Close(ctx) }()

	for _, stmt := range stmts {
		require.NoError(t, client.Exec(ctx, stmt), stmt)
	}
}
