package db

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect holds the engine-specific SQL the reset and apply phases need.
type Dialect struct {
	Name string

	// Schema is the schema the session is bound to. Only PostgreSQL uses
	// it explicitly; MySQL uses DATABASE() and SQLite has only "main".
	Schema string

	// SuspendForeignKeys and RestoreForeignKeys run on the session outside
	// any transaction. Empty means the engine has no session-level switch.
	SuspendForeignKeys string
	RestoreForeignKeys string

	// TxPrelude runs first inside every transaction when set.
	TxPrelude string

	// TransactionalDDL reports whether a rollback undoes CREATE/DROP.
	TransactionalDDL bool

	// ServerInfoQuery returns one row: server version, current database.
	ServerInfoQuery string

	listTables string
	cascade    bool
	quote      func(string) string
}

// MySQLDialect targets the database selected by the connection.
func MySQLDialect() Dialect {
	return Dialect{
		Name:               "mysql",
		SuspendForeignKeys: "SET FOREIGN_KEY_CHECKS = 0",
		RestoreForeignKeys: "SET FOREIGN_KEY_CHECKS = 1",
		TransactionalDDL:   false,
		ServerInfoQuery:    "SELECT VERSION(), DATABASE()",
		listTables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`,
		quote: func(name string) string {
			return "`" + strings.ReplaceAll(name, "`", "``") + "`"
		},
	}
}

// PostgresDialect targets schemaName. PostgreSQL has no session-wide
// foreign-key switch for ordinary roles, so constraints are deferred inside
// the transaction and drops cascade.
func PostgresDialect(schemaName string) Dialect {
	return Dialect{
		Name:             "postgres",
		Schema:           schemaName,
		TxPrelude:        "SET CONSTRAINTS ALL DEFERRED",
		TransactionalDDL: true,
		ServerInfoQuery:  "SELECT version(), current_database()",
		listTables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`,
		cascade: true,
		quote: func(name string) string {
			return pgx.Identifier{schemaName, name}.Sanitize()
		},
	}
}

// SQLiteDialect targets the main database of the file.
func SQLiteDialect() Dialect {
	return Dialect{
		Name:               "sqlite",
		Schema:             "main",
		SuspendForeignKeys: "PRAGMA foreign_keys = OFF",
		RestoreForeignKeys: "PRAGMA foreign_keys = ON",
		TransactionalDDL:   true,
		ServerInfoQuery:    "SELECT sqlite_version(), 'main'",
		listTables: `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`,
		quote: func(name string) string {
			return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
		},
	}
}

// ListTablesQuery returns the query enumerating base tables (views
// excluded) of the bound schema, with its arguments.
func (d Dialect) ListTablesQuery() (string, []any) {
	if d.Name == "postgres" {
		return d.listTables, []any{d.Schema}
	}
	return d.listTables, nil
}

// QuoteIdent quotes a table name for use in DDL.
func (d Dialect) QuoteIdent(name string) string {
	return d.quote(name)
}

// DropTable returns a conditional drop for name.
func (d Dialect) DropTable(name string) string {
	stmt := "DROP TABLE IF EXISTS " + d.QuoteIdent(name)
	if d.cascade {
		stmt += " CASCADE"
	}
	return stmt
}
