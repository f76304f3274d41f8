package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-sql-driver/mysql"
	"github.com/tordrt/dbreset/internal/config"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	*SQLSession
}

// NewMySQLClient creates a new MySQL client. An empty cfg.Database connects
// without selecting a database.
func NewMySQLClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*MySQLClient, error) {
	db, err := sql.Open("mysql", buildMySQLDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sess, err := NewSQLSession(ctx, db, MySQLDialect(), logger)
	if err != nil {
		return nil, err
	}

	return &MySQLClient{SQLSession: sess}, nil
}

// buildMySQLDSN formats a go-sql-driver DSN. Options become DSN parameters.
func buildMySQLDSN(cfg *config.Config) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = cfg.Address()
	c.DBName = cfg.Database
	c.ParseTime = true
	c.MultiStatements = false
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if len(cfg.Options) > 0 {
		c.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			c.Params[k] = v
		}
	}
	return c.FormatDSN()
}
