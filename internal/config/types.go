// Package config resolves the connection and run settings for dbreset.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

// Supported engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Default configuration values.
const (
	DefaultEngine       = EngineMySQL
	DefaultHost         = "localhost"
	DefaultMySQLPort    = 3306
	DefaultPostgresPort = 5432
	DefaultPGSchema     = "public"
	DefaultSchemaFile   = "sql/schema.sql"
	DefaultConfigFile   = "dbreset.yaml"
	DefaultEnvFile      = ".env"
)

// Config holds everything a run needs. It is built once by Load (or by hand
// when dbreset is used as a library) and passed explicitly.
type Config struct {
	Engine   string `koanf:"engine"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// PasswordSet records that a password was supplied, possibly empty.
	// Load sets it; a non-empty Password implies it.
	PasswordSet bool `koanf:"-"`

	// PGSchema is the PostgreSQL schema that gets wiped. MySQL treats the
	// database as the schema; SQLite only has "main".
	PGSchema string `koanf:"pg_schema"`

	// SchemaFile is the path of the DDL script applied after the reset.
	SchemaFile string `koanf:"schema_file"`

	// Options are passed through to the driver (e.g. sslmode, tls, charset).
	Options map[string]string `koanf:"options"`

	Timeout time.Duration `koanf:"timeout"`
	Verbose bool          `koanf:"verbose"`
}

// Error reports configuration that cannot be used to start a run. It is
// always raised before any connection attempt.
type Error struct {
	// Missing lists every absent required field, in declaration order.
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validate checks that every field the engine needs is present.
// All missing fields are reported together.
func (c *Config) Validate() error {
	engine := strings.ToLower(c.Engine)
	switch engine {
	case EngineMySQL, EnginePostgres:
	case EngineSQLite:
		if c.Database == "" {
			return &Error{Missing: []string{"database"}}
		}
		return nil
	default:
		return &Error{Err: fmt.Errorf("unknown engine %q (must be mysql, postgres or sqlite)", c.Engine)}
	}

	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Port <= 0 {
		missing = append(missing, "port")
	}
	if c.Database == "" {
		missing = append(missing, "database")
	}
	if c.User == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" && !c.PasswordSet {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}

	if c.Port > 65535 {
		return &Error{Err: fmt.Errorf("port %d out of range", c.Port)}
	}
	return nil
}

// ApplyDefaults fills the engine-dependent defaults that a flat default map
// cannot express.
func (c *Config) ApplyDefaults() {
	c.Engine = strings.ToLower(c.Engine)
	if c.Engine == "" {
		c.Engine = DefaultEngine
	}
	if c.Engine == EngineSQLite {
		return
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		switch c.Engine {
		case EnginePostgres:
			c.Port = DefaultPostgresPort
		case EngineMySQL:
			c.Port = DefaultMySQLPort
		}
	}
	if c.Engine == EnginePostgres && c.PGSchema == "" {
		c.PGSchema = DefaultPGSchema
	}
}

// Address returns host:port, or the database path for SQLite.
func (c *Config) Address() string {
	if c.Engine == EngineSQLite {
		return c.Database
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LogValue keeps the password out of structured logs.
func (c *Config) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("engine", c.Engine),
		slog.String("database", c.Database),
	}
	if c.Engine != EngineSQLite {
		attrs = append(attrs,
			slog.String("address", c.Address()),
			slog.String("user", c.User),
		)
	}
	return slog.GroupValue(attrs...)
}
