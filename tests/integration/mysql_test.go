//go:build integration
// +build integration

package integration

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/config"
	"github.com/tordrt/dbreset/internal/db"
)

// mysqlConfig builds a config from MYSQL_TEST_URL, a go-sql-driver DSN.
func mysqlConfig(t *testing.T) *config.Config {
	t.Helper()

	// Use environment variable if set, otherwise use default test connection string
	dsn := os.Getenv("MYSQL_TEST_URL")
	if dsn == "" {
		dsn = "root:testpassword@tcp(localhost:3306)/testdb"
	}

	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("Invalid MYSQL_TEST_URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(mc.Addr)
	if err != nil {
		t.Fatalf("Invalid MYSQL_TEST_URL address %q: %v", mc.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Invalid MYSQL_TEST_URL port %q: %v", portStr, err)
	}

	cfg := &config.Config{
		Engine:   config.EngineMySQL,
		Host:     host,
		Port:     port,
		Database: mc.DBName,
		User:     mc.User,
		Password: mc.Passwd,
	}
	cleanSchema(t, cfg)
	return cfg
}

func TestMySQLScenarios(t *testing.T) {
	ctx := context.Background()
	cfg := mysqlConfig(t)
	writeSchema(t, cfg, scriptTU)

	// A: empty schema
	res, err := dbreset.Run(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if res.TablesDropped != 0 || res.StatementsApplied != 2 {
		t.Errorf("Expected 0 dropped and 2 applied, got %d and %d", res.TablesDropped, res.StatementsApplied)
	}
	verifyTables(t, cfg, []string{"t", "u"})

	// B: u references t, dropped in name order
	res, err = dbreset.Run(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if res.TablesDropped != 2 {
		t.Errorf("Expected 2 tables dropped, got %d", res.TablesDropped)
	}
	verifyTables(t, cfg, []string{"t", "u"})
}

// MySQL commits DDL implicitly: the statement before the failure stays.
func TestMySQLApplyFailureKeepsEarlierDDL(t *testing.T) {
	ctx := context.Background()
	cfg := mysqlConfig(t)
	writeSchema(t, cfg, scriptTypo)

	res, err := dbreset.Run(ctx, cfg, nil)
	if err == nil {
		t.Fatal("Expected apply to fail")
	}

	var applyErr *dbreset.ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("Expected ApplyError, got %T: %v", err, err)
	}
	if applyErr.Index != 2 {
		t.Errorf("Expected failure at statement 2, got %d", applyErr.Index)
	}
	if applyErr.Transactional {
		t.Error("Expected MySQL apply to be reported as non-transactional")
	}
	if code := db.ErrorCode(applyErr.Err); code != "1064" {
		t.Errorf("Expected syntax error 1064, got %q", code)
	}
	if res.Phase != dbreset.PhaseRolledBack {
		t.Errorf("Expected phase %s, got %s", dbreset.PhaseRolledBack, res.Phase)
	}

	verifyTables(t, cfg, []string{"t"})
}

func TestMySQLWaterSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := mysqlConfig(t)
	writeSchema(t, cfg, waterSchema)

	for run := 1; run <= 2; run++ {
		res, err := dbreset.Run(ctx, cfg, nil)
		if err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}
		if run == 2 && res.TablesDropped != len(waterTables) {
			t.Errorf("Expected %d tables dropped, got %d", len(waterTables), res.TablesDropped)
		}
		verifyTables(t, cfg, waterTables)
	}
}

func TestMySQLForeignKeyChecksRestored(t *testing.T) {
	ctx := context.Background()
	cfg := mysqlConfig(t)
	execAll(t, cfg,
		"CREATE TABLE a_parent (id INT PRIMARY KEY)",
		"CREATE TABLE z_child (id INT PRIMARY KEY, parent_id INT, FOREIGN KEY (parent_id) REFERENCES a_parent(id))",
		"INSERT INTO a_parent (id) VALUES (1)",
		"INSERT INTO z_child (id, parent_id) VALUES (1, 1)",
	)

	client, err := db.NewMySQLClient(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer client.Close(ctx)

	writeSchema(t, cfg, "CREATE TABLE t (id INT)")
	if _, err := dbreset.Run(ctx, cfg, &dbreset.Options{
		Open: func(context.Context, *config.Config, *slog.Logger) (db.Session, error) { return nopClose{client}, nil },
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rs, err := client.Query(ctx, "SELECT @@SESSION.foreign_key_checks")
	if err != nil {
		t.Fatalf("Failed to read foreign_key_checks: %v", err)
	}
	if got := rs.Column(0); len(got) != 1 || got[0] != "1" {
		t.Errorf("Expected foreign_key_checks restored to 1, got %v", got)
	}
	verifyTables(t, cfg, []string{"t"})
}

// nopClose keeps the session open after Run so it can be inspected.
type nopClose struct {
	db.Session
}

func (nopClose) Close(context.Context) error { return nil }
