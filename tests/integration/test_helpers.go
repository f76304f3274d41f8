//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/tordrt/dbreset/internal/config"
	"github.com/tordrt/dbreset/internal/db"
	"github.com/tordrt/dbreset/internal/reset"
)

const (
	scriptTU   = "CREATE TABLE t (id INT PRIMARY KEY); CREATE TABLE u (id INT, FOREIGN KEY (id) REFERENCES t(id));"
	scriptTypo = "CREATE TABLE t (id INT); CREATE TBLE oops (id INT);"
)

// waterSchema mirrors the dashboard schema: parent table, dependents with
// foreign keys, a view over them and seed rows inserted child first. Views
// are not dropped by a reset, hence OR REPLACE.
const waterSchema = `
CREATE TABLE dams (
    dam_id VARCHAR(20) PRIMARY KEY,
    dam_name VARCHAR(255) NOT NULL,
    full_volume INT
);
CREATE TABLE latest_data (
    dam_id VARCHAR(20) PRIMARY KEY,
    storage_volume DECIMAL(10,3),
    percentage_full DECIMAL(6,2),
    FOREIGN KEY (dam_id) REFERENCES dams(dam_id) ON DELETE CASCADE
);
CREATE TABLE dam_groups (group_name VARCHAR(255) PRIMARY KEY);
CREATE TABLE dam_group_members (
    group_name VARCHAR(255),
    dam_id VARCHAR(20),
    PRIMARY KEY (group_name, dam_id),
    FOREIGN KEY (group_name) REFERENCES dam_groups(group_name),
    FOREIGN KEY (dam_id) REFERENCES dams(dam_id)
);
CREATE OR REPLACE VIEW dam_storage AS SELECT d.dam_name, l.storage_volume FROM dams d JOIN latest_data l ON l.dam_id = d.dam_id;
INSERT INTO latest_data (dam_id, storage_volume, percentage_full) VALUES ('203042', 10.5, 91.2);
INSERT INTO dams (dam_id, dam_name, full_volume) VALUES ('203042', 'Toonumbar Dam', 11000);
INSERT INTO dam_groups (group_name) VALUES ('sydney_dams');
INSERT INTO dam_group_members (group_name, dam_id) VALUES ('sydney_dams', '203042');
`

var waterTables = []string{"dam_group_members", "dam_groups", "dams", "latest_data"}

// writeSchema writes script to a temp file and points cfg at it.
func writeSchema(t *testing.T, cfg *config.Config, script string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "schema.sql")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("Failed to write schema file: %v", err)
	}
	cfg.SchemaFile = path
}

// listTables returns the base tables of the configured schema.
func listTables(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	ctx := context.Background()

	var tables []string
	err := db.WithSession(ctx, db.Open, cfg, nil, func(sess db.Session) error {
		var err error
		tables, err = reset.New(nil).ListTables(ctx, sess, sess.Dialect())
		return err
	})
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	return tables
}

// execAll runs statements outside any transaction.
func execAll(t *testing.T, cfg *config.Config, stmts ...string) {
	t.Helper()
	ctx := context.Background()

	err := db.WithSession(ctx, db.Open, cfg, nil, func(sess db.Session) error {
		for _, stmt := range stmts {
			if err := sess.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to execute statements: %v", err)
	}
}

// verifyTables checks the schema holds exactly the expected tables
func verifyTables(t *testing.T, cfg *config.Config, expected []string) {
	t.Helper()

	got := listTables(t, cfg)
	want := slices.Clone(expected)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		t.Errorf("Expected tables %v, got %v", want, got)
	}
}

// cleanSchema empties the target schema before and after a test.
func cleanSchema(t *testing.T, cfg *config.Config) {
	t.Helper()

	wipe := func() {
		err := db.WithSession(context.Background(), db.Open, cfg, nil, func(sess db.Session) error {
			if err := sess.Exec(context.Background(), "DROP VIEW IF EXISTS dam_storage"); err != nil {
				return err
			}
			_, err := reset.New(nil).ResetAll(context.Background(), sess)
			return err
		})
		if err != nil {
			t.Fatalf("Failed to clean schema: %v", err)
		}
	}
	wipe()
	t.Cleanup(wipe)
}
