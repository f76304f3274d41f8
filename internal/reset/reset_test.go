package reset

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/dbreset/internal/db"
	"github.com/tordrt/dbreset/internal/testutil"
)

func newMySQLMock(t *testing.T) (*db.SQLSession, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sess, err := db.NewSQLSession(context.Background(), sqlDB, db.MySQLDialect(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return sess, mock
}

func expectListTables(mock sqlmock.Sqlmock, tables ...string) *sqlmock.ExpectedQuery {
	query, _ := db.MySQLDialect().ListTablesQuery()
	rows := sqlmock.NewRows([]string{"TABLE_NAME"})
	for _, table := range tables {
		rows.AddRow(table)
	}
	return mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(rows)
}

func TestEngine_ResetAll(t *testing.T) {
	boom := errors.New("permission denied")

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      int
		wantTable string
		wantErr   bool
	}{
		{
			name: "drops every table",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectBegin()
				expectListTables(mock, "t", "u")
				mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `t`")).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `u`")).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: 2,
		},
		{
			name: "empty schema",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectBegin()
				expectListTables(mock)
				mock.ExpectCommit()
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: 0,
		},
		{
			name: "drop failure rolls back and names the table",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectBegin()
				expectListTables(mock, "t", "u", "v")
				mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `t`")).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `u`")).WillReturnError(boom)
				mock.ExpectRollback()
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr:   true,
			wantTable: "u",
		},
		{
			name: "enumeration failure",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectBegin()
				query, _ := db.MySQLDialect().ListTablesQuery()
				mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnError(boom)
				mock.ExpectRollback()
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: true,
		},
		{
			name: "suspension failure opens no transaction",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnError(boom)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, mock := newMySQLMock(t)
			tt.setupMock(mock)

			got, err := New(testutil.NewTestLogger(t)).ResetAll(context.Background(), sess)
			if tt.wantErr {
				require.Error(t, err)
				var resetErr *ResetError
				require.ErrorAs(t, err, &resetErr)
				assert.Equal(t, tt.wantTable, resetErr.Table)
				assert.ErrorIs(t, err, boom)
				assert.Zero(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEngine_ResetAll_SQLiteIgnoresDependencyOrder(t *testing.T) {
	ctx := context.Background()
	path := testutil.SQLitePath(t)

	// Tables are dropped in name order, so a_parent goes first while
	// z_child still references it. That only works with checks suspended.
	testutil.Exec(t, path,
		"CREATE TABLE a_parent (id INTEGER PRIMARY KEY)",
		"CREATE TABLE z_child (id INTEGER PRIMARY KEY, parent_id INTEGER REFERENCES a_parent(id))",
		"INSERT INTO a_parent (id) VALUES (1)",
		"INSERT INTO z_child (id, parent_id) VALUES (1, 1)",
		"CREATE VIEW v_children AS SELECT * FROM z_child",
	)

	client, err := db.NewSQLiteClient(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = client.Close(ctx) }()

	n, err := New(testutil.NewTestLogger(t)).ResetAll(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "views are not counted")
	assert.Empty(t, testutil.Tables(t, path))

	rs, err := client.Query(ctx, "PRAGMA foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, rs.Column(0), "foreign keys restored")
}
