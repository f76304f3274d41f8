package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/db"
)

func sampleResults() []QueryResult {
	return []QueryResult{
		{
			Index:     1,
			Statement: "SELECT dam_id, dam_name FROM dams",
			Set: &db.ResultSet{
				Columns: []string{"dam_id", "dam_name"},
				Rows: [][]any{
					{"203042", []byte("Toonumbar Dam")},
					{"210097", nil},
				},
			},
		},
		{
			Index:     2,
			Statement: "SELECT * FROM latest_data",
			Set:       &db.ResultSet{Columns: []string{"dam_id"}},
		},
		{
			Index:     3,
			Statement: "UPDATE dams SET dam_name = 'x'",
			Set:       &db.ResultSet{},
		},
	}
}

func sampleRun() *dbreset.Result {
	return &dbreset.Result{
		RunID:             "6f1c",
		Engine:            "mysql",
		Database:          "water_dashboard_nsw_local",
		TablesDropped:     12,
		StatementsApplied: 14,
		Phase:             dbreset.PhaseCommitted,
		Duration:          1500 * time.Millisecond,
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		format  string
		want    any
		wantErr bool
	}{
		{format: "", want: &TextFormatter{}},
		{format: "text", want: &TextFormatter{}},
		{format: "markdown", want: &MarkdownFormatter{}},
		{format: "md", want: &MarkdownFormatter{}},
		{format: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := New(tt.format, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestTextFormatter_FormatResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).FormatResults(sampleResults()))

	out := buf.String()
	assert.Contains(t, out, "-- [1] SELECT dam_id, dam_name FROM dams")
	assert.Contains(t, out, "Toonumbar Dam")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "(0 rows)")
	assert.Contains(t, out, "-- [3] UPDATE dams")
	assert.Contains(t, out, "OK")
}

func TestTextFormatter_FormatStatements(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)

	require.NoError(t, f.FormatStatements([]string{"CREATE TABLE t (id INT)", "CREATE TABLE u (id INT)"}))
	assert.Contains(t, buf.String(), "CREATE TABLE t (id INT)")
	assert.Contains(t, buf.String(), "CREATE TABLE u (id INT)")

	buf.Reset()
	require.NoError(t, f.FormatStatements(nil))
	assert.Equal(t, "(0 statements)\n", buf.String())
}

func TestTextFormatter_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	res := sampleRun()
	res.Tables = []string{"dams", "latest_data"}

	require.NoError(t, NewTextFormatter(&buf).FormatRun(res))
	out := buf.String()
	assert.Contains(t, out, "water_dashboard_nsw_local")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "TABLES TO DROP:\n  dams\n  latest_data\n")
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewMarkdownFormatter(&buf)

	require.NoError(t, f.FormatResults(sampleResults()))
	out := buf.String()
	assert.Contains(t, out, "# Query Results")
	assert.Contains(t, out, "## Statement 1")
	assert.Contains(t, out, "```sql\nSELECT dam_id, dam_name FROM dams\n```")
	assert.Contains(t, out, "| dam_id | dam_name |")
	assert.Contains(t, out, "Toonumbar Dam")

	buf.Reset()
	require.NoError(t, f.FormatStatements([]string{"CREATE TABLE t (id INT)"}))
	assert.Equal(t, "# Statements (1)\n\n1. `CREATE TABLE t (id INT)`\n", buf.String())

	buf.Reset()
	require.NoError(t, f.FormatRun(sampleRun()))
	assert.Contains(t, buf.String(), "# Reset Summary")
	assert.Contains(t, buf.String(), "| Tables dropped | 12 |")
}

func TestMultiFileFormatter(t *testing.T) {
	for _, format := range []string{"text", "markdown"} {
		t.Run(format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			f := NewMultiFileFormatter(dir, format)
			require.NoError(t, f.FormatResults(sampleResults()))

			ext := f.getFileExtension()
			overview, err := os.ReadFile(filepath.Join(dir, "_overview"+ext))
			require.NoError(t, err)
			assert.Contains(t, string(overview), "001"+ext)
			assert.Contains(t, string(overview), "(2 rows)")
			assert.Contains(t, string(overview), "OK")

			for i := 1; i <= 3; i++ {
				assert.FileExists(t, filepath.Join(dir, f.ResultFileName(i)))
			}

			first, err := os.ReadFile(filepath.Join(dir, "001"+ext))
			require.NoError(t, err)
			assert.Contains(t, string(first), "Toonumbar Dam")
		})
	}
}
