package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/schema"
)

// TextFormatter renders boxed terminal tables
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

func (f *TextFormatter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.SetStyle(table.StyleLight)
	return t
}

// FormatResults writes each result set as a table under its statement
func (f *TextFormatter) FormatResults(results []QueryResult) error {
	for i, r := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between results
		}
		f.formatResult(r)
	}
	return nil
}

func (f *TextFormatter) formatResult(r QueryResult) {
	_, _ = fmt.Fprintf(f.writer, "-- [%d] %s\n", r.Index, schema.Abbreviate(r.Statement, 72))

	if r.Set == nil || len(r.Set.Columns) == 0 {
		_, _ = fmt.Fprintln(f.writer, "OK")
		return
	}
	if len(r.Set.Rows) == 0 {
		_, _ = fmt.Fprintln(f.writer, rowsLabel(0))
		return
	}

	t := f.newTable()
	t.AppendHeader(headerRow(r.Set.Columns))
	for _, values := range r.Set.Rows {
		t.AppendRow(valueRow(values))
	}
	t.Render()
	_, _ = fmt.Fprintln(f.writer, rowsLabel(len(r.Set.Rows)))
}

// FormatStatements lists statements with their 1-based index
func (f *TextFormatter) FormatStatements(stmts []string) error {
	if len(stmts) == 0 {
		_, _ = fmt.Fprintln(f.writer, "(0 statements)")
		return nil
	}

	t := f.newTable()
	t.AppendHeader(table.Row{"#", "Statement"})
	for i, stmt := range stmts {
		t.AppendRow(table.Row{i + 1, stmt})
	}
	t.Render()
	return nil
}

// FormatRun writes a run summary
func (f *TextFormatter) FormatRun(res *dbreset.Result) error {
	t := f.newTable()
	for _, row := range runRows(res) {
		t.AppendRow(row)
	}
	t.Render()

	if len(res.Tables) > 0 {
		_, _ = fmt.Fprintln(f.writer, "TABLES TO DROP:")
		for _, name := range res.Tables {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", name)
		}
	}
	return nil
}

func runRows(res *dbreset.Result) []table.Row {
	return []table.Row{
		{"Run", res.RunID},
		{"Engine", res.Engine},
		{"Database", res.Database},
		{"Tables dropped", res.TablesDropped},
		{"Statements applied", res.StatementsApplied},
		{"Outcome", res.Phase.String()},
		{"Duration", res.Duration.Round(time.Millisecond)},
	}
}
