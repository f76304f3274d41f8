package formatter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/schema"
)

// MarkdownFormatter renders markdown tables
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// FormatResults writes one section per statement
func (f *MarkdownFormatter) FormatResults(results []QueryResult) error {
	_, _ = fmt.Fprintln(f.writer, "# Query Results")
	_, _ = fmt.Fprintln(f.writer)

	for _, r := range results {
		f.FormatResult(r)
	}
	return nil
}

// FormatResult formats a single result (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatResult(r QueryResult) {
	_, _ = fmt.Fprintf(f.writer, "## Statement %d\n\n", r.Index)
	_, _ = fmt.Fprintf(f.writer, "```sql\n%s\n```\n\n", r.Statement)

	switch {
	case r.Set == nil || len(r.Set.Columns) == 0:
		_, _ = fmt.Fprintln(f.writer, "OK")
	case len(r.Set.Rows) == 0:
		_, _ = fmt.Fprintln(f.writer, rowsLabel(0))
	default:
		t := table.NewWriter()
		t.AppendHeader(headerRow(r.Set.Columns))
		for _, values := range r.Set.Rows {
			t.AppendRow(valueRow(values))
		}
		_, _ = fmt.Fprintln(f.writer, t.RenderMarkdown())
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, rowsLabel(len(r.Set.Rows)))
	}
	_, _ = fmt.Fprintln(f.writer)
}

// FormatStatements writes the statements as a numbered list of SQL blocks
func (f *MarkdownFormatter) FormatStatements(stmts []string) error {
	_, _ = fmt.Fprintf(f.writer, "# Statements (%d)\n\n", len(stmts))
	for i, stmt := range stmts {
		_, _ = fmt.Fprintf(f.writer, "%d. `%s`\n", i+1, schema.Abbreviate(stmt, 100))
	}
	return nil
}

// FormatRun writes a run summary table
func (f *MarkdownFormatter) FormatRun(res *dbreset.Result) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, row := range runRows(res) {
		t.AppendRow(row)
	}
	_, _ = fmt.Fprintln(f.writer, "# Reset Summary")
	_, _ = fmt.Fprintln(f.writer)
	_, _ = fmt.Fprintln(f.writer, t.RenderMarkdown())

	if len(res.Tables) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "## Tables to drop")
		_, _ = fmt.Fprintln(f.writer)
		for _, name := range res.Tables {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", name)
		}
	}
	return nil
}
