// Package formatter renders query results, split statements and run
// summaries for the terminal or as markdown.
package formatter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tordrt/dbreset"
	"github.com/tordrt/dbreset/internal/db"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// QueryResult is one statement of a query file and the rows it returned.
// Set has no columns for statements that return no rows.
type QueryResult struct {
	Index     int
	Statement string
	Set       *db.ResultSet
}

// Formatter writes command output.
type Formatter interface {
	FormatResults(results []QueryResult) error
	FormatStatements(stmts []string) error
	FormatRun(res *dbreset.Result) error
}

// New returns the formatter for format ("text" or "markdown", "md").
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", formatText:
		return NewTextFormatter(w), nil
	case formatMarkdown, "md":
		return NewMarkdownFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func headerRow(cols []string) table.Row {
	row := make(table.Row, len(cols))
	for i, col := range cols {
		row[i] = col
	}
	return row
}

func valueRow(values []any) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = db.FormatValue(v)
	}
	return row
}

func rowsLabel(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}
