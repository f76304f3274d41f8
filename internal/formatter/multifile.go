package formatter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tordrt/dbreset/internal/schema"
)

// MultiFileFormatter writes query results to a directory, one file per
// statement plus an overview.
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	if format == "md" {
		format = formatMarkdown
	}
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// FormatResults writes _overview plus one file per result
func (f *MultiFileFormatter) FormatResults(results []QueryResult) error {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(results); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, r := range results {
		if err := f.writeResultFile(r); err != nil {
			return fmt.Errorf("failed to write result file for statement %d: %w", r.Index, err)
		}
	}

	return nil
}

// ResultFileName is the file a result is written to, e.g. "003.md".
func (f *MultiFileFormatter) ResultFileName(index int) string {
	return fmt.Sprintf("%03d%s", index, f.getFileExtension())
}

func (f *MultiFileFormatter) writeOverview(results []QueryResult) error {
	filename := filepath.Join(f.OutputDir, "_overview"+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# Query Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each statement has a corresponding file: `<index>%s`\n\n", f.getFileExtension())
		for _, r := range results {
			_, _ = fmt.Fprintf(file, "- **%s** `%s` %s\n", f.ResultFileName(r.Index), schema.Abbreviate(r.Statement, 72), resultLabel(r))
		}
		return nil
	}

	_, _ = fmt.Fprintf(file, "QUERY OVERVIEW\n")
	_, _ = fmt.Fprintf(file, "Each statement has a file: <index>%s\n\n", f.getFileExtension())
	for _, r := range results {
		_, _ = fmt.Fprintf(file, "%s %s %s\n", f.ResultFileName(r.Index), schema.Abbreviate(r.Statement, 72), resultLabel(r))
	}
	return nil
}

func (f *MultiFileFormatter) writeResultFile(r QueryResult) error {
	file, err := os.Create(filepath.Join(f.OutputDir, f.ResultFileName(r.Index)))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if f.OutputFormat == formatMarkdown {
		NewMarkdownFormatter(file).FormatResult(r)
		return nil
	}
	NewTextFormatter(file).formatResult(r)
	return nil
}

func resultLabel(r QueryResult) string {
	if r.Set == nil || len(r.Set.Columns) == 0 {
		return "OK"
	}
	return rowsLabel(len(r.Set.Rows))
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
