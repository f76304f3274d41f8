// Package schema loads DDL scripts and splits them into statements.
package schema

import (
	"fmt"
	"os"
	"strings"
)

// Terminator ends one statement within a script.
const Terminator = ";"

// Script is a schema definition read from disk. It is never modified after
// Load returns.
type Script struct {
	Path string
	Text string
}

// Load reads the script at path. A missing file yields an error that
// satisfies errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return &Script{Path: path, Text: string(data)}, nil
}

// Statements splits the script. See Split.
func (s *Script) Statements() []string {
	return Split(s.Text)
}

// Split partitions script on the statement terminator, trims every part and
// drops the empty ones. Order is preserved.
//
// The split is purely lexical: a ';' inside a string literal, a quoted
// identifier or a comment ends the statement there. Scripts that need such
// characters must avoid them or be split by other means.
func Split(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, Terminator) {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// Join is the inverse of Split: it re-inserts the terminators, one
// statement per line.
func Join(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, Terminator+"\n") + Terminator + "\n"
}

// Abbreviate returns the first line of stmt, cut to maxLen bytes. A marker
// shows that text was left out.
func Abbreviate(stmt string, maxLen int) string {
	line, _, more := strings.Cut(strings.TrimSpace(stmt), "\n")
	line = strings.TrimSpace(line)
	if len(line) > maxLen {
		return line[:maxLen] + "..."
	}
	if more {
		return line + " ..."
	}
	return line
}
