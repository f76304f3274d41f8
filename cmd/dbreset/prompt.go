package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	errAborted     = errors.New("aborted")
	errNotTerminal = errors.New("stdin is not a terminal; pass --yes to reset without confirmation")
)

// isTerminal reports whether r is an interactive terminal.
var isTerminal = func(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// confirm asks a yes/no question on w and reads the answer from r. Only
// "y" and "yes" count as consent. Without a terminal nothing is asked.
func confirm(r io.Reader, w io.Writer, msg string) (bool, error) {
	if !isTerminal(r) {
		return false, errNotTerminal
	}

	_, _ = fmt.Fprintf(w, "%s Continue? [y/N]: ", msg)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
