package reset

import (
	"fmt"

	"github.com/tordrt/dbreset/internal/schema"
)

// ResetError reports a failure while enumerating or dropping tables. The
// whole reset phase counts as failed; its transaction is rolled back.
type ResetError struct {
	// Table is the table whose drop failed, or "" when the failure was not
	// tied to a table (enumeration, begin, commit).
	Table string
	Err   error
}

func (e *ResetError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("failed to drop table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("reset failed: %v", e.Err)
}

func (e *ResetError) Unwrap() error {
	return e.Err
}

// ApplyError reports the statement that stopped schema application.
type ApplyError struct {
	// Index is the 1-based position of the failing statement, or 0 when the
	// failure happened outside statement execution (begin, commit).
	Index     int
	Statement string
	Err       error

	// Transactional is true when the engine rolls back DDL, i.e. the
	// statements before Index were undone. On MySQL it is false and those
	// statements persist.
	Transactional bool
}

func (e *ApplyError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("apply failed: %v", e.Err)
	}
	return fmt.Sprintf("statement %d failed (%s): %v", e.Index, schema.Abbreviate(e.Statement, 60), e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
