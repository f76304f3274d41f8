package reset

import (
	"context"
	"errors"

	"github.com/tordrt/dbreset/internal/db"
)

// ResetAll drops every base table of the session's schema and returns how
// many were dropped.
//
// This irreversibly destroys all data and structure of those tables.
//
// Foreign-key checks are suspended so drop order does not matter, and each
// drop is conditional so a table removed concurrently does not fail the run.
// An empty schema is not an error.
func (e *Engine) ResetAll(ctx context.Context, sess db.Session) (int, error) {
	d := sess.Dialect()
	dropped := 0

	err := e.unit(ctx, sess, func(tx db.Tx) error {
		tables, err := e.ListTables(ctx, tx, d)
		if err != nil {
			return err
		}
		e.logger.Info("tables found", "count", len(tables), "schema", d.Schema)

		for _, table := range tables {
			e.logger.Warn("dropping table", "table", table)
			if err := tx.Exec(ctx, d.DropTable(table)); err != nil {
				e.logger.Error("drop failed", "table", table, "code", db.ErrorCode(err), "error", err)
				return &ResetError{Table: table, Err: err}
			}
			dropped++
		}
		return nil
	})
	if err != nil {
		var resetErr *ResetError
		if !errors.As(err, &resetErr) {
			resetErr = &ResetError{Err: err}
		}
		return 0, resetErr
	}

	return dropped, nil
}
