package reset

import (
	"context"
	"errors"

	"github.com/tordrt/dbreset/internal/db"
)

// Apply executes stmts in order inside one transaction and returns the
// number executed. The first failing statement stops the run: the rest are
// skipped, the transaction is rolled back and an *ApplyError carries the
// statement's 1-based index.
func (e *Engine) Apply(ctx context.Context, sess db.Session, stmts []string) (int, error) {
	d := sess.Dialect()
	applied := 0

	err := e.unit(ctx, sess, func(tx db.Tx) error {
		for i, stmt := range stmts {
			e.logger.Debug("executing statement", "index", i+1, "total", len(stmts))
			if err := tx.Exec(ctx, stmt); err != nil {
				e.logger.Error("statement failed", "index", i+1, "code", db.ErrorCode(err), "error", err)
				return &ApplyError{Index: i + 1, Statement: stmt, Err: err, Transactional: d.TransactionalDDL}
			}
			applied++
		}
		return nil
	})
	if err != nil {
		var applyErr *ApplyError
		if !errors.As(err, &applyErr) {
			applyErr = &ApplyError{Err: err, Transactional: d.TransactionalDDL}
		}
		if !d.TransactionalDDL && applied > 0 {
			e.logger.Warn("engine does not roll back DDL, earlier statements persist",
				"engine", d.Name, "persisted", applied)
		}
		return 0, applyErr
	}

	e.logger.Info("schema applied", "statements", applied)
	return applied, nil
}
