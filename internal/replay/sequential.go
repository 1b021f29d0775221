package replay

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tawesh/idb-to-sql/internal/sqlscript"
)

// Sequential runs stmts in order inside one transaction. The first failing
// statement rolls everything back. The connection is closed on every path.
//
// Cancellation is honoured only between statements; database calls run on
// a context detached from ctx so a statement is never cut off mid-flight.
func (e *Engine) Sequential(ctx context.Context, stmts []string) Result {
	if err := ctx.Err(); err != nil {
		return Result{Message: fmt.Sprintf("cancelled before execution: %v", err), Skipped: len(stmts)}
	}

	dbctx := context.WithoutCancel(ctx)

	db, err := e.openTarget(dbctx)
	if err != nil {
		return Result{
			Message:  fmt.Sprintf("database connection failed: %v", err),
			Failed:   1,
			Skipped:  len(stmts),
			Failures: []Outcome{{Err: err.Error()}},
		}
	}
	defer db.Close()

	tx, err := db.BeginTx(dbctx, nil)
	if err != nil {
		return Result{
			Message:  fmt.Sprintf("begin transaction failed: %v", err),
			Failed:   1,
			Skipped:  len(stmts),
			Failures: []Outcome{{Err: err.Error()}},
		}
	}

	executed := 0
	for i, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			_ = tx.Rollback()
			return Result{
				Message: fmt.Sprintf("cancelled after %d of %d statements, transaction rolled back", i, len(stmts)),
				Skipped: len(stmts),
			}
		}

		if _, err := tx.ExecContext(dbctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.log.Warn("Rollback failed", "error", rbErr)
			}
			preview := sqlscript.Preview(stmt, SequentialPreviewLen)
			e.log.Debug("Statement failed, transaction rolled back", "index", i+1, "error", err)
			return Result{
				Message:  fmt.Sprintf("statement %d failed, transaction rolled back\nstatement: %s\nerror: %v", i+1, preview, err),
				Failed:   1,
				Skipped:  len(stmts) - i - 1,
				Failures: []Outcome{{Statement: preview, Err: err.Error()}},
			}
		}
		executed++
	}

	if err := tx.Commit(); err != nil {
		return Result{
			Message:  fmt.Sprintf("commit failed: %v", err),
			Failed:   1,
			Failures: []Outcome{{Err: err.Error()}},
		}
	}

	return Result{
		OK:        true,
		Message:   fmt.Sprintf("executed %d statements in one transaction", executed),
		Succeeded: executed,
	}
}
