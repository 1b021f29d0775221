package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/Tawesh/idb-to-sql/internal/database"
	"github.com/Tawesh/idb-to-sql/internal/sqlscript"
)

// collector is the result sink shared by parallel workers
type collector struct {
	mu        sync.Mutex
	outcomes  []Outcome
	attempted int
}

func (c *collector) add(o Outcome, attempted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
	if attempted {
		c.attempted++
	}
}

// Parallel runs stmts over min(maxThreads, len(stmts)) workers. Each worker
// owns an autocommit connection, so every statement commits on its own and
// a failure never undoes another statement.
//
// The queue is a buffered channel filled and closed up front; a receive on
// it never blocks and reports !ok once drained.
func (e *Engine) Parallel(ctx context.Context, stmts []string, maxThreads int) Result {
	if len(stmts) == 0 {
		return Result{OK: true, Message: "no statements to execute"}
	}
	if err := ctx.Err(); err != nil {
		return Result{Message: fmt.Sprintf("cancelled before execution: %v", err), Skipped: len(stmts)}
	}

	workers := maxThreads
	if workers > len(stmts) {
		workers = len(stmts)
	}
	if workers < 1 {
		workers = 1
	}

	queue := make(chan string, len(stmts))
	for _, stmt := range stmts {
		queue <- stmt
	}
	close(queue)

	col := &collector{outcomes: make([]Outcome, 0, len(stmts))}
	var wg sync.WaitGroup
	for id := 1; id <= workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.parallelWorker(ctx, id, queue, col)
		}(id)
	}
	wg.Wait()

	return summarize(col, len(stmts))
}

func (e *Engine) parallelWorker(ctx context.Context, id int, queue <-chan string, col *collector) {
	dbctx := context.WithoutCancel(ctx)

	db, err := e.connector.Open(dbctx, e.cfg, database.ModeAutoCommit)
	if err != nil {
		e.log.Warn("Parallel worker could not connect", "worker", id, "error", err)
		col.add(Outcome{Err: fmt.Sprintf("worker %d: connection failed: %v", id, err)}, false)
		return
	}
	defer db.Close()

	for {
		if ctx.Err() != nil {
			return
		}
		stmt, ok := <-queue
		if !ok {
			return
		}

		preview := sqlscript.Preview(stmt, ParallelPreviewLen)
		if _, err := db.ExecContext(dbctx, stmt); err != nil {
			col.add(Outcome{Statement: preview, Err: err.Error()}, true)
			continue
		}
		col.add(Outcome{Statement: preview, Succeeded: true}, true)
	}
}

func summarize(col *collector, total int) Result {
	res := Result{Skipped: total - col.attempted}

	var merr *multierror.Error
	for _, o := range col.outcomes {
		if o.Succeeded {
			res.Succeeded++
			continue
		}
		res.Failed++
		res.Failures = append(res.Failures, o)
		merr = multierror.Append(merr, outcomeError(o))
	}

	tally := fmt.Sprintf("succeeded=%d, failed=%d", res.Succeeded, res.Failed)
	if res.Skipped > 0 {
		tally += fmt.Sprintf(", not attempted=%d", res.Skipped)
	}

	if merr == nil && res.Skipped == 0 {
		res.OK = true
		res.Message = "parallel execution finished: " + tally
		return res
	}

	res.Message = "parallel execution finished with errors: " + tally
	if merr != nil {
		merr.ErrorFormat = formatFailures
		res.Message += "\n" + merr.Error()
	}
	return res
}

func outcomeError(o Outcome) error {
	if o.Statement == "" {
		return errors.New(o.Err)
	}
	return fmt.Errorf("%s: %s", o.Statement, o.Err)
}

// formatFailures lists the first MaxReportedFailures errors
func formatFailures(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == MaxReportedFailures {
			fmt.Fprintf(&b, "  ... and %d more", len(errs)-MaxReportedFailures)
			break
		}
		fmt.Fprintf(&b, "  - %v", err)
	}
	return b.String()
}
