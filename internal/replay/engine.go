// Package replay executes split SQL statements against MySQL.
//
// Ordered statements run in one transaction on a single connection
// (Sequential). INSERT statements fan out over independent autocommit
// connections (Parallel). Neither returns a Go error: every outcome is
// reported in a Result so one bad file never stops a run.
package replay

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Tawesh/idb-to-sql/internal/database"
	"github.com/Tawesh/idb-to-sql/internal/logger"
)

// Preview bounds for statement text in reports
const (
	SequentialPreviewLen = 500
	ParallelPreviewLen   = 200
	MaxReportedFailures  = 5
)

// Outcome records what happened to one statement, or to one worker that
// could not connect (Statement is empty in that case).
type Outcome struct {
	Statement string
	Succeeded bool
	Err       string
}

// Result is the structured success/message pair returned by both executors.
type Result struct {
	OK        bool
	Message   string
	Succeeded int
	Failed    int
	// Skipped counts statements never attempted, because of cancellation
	// or because no worker could connect.
	Skipped  int
	Failures []Outcome
}

// Engine runs statement groups against one target database.
type Engine struct {
	connector database.Connector
	cfg       database.ConnectionConfig
	log       logger.Logger
}

// NewEngine creates an engine for cfg. cfg is copied and never modified.
func NewEngine(connector database.Connector, cfg database.ConnectionConfig, log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Engine{
		connector: connector,
		cfg:       cfg,
		log:       log,
	}
}

// openTarget connects to the target database, creating it once if the
// server reports it unknown. Any other connection error is returned as-is.
func (e *Engine) openTarget(ctx context.Context) (*sql.DB, error) {
	db, err := e.connector.Open(ctx, e.cfg, database.ModeTransactional)
	if err == nil {
		return db, nil
	}
	if !database.IsUnknownDatabase(err) {
		return nil, err
	}

	e.log.Info("Target database does not exist, creating it", "database", e.cfg.Database)
	if err := e.createDatabase(ctx); err != nil {
		return nil, fmt.Errorf("create database %s: %w", database.QuoteMySQLIdentifier(e.cfg.Database), err)
	}

	return e.connector.Open(ctx, e.cfg, database.ModeTransactional)
}

func (e *Engine) createDatabase(ctx context.Context) error {
	db, err := e.connector.Open(ctx, e.cfg, database.ModeServer)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, database.CreateDatabaseSQL(e.cfg.Database))
	return err
}
