package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tawesh/idb-to-sql/internal/database"
	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
	"github.com/Tawesh/idb-to-sql/internal/fs"
	"github.com/Tawesh/idb-to-sql/internal/logger"
	"github.com/Tawesh/idb-to-sql/internal/pipeline"
	"github.com/Tawesh/idb-to-sql/internal/replay"
)

var execCmd = &cobra.Command{
	Use:   "exec <script.sql>",
	Short: "Execute an existing SQL script against MySQL",
	Long: `Execute one SQL script the same way replay does after conversion: ordered
statements in one transaction first, then INSERT statements, in parallel when
there are more than 10 of them. The script encoding is detected automatically.

Examples:
  ibdreplay exec dump/orders.sql -d shop
  ibdreplay exec dump/orders.sql -d shop --threads 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExec(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(ctx context.Context, path string) error {
	if ok, _ := fs.Exists(path); !ok {
		return apperrors.InputNotFound(path, nil)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	connector := database.NewMySQLConnector(log)
	conn := cfg.ConnectionConfig()
	if err := database.Preflight(ctx, connector, conn); err != nil {
		return err
	}

	op := log.StartOperation("exec")
	start := time.Now()
	p := pipeline.New(nil, replay.NewEngine(connector, conn, log), nil, log)
	ok, msg := p.ReplayScript(ctx, path, cfg.Threads)
	if !ok {
		op.Fail("Script failed", "file", path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewDataError(apperrors.ErrCodeStatementFailed, msg,
			"Fix the failing statement and run exec again; ordered statements were rolled back.")
	}
	op.Complete("Script executed", "file", path)
	logger.Success("%s: %s (%s)", path, msg, time.Since(start).Round(time.Millisecond))
	return nil
}
