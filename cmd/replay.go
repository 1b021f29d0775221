package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Tawesh/idb-to-sql/internal/converter"
	"github.com/Tawesh/idb-to-sql/internal/database"
	"github.com/Tawesh/idb-to-sql/internal/fs"
	"github.com/Tawesh/idb-to-sql/internal/logger"
	"github.com/Tawesh/idb-to-sql/internal/pipeline"
	"github.com/Tawesh/idb-to-sql/internal/progress"
	"github.com/Tawesh/idb-to-sql/internal/replay"
)

var (
	replayInput         string
	replaySkipPreflight bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [input-dir]",
	Short: "Convert every .ibd file in a directory and replay it into MySQL",
	Long: `Convert every file with the input extension (default .ibd) found directly
inside the input directory, then execute the resulting SQL against the target
database.

Up to --processes files are handled at once. Within one file, ordered
statements (DDL and anything that is not an INSERT) run in one transaction and
must succeed before its INSERT statements start. More than 10 INSERT
statements are spread over --threads autocommit connections.

Examples:
  # Replay ./ibd into database shop
  ibdreplay replay ./ibd -d shop

  # Eight files at a time, scripts kept in /tmp/sql
  ibdreplay replay --input ./ibd -d shop --processes 8 -o /tmp/sql`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			replayInput = args[0]
		}
		return runReplay(cmd.Context(), replayInput)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "", "Directory holding the input files")
	replayCmd.Flags().BoolVar(&replaySkipPreflight, "skip-preflight", false, "Do not test the MySQL connection before starting")
}

func runReplay(ctx context.Context, input string) error {
	if input == "" {
		return fmt.Errorf("input directory required (use --input or pass it as argument)")
	}
	cfg.InputDir = input
	if err := cfg.Validate(); err != nil {
		return err
	}

	conv := converter.New(cfg.Converter, log)
	if _, err := conv.Check(); err != nil {
		return err
	}

	connector := database.NewMySQLConnector(log)
	conn := cfg.ConnectionConfig()
	if !replaySkipPreflight {
		if err := database.Preflight(ctx, connector, conn); err != nil {
			return err
		}
	}

	total := 0
	if names, err := fs.BaseNamesWithExt(cfg.InputDir, cfg.Extension); err == nil {
		total = len(names)
	}

	sink := pipeline.NewLogSink(256)
	p := pipeline.New(conv, replay.NewEngine(connector, conn, log), sink, log)

	bar := progress.NewIndicator(!cfg.NoProgress && stderrIsTerminal(), os.Stderr, total, "Replaying")
	p.OnFileDone = func(r pipeline.FileResult) { bar.Done(r.OK()) }

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		pipeline.Drain(sink, func(line pipeline.LogLine) {
			log.Info(line.Message,
				"file", line.File,
				"progress", fmt.Sprintf("%d/%d", line.Index, line.Total))
		})
	}()

	log.Info("Replaying", "input", cfg.InputDir, "target", conn.String())
	summary, err := p.Run(ctx, pipeline.Options{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Extension: cfg.Extension,
		Processes: cfg.Processes,
		Threads:   cfg.Threads,

		Compression: cfg.Compression(),
	})
	<-drained
	bar.Finish()
	if err != nil {
		return err
	}

	printSummary(os.Stdout, summary)

	if summary.Cancelled {
		return context.Canceled
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
	}
	return nil
}

func printSummary(w io.Writer, s pipeline.Summary) {
	fmt.Fprintln(w)
	_, _ = logger.HighlightColor.Fprintln(w, "Replay summary")
	logger.StatusLine(w, "Files", humanize.Comma(int64(s.Total)))
	logger.StatusLine(w, "Succeeded", logger.Green(humanize.Comma(int64(s.Succeeded))))
	failed := humanize.Comma(int64(s.Failed))
	if s.Failed > 0 {
		failed = logger.Red(failed)
	}
	logger.StatusLine(w, "Failed", failed)
	logger.StatusLine(w, "SQL output", s.OutputDir)
	logger.StatusLine(w, "Elapsed", s.Elapsed.Round(time.Millisecond).String())
	if s.Cancelled {
		logger.StatusLine(w, "Status", "interrupted")
	}

	for _, f := range s.Failures {
		_, _ = logger.ErrorColor.Fprintf(w, "  ✗ %s", f.FileName)
		fmt.Fprintf(w, ": %s\n", f.Message)
	}
}
