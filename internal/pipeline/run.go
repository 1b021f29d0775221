package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tawesh/idb-to-sql/internal/compression"
	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
	"github.com/Tawesh/idb-to-sql/internal/fs"
)

// OutputDirPrefix names the default output directory
const OutputDirPrefix = "sql_output_"

// Options configure a run
type Options struct {
	InputDir  string
	OutputDir string // defaults to DefaultOutputDir(InputDir, now)
	Extension string
	Processes int
	Threads   int

	// Compression of converted scripts in OutputDir
	Compression compression.Algorithm
}

// Summary reports a whole run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	OutputDir string
	Failures  []FileResult
	Cancelled bool
	Elapsed   time.Duration
}

// DefaultOutputDir returns <parent of inputDir>/sql_output_<YYYYmmdd_HHMMSS>
func DefaultOutputDir(inputDir string, now time.Time) string {
	parent := filepath.Dir(filepath.Clean(inputDir))
	return filepath.Join(parent, OutputDirPrefix+now.Format("20060102_150405"))
}

// Run discovers every input file, processes up to Processes of them at a
// time and summarises the results. Setup problems (missing input
// directory, unusable output directory) are returned as errors; per-file
// failures only show up in the Summary. The sink is closed when Run
// returns.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Summary, error) {
	defer p.sink.Close()
	start := p.now()

	if ok, err := fs.DirExists(opts.InputDir); !ok {
		return Summary{}, apperrors.InputNotFound(opts.InputDir, err)
	}

	out := opts.OutputDir
	if out == "" {
		out = DefaultOutputDir(opts.InputDir, start)
	}
	if err := fs.MkdirAll(out, 0755); err != nil {
		return Summary{}, apperrors.InvalidConfig("output directory", err.Error()).WithCause(err)
	}

	names, err := fs.BaseNamesWithExt(opts.InputDir, opts.Extension)
	if err != nil {
		return Summary{}, apperrors.InputNotFound(opts.InputDir, err)
	}

	summary := Summary{Total: len(names), OutputDir: out}
	if len(names) == 0 {
		p.log.Warn("No input files found", "dir", opts.InputDir, "extension", opts.Extension)
		return summary, nil
	}

	processes := opts.Processes
	if processes < 1 {
		processes = 1
	}
	p.log.Info("Starting run",
		"files", len(names),
		"processes", processes,
		"threads", opts.Threads,
		"output", out)

	results := make([]FileResult, len(names))
	g := new(errgroup.Group)
	g.SetLimit(processes)
	for i, base := range names {
		i, base := i, base
		g.Go(func() error {
			task := FileTask{
				Index:      i + 1,
				Total:      len(names),
				BaseName:   base,
				Extension:  opts.Extension,
				InputDir:   opts.InputDir,
				OutputDir:  out,
				MaxThreads: opts.Threads,

				Compression: opts.Compression,
			}
			if ctx.Err() != nil {
				results[i] = FileResult{FileName: base + opts.Extension, Message: "skipped: run cancelled"}
			} else {
				results[i] = p.ProcessFile(ctx, task)
			}
			if p.OnFileDone != nil {
				p.OnFileDone(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.OK() {
			summary.Succeeded++
			continue
		}
		summary.Failures = append(summary.Failures, r)
	}
	summary.Failed = summary.Total - summary.Succeeded
	summary.Cancelled = ctx.Err() != nil
	summary.Elapsed = p.now().Sub(start)
	return summary, nil
}
