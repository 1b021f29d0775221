// Package pipeline drives one .ibd file from conversion to replay and
// runs many files concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Tawesh/idb-to-sql/internal/compression"
	"github.com/Tawesh/idb-to-sql/internal/encoding"
	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
	"github.com/Tawesh/idb-to-sql/internal/logger"
	"github.com/Tawesh/idb-to-sql/internal/replay"
	"github.com/Tawesh/idb-to-sql/internal/sqlscript"
)

// ParallelThreshold is the number of INSERT statements a script must
// exceed before they are fanned out over several connections.
const ParallelThreshold = 10

// Converter turns an input table-space file into a SQL script
type Converter interface {
	Convert(ctx context.Context, input, output string) error
}

// Executor runs statement groups against the target database
type Executor interface {
	Sequential(ctx context.Context, stmts []string) replay.Result
	Parallel(ctx context.Context, stmts []string, maxThreads int) replay.Result
}

// Strategy selects how the INSERT group of a script is executed
type Strategy int

const (
	StrategySequential Strategy = iota
	StrategyParallel
)

func (s Strategy) String() string {
	if s == StrategyParallel {
		return "parallel"
	}
	return "sequential"
}

func chooseStrategy(inserts, maxThreads int) Strategy {
	if inserts > ParallelThreshold && maxThreads > 1 {
		return StrategyParallel
	}
	return StrategySequential
}

// FileTask describes one file of a run
type FileTask struct {
	Index      int
	Total      int
	BaseName   string
	Extension  string
	InputDir   string
	OutputDir  string
	MaxThreads int

	// Compression of the converted script; AlgorithmNone writes plain SQL
	Compression compression.Algorithm
}

// InputPath is <InputDir>/<BaseName><Extension>
func (t FileTask) InputPath() string {
	return filepath.Join(t.InputDir, t.BaseName+t.Extension)
}

// OutputPath is <OutputDir>/<BaseName>.sql, plus .gz or .zst when the
// script is stored compressed
func (t FileTask) OutputPath() string {
	return filepath.Join(t.OutputDir, t.BaseName+".sql"+compression.FileExtension(t.Compression))
}

// FileResult is the outcome of one file
type FileResult struct {
	FileName  string
	Converted bool
	Executed  bool
	Message   string
}

// OK reports whether the file was both converted and replayed
func (r FileResult) OK() bool {
	return r.Converted && r.Executed
}

// Pipeline wires a converter and an executor together. It holds no
// per-file state and is shared read-only by all workers of a run.
type Pipeline struct {
	converter Converter
	executor  Executor
	detector  encoding.Detector
	sink      *LogSink
	log       logger.Logger
	now       func() time.Time

	// OnFileDone, when set, is called from the worker goroutine after
	// each file finishes. It must be safe for concurrent use.
	OnFileDone func(FileResult)
}

// New creates a pipeline. sink may be nil, in which case status lines
// only go to log.
func New(conv Converter, exec Executor, sink *LogSink, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Pipeline{
		converter: conv,
		executor:  exec,
		detector:  encoding.ChardetDetector{},
		sink:      sink,
		log:       log,
		now:       time.Now,
	}
}

// WithDetector replaces the encoding detector
func (p *Pipeline) WithDetector(d encoding.Detector) *Pipeline {
	p.detector = d
	return p
}

type emitFunc func(format string, args ...interface{})

func (p *Pipeline) emitter(index, total int, file string) emitFunc {
	return func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		if p.sink == nil {
			p.log.Info(msg, "file", file, "progress", fmt.Sprintf("%d/%d", index, total))
			return
		}
		p.sink.Publish(LogLine{
			Index:   index,
			Total:   total,
			File:    file,
			Message: msg,
			Time:    p.now(),
		})
	}
}

// ProcessFile converts one file and replays the resulting script.
// Failures are reported in the FileResult; ProcessFile never returns an
// error and never affects other files.
func (p *Pipeline) ProcessFile(ctx context.Context, task FileTask) FileResult {
	name := task.BaseName + task.Extension
	emit := p.emitter(task.Index, task.Total, name)
	res := FileResult{FileName: name}

	input, output := task.InputPath(), task.OutputPath()
	emit("converting %s", input)
	start := p.now()
	if err := p.converter.Convert(ctx, input, output); err != nil {
		res.Message = "conversion failed: " + describe(err)
		emit("%s", res.Message)
		return res
	}
	res.Converted = true
	emit("converted to %s in %s", output, p.now().Sub(start).Round(time.Millisecond))

	res.Executed, res.Message = p.replayScript(ctx, output, task.MaxThreads, emit)
	if res.Executed {
		emit("done: %s", res.Message)
	} else {
		emit("failed: %s", res.Message)
	}
	return res
}

// ReplayScript executes an existing SQL script file, ordered statements
// first, then INSERT statements.
func (p *Pipeline) ReplayScript(ctx context.Context, path string, maxThreads int) (bool, string) {
	return p.replayScript(ctx, path, maxThreads, p.emitter(1, 1, filepath.Base(path)))
}

func (p *Pipeline) replayScript(ctx context.Context, path string, maxThreads int, emit emitFunc) (bool, string) {
	raw, algo, err := compression.ReadScript(path)
	if err != nil {
		return false, fmt.Sprintf("cannot read %s: %v", path, err)
	}

	enc := p.detector.Detect(raw)
	if algo != compression.AlgorithmNone {
		emit("read %s (%s), detected encoding %s", humanize.Bytes(uint64(len(raw))), algo, enc)
	} else {
		emit("read %s, detected encoding %s", humanize.Bytes(uint64(len(raw))), enc)
	}
	text, err := encoding.Decode(raw, enc)
	if err != nil {
		return false, describe(apperrors.DecodeFailed(path, enc, err))
	}
	raw = nil

	groups := sqlscript.Classify(sqlscript.Split(text))
	text = ""
	if groups.Total() == 0 {
		return true, "no executable statements"
	}
	emit("%d statements: %d ordered, %d INSERT", groups.Total(), len(groups.Ordered), len(groups.Unordered))

	if len(groups.Ordered) > 0 {
		emit("executing %d ordered statements in one transaction", len(groups.Ordered))
		r := p.executor.Sequential(ctx, groups.Ordered)
		if !r.OK {
			return false, "ordered statements failed: " + r.Message
		}
		emit("%s", r.Message)
	}

	if n := len(groups.Unordered); n > 0 {
		if ctx.Err() != nil {
			return false, fmt.Sprintf("cancelled before %d INSERT statements", n)
		}

		var r replay.Result
		switch chooseStrategy(n, maxThreads) {
		case StrategyParallel:
			emit("using %d threads to run %d INSERT statements", min(maxThreads, n), n)
			r = p.executor.Parallel(ctx, groups.Unordered, maxThreads)
		default:
			emit("running %d INSERT statements in one transaction", n)
			r = p.executor.Sequential(ctx, groups.Unordered)
		}
		if !r.OK {
			return false, "INSERT statements failed: " + r.Message
		}
		emit("%s", r.Message)
	}

	return true, fmt.Sprintf("executed %d statements", groups.Total())
}

// describe flattens an error into a single status message
func describe(err error) string {
	var re *apperrors.ReplayError
	if errors.As(err, &re) {
		if re.Details != "" {
			return re.Message + ": " + re.Details
		}
		if re.Cause != nil {
			return fmt.Sprintf("%s: %v", re.Message, re.Cause)
		}
		return re.Message
	}
	return err.Error()
}
