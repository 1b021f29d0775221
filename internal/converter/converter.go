// Package converter runs the external ibd-to-SQL tool.
package converter

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Tawesh/idb-to-sql/internal/compression"
	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
	"github.com/Tawesh/idb-to-sql/internal/fs"
	"github.com/Tawesh/idb-to-sql/internal/logger"
)

// stderrTail bounds how much converter stderr ends up in error messages
const stderrTail = 4 << 10

// Args are passed after the input path
var Args = []string{"--ddl", "--sql"}

// Converter invokes `<Binary> <input> --ddl --sql` with stdout redirected
// to the output script.
type Converter struct {
	Binary string
	log    logger.Logger

	// LookPathFunc can be overridden in tests to stub exec.LookPath.
	LookPathFunc func(file string) (string, error)
}

// New creates a converter for binary
func New(binary string, log logger.Logger) *Converter {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &Converter{
		Binary:       binary,
		log:          log,
		LookPathFunc: exec.LookPath,
	}
}

// Check verifies the converter binary can be found.
func (c *Converter) Check() (string, error) {
	path, err := c.LookPathFunc(c.Binary)
	if err != nil {
		c.log.Debug("converter not found", "tool", c.Binary, "error", err)
		return "", apperrors.ToolMissing(c.Binary, "convert InnoDB table-space files to SQL")
	}
	c.log.Debug("converter found", "tool", c.Binary, "path", path)
	return path, nil
}

// Convert runs the converter on input and writes its stdout to output.
// An output name ending in .gz or .zst is written compressed.
// A non-zero exit is reported with the tail of the tool's stderr.
// A conversion that has started is allowed to finish even if ctx is
// cancelled; ctx is only checked before starting.
func (c *Converter) Convert(ctx context.Context, input, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	input = filepath.Clean(input)
	output = filepath.Clean(output)

	out, err := fs.Create(output)
	if err != nil {
		return apperrors.ConversionFailed(input, fmt.Sprintf("cannot create %s", output), err)
	}
	defer out.Close()

	sink, err := compression.NewCompressor(out, compression.DetectAlgorithm(output))
	if err != nil {
		return apperrors.ConversionFailed(input, err.Error(), err)
	}

	stderr := &tailBuffer{max: stderrTail}
	cmd := safeCommand(c.Binary, append([]string{input}, Args...)...)
	cmd.Stdout = sink
	cmd.Stderr = stderr

	c.log.Debug("Running converter", "cmd", c.Binary, "input", input, "output", output)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		_ = sink.Close()
		return apperrors.ConversionFailed(input, msg, err)
	}

	if err := sink.Close(); err != nil {
		return apperrors.ConversionFailed(input, fmt.Sprintf("cannot write %s", output), err)
	}
	if err := out.Close(); err != nil {
		return apperrors.ConversionFailed(input, fmt.Sprintf("cannot write %s", output), err)
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
