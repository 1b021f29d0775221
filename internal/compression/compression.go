// Package compression reads and writes SQL scripts stored plain, gzip
// (parallel pgzip) or zstd compressed.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/Tawesh/idb-to-sql/internal/fs"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	AlgorithmNone Algorithm = "none"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmZstd Algorithm = "zstd"
)

// Magic bytes for format detection
var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

// ParseAlgorithm accepts "none", "", "gzip", "gz", "zstd" and "zstandard".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return AlgorithmNone, nil
	case "gzip", "gz":
		return AlgorithmGzip, nil
	case "zstd", "zstandard":
		return AlgorithmZstd, nil
	default:
		return AlgorithmNone, fmt.Errorf("unsupported compression algorithm %q (supported: none, gzip, zstd)", s)
	}
}

// DetectAlgorithm determines the algorithm from a file name
func DetectAlgorithm(filePath string) Algorithm {
	lower := strings.ToLower(filePath)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return AlgorithmGzip
	case strings.HasSuffix(lower, ".zst") || strings.HasSuffix(lower, ".zstd"):
		return AlgorithmZstd
	default:
		return AlgorithmNone
	}
}

// DetectAlgorithmFromBytes detects the algorithm from magic bytes
func DetectAlgorithmFromBytes(data []byte) Algorithm {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return AlgorithmGzip
	case bytes.HasPrefix(data, magicZstd):
		return AlgorithmZstd
	default:
		return AlgorithmNone
	}
}

// FileExtension returns the file suffix for an algorithm
func FileExtension(algo Algorithm) string {
	switch algo {
	case AlgorithmGzip:
		return ".gz"
	case AlgorithmZstd:
		return ".zst"
	default:
		return ""
	}
}

// StripExtension removes the compression suffix from a file name
func StripExtension(filePath string) string {
	lower := strings.ToLower(filePath)
	for _, ext := range []string{".gz", ".zstd", ".zst"} {
		if strings.HasSuffix(lower, ext) {
			return filePath[:len(filePath)-len(ext)]
		}
	}
	return filePath
}

// Decompressor wraps a decompression reader with a unified Close
type Decompressor struct {
	Reader    io.Reader
	closer    io.Closer
	algorithm Algorithm
}

// Close releases the decompression reader
func (d *Decompressor) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Algorithm returns the algorithm being decoded
func (d *Decompressor) Algorithm() Algorithm {
	return d.algorithm
}

// NewDecompressor wraps reader for algo. AlgorithmNone passes reader through.
func NewDecompressor(reader io.Reader, algo Algorithm) (*Decompressor, error) {
	switch algo {
	case AlgorithmGzip:
		gz, err := pgzip.NewReaderN(reader, 1<<20, workers())
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &Decompressor{Reader: gz, closer: gz, algorithm: algo}, nil
	case AlgorithmZstd:
		dec, err := zstd.NewReader(reader, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return &Decompressor{Reader: dec, closer: dec.IOReadCloser(), algorithm: algo}, nil
	case AlgorithmNone:
		return &Decompressor{Reader: reader, algorithm: AlgorithmNone}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algo)
	}
}

// Compressor wraps a compression writer. Close must be called to flush it;
// it does not close the underlying writer.
type Compressor struct {
	Writer    io.Writer
	closer    io.Closer
	algorithm Algorithm
}

func (c *Compressor) Write(p []byte) (int, error) {
	return c.Writer.Write(p)
}

// Close flushes the compressed stream
func (c *Compressor) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// NewCompressor wraps writer for algo using default levels
func NewCompressor(writer io.Writer, algo Algorithm) (*Compressor, error) {
	switch algo {
	case AlgorithmGzip:
		gz, err := pgzip.NewWriterLevel(writer, pgzip.DefaultCompression)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		if err := gz.SetConcurrency(1<<20, workers()); err != nil {
			_ = gz.Close()
			return nil, fmt.Errorf("failed to configure parallel gzip: %w", err)
		}
		return &Compressor{Writer: gz, closer: gz, algorithm: algo}, nil
	case AlgorithmZstd:
		enc, err := zstd.NewWriter(writer, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return &Compressor{Writer: enc, closer: enc, algorithm: algo}, nil
	case AlgorithmNone:
		return &Compressor{Writer: writer, algorithm: AlgorithmNone}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algo)
	}
}

// ReadScript reads a whole script, decompressing it when its leading bytes
// mark it as gzip or zstd. The file name is not consulted.
func ReadScript(path string) ([]byte, Algorithm, error) {
	raw, err := fs.ReadFile(path)
	if err != nil {
		return nil, AlgorithmNone, err
	}
	algo := DetectAlgorithmFromBytes(raw)
	if algo == AlgorithmNone {
		return raw, algo, nil
	}

	dec, err := NewDecompressor(bytes.NewReader(raw), algo)
	if err != nil {
		return nil, algo, err
	}
	defer dec.Close()

	out, err := io.ReadAll(dec.Reader)
	if err != nil {
		return nil, algo, fmt.Errorf("decompress %s (%s): %w", path, algo, err)
	}
	return out, algo, nil
}

func workers() int {
	n := runtime.NumCPU()
	if n > 16 {
		n = 16
	}
	return n
}
