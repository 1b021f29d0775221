// Package encoding detects and decodes the text encoding of converted scripts.
package encoding

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// Default is used whenever detection is inconclusive.
const Default = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// chardet reports a few names that neither index knows
var aliases = map[string]string{
	"gb-18030":     "gb18030",
	"iso-8859-8-i": "iso-8859-8",
}

// Detector guesses the encoding of raw script bytes.
type Detector interface {
	Detect(raw []byte) string
}

// ChardetDetector detects encodings with saintfish/chardet.
type ChardetDetector struct{}

// Detect returns a best-guess encoding name, Default when unsure.
// Valid UTF-8 (including plain ASCII) is reported as UTF-8 without
// consulting chardet, which tends to label ASCII as ISO-8859-1.
func (ChardetDetector) Detect(raw []byte) string {
	if len(raw) == 0 {
		return Default
	}
	if utf8.Valid(bytes.TrimPrefix(raw, utf8BOM)) {
		return Default
	}

	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil || result.Charset == "" {
		return Default
	}
	return strings.ToLower(result.Charset)
}

// Detect runs the default detector
func Detect(raw []byte) string {
	return ChardetDetector{}.Detect(raw)
}

// Decode converts raw bytes in the named encoding to a Go string.
// UTF-8 input must be valid; a leading byte order mark is dropped.
func Decode(raw []byte, name string) (string, error) {
	name = normalize(name)

	if isUTF8(name) {
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid UTF-8 sequence at byte %d", invalidOffset(raw))
		}
		return string(raw), nil
	}

	enc, err := lookup(name)
	if err != nil {
		return "", err
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return strings.TrimPrefix(string(decoded), "\uFEFF"), nil
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default
	}
	if alias, ok := aliases[name]; ok {
		return alias
	}
	return name
}

func isUTF8(name string) bool {
	switch name {
	case "utf-8", "utf8", "ascii", "us-ascii":
		return true
	}
	return false
}

func lookup(name string) (xenc.Encoding, error) {
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
