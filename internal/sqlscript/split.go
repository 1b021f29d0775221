// Package sqlscript turns converted SQL scripts into executable statements
// and sorts them into the groups the replay engine runs.
package sqlscript

import (
	"strings"
	"unicode/utf8"
)

// Split breaks script into trimmed, non-empty statements.
//
// A semicolon ends a statement unless it sits inside a '...', "..." or
// `...` literal or inside a comment. A backslash inside a literal escapes
// exactly one following character. Line comments (-- to end of line) and
// block comments (/* */) are removed from the output, markers included;
// the newline ending a line comment is kept. Text left over after the last
// semicolon is returned as a final statement, and an unterminated literal
// or comment at the end of input is flushed as-is.
func Split(script string) []string {
	var (
		stmts          []string
		current        strings.Builder
		quote          byte
		escaped        bool
		inLineComment  bool
		inBlockComment bool
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(script); i++ {
		ch := script[i]

		switch {
		case inLineComment:
			if ch == '\n' {
				inLineComment = false
				current.WriteByte(ch)
			}
			continue

		case inBlockComment:
			if ch == '*' && i+1 < len(script) && script[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue

		case quote != 0:
			current.WriteByte(ch)
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '-':
			if i+1 < len(script) && script[i+1] == '-' {
				inLineComment = true
				i++
				continue
			}
		case '/':
			if i+1 < len(script) && script[i+1] == '*' {
				inBlockComment = true
				i++
				continue
			}
		case '\'', '"', '`':
			quote = ch
		case ';':
			flush()
			continue
		}
		current.WriteByte(ch)
	}

	flush()
	return stmts
}

// Preview returns at most n characters of stmt, with "..." appended when
// something was cut. It never splits a multi-byte character.
func Preview(stmt string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(stmt) <= n {
		return stmt
	}

	count := 0
	for i := range stmt {
		if count == n {
			return stmt[:i] + "..."
		}
		count++
	}
	return stmt
}
