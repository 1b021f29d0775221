package sqlscript

import (
	"strings"
	"unicode"
)

// Groups holds one script's statements sorted by how they may be executed.
type Groups struct {
	// Unordered are INSERT statements; they are treated as independent of
	// each other, even across tables with foreign keys between them.
	Unordered []string
	// Ordered is everything else, kept in script order.
	Ordered []string
}

// Total returns the number of statements across both groups
func (g Groups) Total() int {
	return len(g.Unordered) + len(g.Ordered)
}

// Classify partitions stmts into INSERTs and everything else, preserving
// relative order within each group.
func Classify(stmts []string) Groups {
	var g Groups
	for _, stmt := range stmts {
		if IsInsert(stmt) {
			g.Unordered = append(g.Unordered, stmt)
		} else {
			g.Ordered = append(g.Ordered, stmt)
		}
	}
	return g
}

// IsInsert reports whether the first word of stmt is INSERT, ignoring case
// and leading whitespace.
func IsInsert(stmt string) bool {
	return strings.EqualFold(firstWord(stmt), "INSERT")
}

func firstWord(stmt string) string {
	stmt = strings.TrimLeftFunc(stmt, unicode.IsSpace)
	end := 0
	for end < len(stmt) {
		c := stmt[end]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			break
		}
		end++
	}
	return stmt[:end]
}
