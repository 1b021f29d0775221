package sqlscript

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestIsInsert(t *testing.T) {
	tests := []struct {
		stmt string
		want bool
	}{
		{"INSERT INTO t VALUES (1)", true},
		{"insert into t values (1)", true},
		{"InSeRt INTO t VALUES (1)", true},
		{"  \n\tINSERT INTO t VALUES (1)", true},
		{"INSERT(1)", true},
		{"INSERTED INTO t", false},
		{"REPLACE INTO t VALUES (1)", false},
		{"SELECT 'INSERT'", false},
		{"CREATE TABLE t (id INT)", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := IsInsert(tt.stmt); got != tt.want {
			t.Errorf("IsInsert(%q) = %v, want %v", tt.stmt, got, tt.want)
		}
	}
}

func TestClassifyPreservesOrder(t *testing.T) {
	stmts := []string{
		"CREATE TABLE a (id INT)",
		"INSERT INTO a VALUES (1)",
		"ALTER TABLE a ADD COLUMN x INT",
		"insert into a values (2)",
		"DROP TABLE IF EXISTS b",
	}

	g := Classify(stmts)

	wantUnordered := []string{"INSERT INTO a VALUES (1)", "insert into a values (2)"}
	wantOrdered := []string{"CREATE TABLE a (id INT)", "ALTER TABLE a ADD COLUMN x INT", "DROP TABLE IF EXISTS b"}

	if !reflect.DeepEqual(g.Unordered, wantUnordered) {
		t.Errorf("Unordered = %q, want %q", g.Unordered, wantUnordered)
	}
	if !reflect.DeepEqual(g.Ordered, wantOrdered) {
		t.Errorf("Ordered = %q, want %q", g.Ordered, wantOrdered)
	}
	if g.Total() != len(stmts) {
		t.Errorf("Total() = %d, want %d", g.Total(), len(stmts))
	}
}

func TestClassifyEmpty(t *testing.T) {
	g := Classify(nil)
	if g.Total() != 0 || g.Unordered != nil || g.Ordered != nil {
		t.Errorf("expected empty groups, got %+v", g)
	}
}

// Every statement lands in exactly one group.
func TestClassifyCompleteness(t *testing.T) {
	pool := []string{
		"INSERT INTO t VALUES (%d)",
		"CREATE TABLE t%d (id INT)",
		"UPDATE t SET x = %d",
		"insert into u values (%d)",
		"SET @x = %d",
	}
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 100; iter++ {
		n := rng.Intn(50)
		stmts := make([]string, n)
		for i := range stmts {
			// unique strings make membership counting exact
			stmts[i] = pool[rng.Intn(len(pool))] + " -- " + string(rune('a'+i%26)) + string(rune('0'+i/26))
		}

		g := Classify(stmts)
		if len(g.Unordered)+len(g.Ordered) != len(stmts) {
			t.Fatalf("lost statements: %d + %d != %d", len(g.Unordered), len(g.Ordered), len(stmts))
		}

		seen := make(map[string]int, n)
		for _, s := range g.Unordered {
			seen[s]++
		}
		for _, s := range g.Ordered {
			seen[s]++
		}
		for _, s := range stmts {
			if seen[s] != 1 {
				t.Fatalf("statement %q appears %d times across groups", s, seen[s])
			}
		}
	}
}
