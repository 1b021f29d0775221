package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/Tawesh/idb-to-sql/internal/database"
)

// fakeConnector hands out handles chosen by open and records the modes asked for.
type fakeConnector struct {
	mu    sync.Mutex
	modes []database.Mode
	open  func(mode database.Mode) (*sql.DB, error)
}

func (f *fakeConnector) Open(ctx context.Context, cfg database.ConnectionConfig, mode database.Mode) (*sql.DB, error) {
	f.mu.Lock()
	f.modes = append(f.modes, mode)
	f.mu.Unlock()
	return f.open(mode)
}

func (f *fakeConnector) Modes() []database.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.Mode(nil), f.modes...)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock
}

func testConfig() database.ConnectionConfig {
	return database.ConnectionConfig{Host: "localhost", Port: 3306, User: "root", Database: "shop"}
}

func single(db *sql.DB) *fakeConnector {
	return &fakeConnector{open: func(database.Mode) (*sql.DB, error) { return db, nil }}
}

// =============================================================================
// Sequential
// =============================================================================

func TestSequential_CommitsAll(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE t (id INT)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ALTER TABLE t ADD COLUMN x INT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectClose()

	conn := single(db)
	res := NewEngine(conn, testConfig(), nil).Sequential(context.Background(),
		[]string{"CREATE TABLE t (id INT)", "   ", "ALTER TABLE t ADD COLUMN x INT"})

	if !res.OK {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if res.Succeeded != 2 || res.Failed != 0 {
		t.Errorf("tally = %d/%d, want 2/0", res.Succeeded, res.Failed)
	}
	if got := conn.Modes(); !reflect.DeepEqual(got, []database.Mode{database.ModeTransactional}) {
		t.Errorf("modes = %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSequential_RollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO a VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO missing VALUES (2)").
		WillReturnError(errors.New("Error 1146: Table 'shop.missing' doesn't exist"))
	mock.ExpectRollback()
	mock.ExpectClose()

	res := NewEngine(single(db), testConfig(), nil).Sequential(context.Background(), []string{
		"INSERT INTO a VALUES (1)",
		"INSERT INTO missing VALUES (2)",
		"INSERT INTO a VALUES (3)",
	})

	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Succeeded != 0 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("tally = ok:%d failed:%d skipped:%d, want 0/1/1", res.Succeeded, res.Failed, res.Skipped)
	}
	for _, want := range []string{"statement 2", "INSERT INTO missing VALUES (2)", "doesn't exist", "rolled back"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message %q missing %q", res.Message, want)
		}
	}
	// The third statement was never sent
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSequential_TruncatesFailingStatement(t *testing.T) {
	long := "INSERT INTO t VALUES ('" + strings.Repeat("x", 1000) + "')"

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(long).WillReturnError(errors.New("Data too long"))
	mock.ExpectRollback()
	mock.ExpectClose()

	res := NewEngine(single(db), testConfig(), nil).Sequential(context.Background(), []string{long})
	if res.OK {
		t.Fatal("expected failure")
	}
	if strings.Contains(res.Message, long) {
		t.Error("message should not carry the full statement")
	}
	if len(res.Failures) != 1 || len([]rune(res.Failures[0].Statement)) != SequentialPreviewLen+3 {
		t.Errorf("failure preview has unexpected length: %+v", res.Failures)
	}
}

func TestSequential_CreatesMissingDatabase(t *testing.T) {
	txDB, txMock := newMockDB(t)
	txMock.ExpectBegin()
	txMock.ExpectExec("CREATE TABLE t (id INT)").WillReturnResult(sqlmock.NewResult(0, 0))
	txMock.ExpectCommit()
	txMock.ExpectClose()

	srvDB, srvMock := newMockDB(t)
	srvMock.ExpectExec(database.CreateDatabaseSQL("shop")).WillReturnResult(sqlmock.NewResult(1, 1))
	srvMock.ExpectClose()

	first := true
	conn := &fakeConnector{open: func(mode database.Mode) (*sql.DB, error) {
		switch {
		case mode == database.ModeServer:
			return srvDB, nil
		case first:
			first = false
			return nil, &mysql.MySQLError{Number: 1049, Message: "Unknown database 'shop'"}
		default:
			return txDB, nil
		}
	}}

	res := NewEngine(conn, testConfig(), nil).Sequential(context.Background(), []string{"CREATE TABLE t (id INT)"})
	if !res.OK {
		t.Fatalf("expected success, got %q", res.Message)
	}

	want := []database.Mode{database.ModeTransactional, database.ModeServer, database.ModeTransactional}
	if got := conn.Modes(); !reflect.DeepEqual(got, want) {
		t.Errorf("modes = %v, want %v", got, want)
	}
	if err := srvMock.ExpectationsWereMet(); err != nil {
		t.Errorf("server connection: %v", err)
	}
	if err := txMock.ExpectationsWereMet(); err != nil {
		t.Errorf("target connection: %v", err)
	}
}

func TestSequential_CreateDatabaseFails(t *testing.T) {
	srvDB, srvMock := newMockDB(t)
	srvMock.ExpectExec(database.CreateDatabaseSQL("shop")).
		WillReturnError(&mysql.MySQLError{Number: 1044, Message: "Access denied"})
	srvMock.ExpectClose()

	conn := &fakeConnector{open: func(mode database.Mode) (*sql.DB, error) {
		if mode == database.ModeServer {
			return srvDB, nil
		}
		return nil, &mysql.MySQLError{Number: 1049}
	}}

	res := NewEngine(conn, testConfig(), nil).Sequential(context.Background(), []string{"CREATE TABLE t (id INT)"})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "create database") {
		t.Errorf("message %q should mention database creation", res.Message)
	}
	if got := conn.Modes(); len(got) != 2 {
		t.Errorf("expected no reconnect after failed creation, modes = %v", got)
	}
}

func TestSequential_OtherConnectionErrorIsFatal(t *testing.T) {
	conn := &fakeConnector{open: func(database.Mode) (*sql.DB, error) {
		return nil, &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'root'"}
	}}

	res := NewEngine(conn, testConfig(), nil).Sequential(context.Background(), []string{"SELECT 1"})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "connection failed") {
		t.Errorf("message = %q", res.Message)
	}
	if got := conn.Modes(); !reflect.DeepEqual(got, []database.Mode{database.ModeTransactional}) {
		t.Errorf("only one connection attempt expected, modes = %v", got)
	}
}

func TestSequential_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE t (id INT)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errors.New("connection lost"))
	mock.ExpectClose()

	res := NewEngine(single(db), testConfig(), nil).Sequential(context.Background(), []string{"CREATE TABLE t (id INT)"})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "commit failed") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestSequential_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := &fakeConnector{open: func(database.Mode) (*sql.DB, error) {
		return nil, errors.New("should not connect")
	}}
	res := NewEngine(conn, testConfig(), nil).Sequential(ctx, []string{"SELECT 1", "SELECT 2"})
	if res.OK || res.Skipped != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(conn.Modes()) != 0 {
		t.Error("a cancelled run must not connect")
	}
}

// =============================================================================
// Parallel
// =============================================================================

// perWorker opens a fresh mock for each worker. Every mock accepts every
// statement in any order since the queue decides who runs what.
func perWorker(stmts []string, bad map[string]bool) *fakeConnector {
	return &fakeConnector{open: func(mode database.Mode) (*sql.DB, error) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		if err != nil {
			return nil, err
		}
		mock.MatchExpectationsInOrder(false)
		for _, stmt := range stmts {
			if bad[stmt] {
				mock.ExpectExec(stmt).WillReturnError(fmt.Errorf("Error 1062: Duplicate entry for %q", stmt))
			} else {
				mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(1, 1))
			}
		}
		return db, nil
	}}
}

func inserts(n int) []string {
	stmts := make([]string, n)
	for i := range stmts {
		stmts[i] = fmt.Sprintf("INSERT INTO t VALUES (%d)", i+1)
	}
	return stmts
}

func TestParallel_PartialFailureIsolation(t *testing.T) {
	stmts := inserts(10)
	bad := map[string]bool{stmts[3]: true, stmts[7]: true}
	conn := perWorker(stmts, bad)

	res := NewEngine(conn, testConfig(), nil).Parallel(context.Background(), stmts, 4)

	if res.OK {
		t.Fatal("expected overall failure")
	}
	if res.Succeeded != 8 || res.Failed != 2 || res.Skipped != 0 {
		t.Errorf("tally = ok:%d failed:%d skipped:%d, want 8/2/0", res.Succeeded, res.Failed, res.Skipped)
	}
	if !strings.Contains(res.Message, "succeeded=8, failed=2") {
		t.Errorf("message = %q", res.Message)
	}
	for _, f := range res.Failures {
		if !bad[f.Statement] {
			t.Errorf("unexpected failure for %q", f.Statement)
		}
	}

	modes := conn.Modes()
	if len(modes) != 4 {
		t.Errorf("expected 4 worker connections, got %d", len(modes))
	}
	for _, m := range modes {
		if m != database.ModeAutoCommit {
			t.Errorf("worker opened with %v, want autocommit", m)
		}
	}
}

func TestParallel_AllSucceed(t *testing.T) {
	stmts := inserts(12)
	res := NewEngine(perWorker(stmts, nil), testConfig(), nil).Parallel(context.Background(), stmts, 3)
	if !res.OK {
		t.Fatalf("expected success: %q", res.Message)
	}
	if res.Succeeded != 12 {
		t.Errorf("Succeeded = %d", res.Succeeded)
	}
	if !strings.Contains(res.Message, "succeeded=12, failed=0") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestParallel_WorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		threads int
		want    int
	}{
		{"bounded by statements", 3, 8, 3},
		{"bounded by threads", 20, 5, 5},
		{"at least one", 4, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := inserts(tt.n)
			conn := perWorker(stmts, nil)
			res := NewEngine(conn, testConfig(), nil).Parallel(context.Background(), stmts, tt.threads)
			if !res.OK {
				t.Fatalf("unexpected failure: %q", res.Message)
			}
			if got := len(conn.Modes()); got != tt.want {
				t.Errorf("workers = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParallel_WorkerConnectionFailure(t *testing.T) {
	stmts := inserts(4)
	healthy := perWorker(stmts, nil)

	var mu sync.Mutex
	calls := 0
	conn := &fakeConnector{open: func(mode database.Mode) (*sql.DB, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return healthy.open(mode)
	}}

	res := NewEngine(conn, testConfig(), nil).Parallel(context.Background(), stmts, 2)
	if res.OK {
		t.Fatal("a failed worker connection must fail the group")
	}
	if res.Succeeded != 4 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("tally = ok:%d failed:%d skipped:%d, want 4/1/0", res.Succeeded, res.Failed, res.Skipped)
	}
	if len(res.Failures) != 1 || res.Failures[0].Statement != "" ||
		!strings.Contains(res.Failures[0].Err, "connection failed") {
		t.Errorf("unexpected failures %+v", res.Failures)
	}
}

func TestParallel_NoWorkerConnects(t *testing.T) {
	conn := &fakeConnector{open: func(database.Mode) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}}
	res := NewEngine(conn, testConfig(), nil).Parallel(context.Background(), inserts(5), 3)
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Failed != 3 || res.Skipped != 5 || res.Succeeded != 0 {
		t.Errorf("tally = ok:%d failed:%d skipped:%d, want 0/3/5", res.Succeeded, res.Failed, res.Skipped)
	}
	if !strings.Contains(res.Message, "not attempted=5") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestParallel_ReportsAtMostFiveFailures(t *testing.T) {
	stmts := inserts(8)
	bad := make(map[string]bool, len(stmts))
	for _, s := range stmts {
		bad[s] = true
	}

	res := NewEngine(perWorker(stmts, bad), testConfig(), nil).Parallel(context.Background(), stmts, 2)
	if res.Failed != 8 || len(res.Failures) != 8 {
		t.Fatalf("Failed = %d, Failures = %d", res.Failed, len(res.Failures))
	}
	if got := strings.Count(res.Message, "  - "); got != MaxReportedFailures {
		t.Errorf("reported %d failure details, want %d", got, MaxReportedFailures)
	}
	if !strings.Contains(res.Message, "... and 3 more") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestParallel_TruncatesPreview(t *testing.T) {
	long := "INSERT INTO t VALUES ('" + strings.Repeat("y", 400) + "')"
	res := NewEngine(perWorker([]string{long}, map[string]bool{long: true}), testConfig(), nil).
		Parallel(context.Background(), []string{long}, 2)

	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %+v", res.Failures)
	}
	if got := len([]rune(res.Failures[0].Statement)); got != ParallelPreviewLen+3 {
		t.Errorf("preview length = %d, want %d", got, ParallelPreviewLen+3)
	}
}

func TestParallel_Empty(t *testing.T) {
	conn := perWorker(nil, nil)
	res := NewEngine(conn, testConfig(), nil).Parallel(context.Background(), nil, 4)
	if !res.OK {
		t.Errorf("empty group should succeed: %q", res.Message)
	}
	if len(conn.Modes()) != 0 {
		t.Error("no worker should start for an empty group")
	}
}

func TestParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := perWorker(inserts(20), nil)
	res := NewEngine(conn, testConfig(), nil).Parallel(ctx, inserts(20), 4)
	if res.OK || res.Skipped != 20 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(conn.Modes()) != 0 {
		t.Error("a cancelled run must not connect")
	}
}
